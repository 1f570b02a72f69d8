// Package statemachine implements a small declarative finite-state machine.
//
// A Machine is built from a static transition table. Each Transition names a
// trigger, the set of states it may fire from, and the state it leads to.
// Apply validates the current state against that set before moving, then
// hands an Event describing the change to an optional change hook.
//
// The hook runs after the state has been assigned, so it observes the
// post-transition state. An error returned by the hook is returned from
// Apply; the state change is not rolled back.
package statemachine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/google/uuid"
)

var (
	// ErrInvalidTransition is matched by every *InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnknownTrigger is returned when Apply is called with a trigger missing from the table.
	ErrUnknownTrigger = errors.New("unknown trigger")
)

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

// Transition is one row of the transition table.
type Transition[S ~string, T ~string] struct {
	Trigger     T
	Sources     []S
	Destination S
}

// Event describes a completed transition.
type Event[S ~string, T ~string] struct {
	ObjectID    string
	Trigger     T
	Source      S
	Destination S
	Time        time.Time
	Kwargs      map[string]any
}

// Record converts the event to its history representation.
func (e *Event[S, T]) Record() *core.TransitionEvent {
	return &core.TransitionEvent{
		ObjectID:    e.ObjectID,
		Trigger:     string(e.Trigger),
		Source:      string(e.Source),
		Destination: string(e.Destination),
		Time:        e.Time,
		Kwargs:      e.Kwargs,
	}
}

// ChangeHook is invoked with every completed transition.
type ChangeHook[S ~string, T ~string] func(*Event[S, T]) error

// InvalidTransitionError is returned when a trigger fires outside its source set.
type InvalidTransitionError struct {
	ObjectID string
	Trigger  string
	State    string
	Sources  []string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("can't trigger %q from state %q on %s, allowed sources: %v",
		e.Trigger, e.State, e.ObjectID, e.Sources)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Option configures a Machine.
type Option[S ~string, T ~string] func(*Machine[S, T])

// WithID tags the machine with a fixed object id. An empty id keeps the generated one.
func WithID[S ~string, T ~string](id string) Option[S, T] {
	return func(m *Machine[S, T]) {
		if id != "" {
			m.id = id
		}
	}
}

// WithChangeHook sets the hook called after every transition.
func WithChangeHook[S ~string, T ~string](hook ChangeHook[S, T]) Option[S, T] {
	return func(m *Machine[S, T]) {
		m.onChange = hook
	}
}

// Machine holds the current state of one entity and executes transitions on it.
// It is not safe for concurrent use.
type Machine[S ~string, T ~string] struct {
	id          string
	clock       Clock
	state       S
	states      []S
	transitions map[T]Transition[S, T]
	triggers    []T
	onChange    ChangeHook[S, T]
}

// New validates the table and returns a machine in the initial state.
// states lists every valid state; each transition must only reference those.
func New[S ~string, T ~string](clock Clock, states []S, table []Transition[S, T], initial S, opts ...Option[S, T]) (*Machine[S, T], error) {
	if clock == nil {
		return nil, errors.New("statemachine: clock is required")
	}
	if len(table) == 0 {
		return nil, errors.New("statemachine: empty transition table")
	}
	if !slices.Contains(states, initial) {
		return nil, fmt.Errorf("statemachine: initial state %q is not a known state", initial)
	}

	m := &Machine[S, T]{
		id:          uuid.NewString(),
		clock:       clock,
		state:       initial,
		states:      slices.Clone(states),
		transitions: make(map[T]Transition[S, T], len(table)),
	}

	for _, tr := range table {
		if _, dup := m.transitions[tr.Trigger]; dup {
			return nil, fmt.Errorf("statemachine: duplicate trigger %q", tr.Trigger)
		}
		if len(tr.Sources) == 0 {
			return nil, fmt.Errorf("statemachine: trigger %q has no source states", tr.Trigger)
		}
		for _, s := range append(slices.Clone(tr.Sources), tr.Destination) {
			if !slices.Contains(states, s) {
				return nil, fmt.Errorf("statemachine: trigger %q references unknown state %q", tr.Trigger, s)
			}
		}
		m.transitions[tr.Trigger] = Transition[S, T]{
			Trigger:     tr.Trigger,
			Sources:     slices.Clone(tr.Sources),
			Destination: tr.Destination,
		}
		m.triggers = append(m.triggers, tr.Trigger)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// ID returns the object id the machine is tagged with.
func (m *Machine[S, T]) ID() string {
	return m.id
}

// State returns the current state.
func (m *Machine[S, T]) State() S {
	return m.state
}

// Is reports whether the machine is in state s.
func (m *Machine[S, T]) Is(s S) bool {
	return m.state == s
}

// States returns all valid states.
func (m *Machine[S, T]) States() []S {
	return slices.Clone(m.states)
}

// Triggers returns the triggers in table order.
func (m *Machine[S, T]) Triggers() []T {
	return slices.Clone(m.triggers)
}

// Permitted reports whether trigger may fire from the current state.
func (m *Machine[S, T]) Permitted(trigger T) bool {
	tr, ok := m.transitions[trigger]
	return ok && slices.Contains(tr.Sources, m.state)
}

// Apply fires trigger. kwargs is copied into the event; the caller's map is never modified.
func (m *Machine[S, T]) Apply(trigger T, kwargs map[string]any) error {
	tr, ok := m.transitions[trigger]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, trigger)
	}

	if !slices.Contains(tr.Sources, m.state) {
		sources := make([]string, len(tr.Sources))
		for i, s := range tr.Sources {
			sources[i] = string(s)
		}
		return &InvalidTransitionError{
			ObjectID: m.id,
			Trigger:  string(trigger),
			State:    string(m.state),
			Sources:  sources,
		}
	}

	source := m.state
	m.state = tr.Destination

	ev := &Event[S, T]{
		ObjectID:    m.id,
		Trigger:     trigger,
		Source:      source,
		Destination: tr.Destination,
		Time:        m.clock.Now(),
		Kwargs:      make(map[string]any, len(kwargs)),
	}
	maps.Copy(ev.Kwargs, kwargs)

	if m.onChange != nil {
		if err := m.onChange(ev); err != nil {
			return fmt.Errorf("on state changed (%s -> %s): %w", source, tr.Destination, err)
		}
	}
	return nil
}
