// Package vehicle implements the lifecycle state machine of a simulated vehicle.
//
// A vehicle is created offline without an engine. Installing a movement
// engine brings it to idling. MoveTo and Stop drive the engine and the state
// machine together, and Step reconciles the declared state with the engine's
// actual motion once per simulation tick.
//
// Every transition is enriched with the engine's position and route before it
// is handed to the vehicle's Recorder.
//
// A Vehicle is not safe for concurrent use.
package vehicle

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fleetsim/vehiclesim/internal/history"
	"github.com/fleetsim/vehiclesim/internal/statemachine"
	"github.com/fleetsim/vehiclesim/pkg/core"
)

// State is the lifecycle state of a vehicle.
type State string

const (
	StateOffline  State = "offline"
	StateIdling   State = "idling"
	StateMovingTo State = "moving_to"
)

// Trigger names a vehicle transition.
type Trigger string

const (
	TriggerSetIdling   Trigger = "set_idling"
	TriggerSetOffline  Trigger = "set_offline"
	TriggerSetMovingTo Trigger = "set_moving_to"
)

// StopReason is stored in the "stop" argument of set_idling events.
type StopReason string

const (
	StopArrived    StopReason = "arrived"
	StopChangeDest StopReason = "change_dest"
	StopUnknown    StopReason = "unknown"
	StopCommand    StopReason = "stop"
)

// Valid reports whether r is one of the known stop reasons.
func (r StopReason) Valid() bool {
	switch r {
	case StopArrived, StopChangeDest, StopUnknown, StopCommand:
		return true
	}
	return false
}

// ParseStopReason converts s to a StopReason.
func ParseStopReason(s string) (StopReason, error) {
	r := StopReason(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStopReason, s)
	}
	return r, nil
}

// States lists every vehicle state.
var States = []State{StateOffline, StateIdling, StateMovingTo}

// Transitions is the vehicle transition table.
var Transitions = []statemachine.Transition[State, Trigger]{
	{Trigger: TriggerSetIdling, Sources: []State{StateOffline, StateMovingTo}, Destination: StateIdling},
	{Trigger: TriggerSetOffline, Sources: []State{StateIdling}, Destination: StateOffline},
	{Trigger: TriggerSetMovingTo, Sources: []State{StateIdling}, Destination: StateMovingTo},
}

// Engine moves the vehicle. It is owned by exactly one vehicle once installed.
type Engine interface {
	CurrentPosition() core.Position
	// Destination is only reported while the engine is moving.
	Destination() (core.Position, bool)
	Route() (*core.Route, bool)
	IsMoving() bool
	StartMove(destination core.Position) error
	EndMove()
	Now() time.Time
}

// Recorder receives the enriched record of every transition.
type Recorder interface {
	RecordTransition(e *core.TransitionEvent) error
}

// Clock supplies transition timestamps.
type Clock = statemachine.Clock

type options struct {
	id       string
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Vehicle.
type Option func(*options)

// WithID sets the vehicle id. A random id is generated otherwise.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the logger used for warnings and transition traces.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder sets where transitions are recorded. Defaults to a history.Log.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Vehicle is a simulated vehicle.
type Vehicle struct {
	fsm      *statemachine.Machine[State, Trigger]
	engine   Engine
	context  Context
	logger   *slog.Logger
	recorder Recorder
}

// New creates an offline vehicle without an engine.
func New(clock Clock, opts ...Option) (*Vehicle, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.recorder == nil {
		o.recorder = history.NewLog()
	}

	v := &Vehicle{recorder: o.recorder}
	fsm, err := statemachine.New(clock, States, Transitions, StateOffline,
		statemachine.WithID[State, Trigger](o.id),
		statemachine.WithChangeHook[State, Trigger](v.onStateChanged),
	)
	if err != nil {
		return nil, fmt.Errorf("create vehicle: %w", err)
	}
	v.fsm = fsm
	v.logger = o.logger.With("vehicle", fsm.ID())
	return v, nil
}

// ID returns the vehicle id.
func (v *Vehicle) ID() string { return v.fsm.ID() }

// State returns the current lifecycle state.
func (v *Vehicle) State() State { return v.fsm.State() }

// IsOffline reports whether the vehicle is offline.
func (v *Vehicle) IsOffline() bool { return v.fsm.Is(StateOffline) }

// IsIdling reports whether the vehicle is idling.
func (v *Vehicle) IsIdling() bool { return v.fsm.Is(StateIdling) }

// IsMovingTo reports whether the vehicle is moving to a destination.
func (v *Vehicle) IsMovingTo() bool { return v.fsm.Is(StateMovingTo) }

// Context returns a copy of the stored context.
func (v *Vehicle) Context() Context { return v.context.Clone() }

// Recorder returns the transition recorder.
func (v *Vehicle) Recorder() Recorder { return v.recorder }

// Position returns the engine's current position. ok is false without an engine.
func (v *Vehicle) Position() (core.Position, bool) {
	if v.engine == nil {
		return core.Position{}, false
	}
	return v.engine.CurrentPosition(), true
}

// IsMoving reports whether the engine is moving.
func (v *Vehicle) IsMoving() bool {
	return v.engine != nil && v.engine.IsMoving()
}

// Destination returns the engine's destination while it is moving.
func (v *Vehicle) Destination() (core.Position, bool) {
	if v.engine == nil {
		return core.Position{}, false
	}
	return v.engine.Destination()
}

// InstallEngine binds the engine to the vehicle and brings it to idling.
// An engine can only be installed once.
func (v *Vehicle) InstallEngine(e Engine) error {
	if e == nil {
		return errors.New("install engine: nil engine")
	}
	if v.engine != nil {
		return ErrEngineAlreadyInstalled
	}
	v.engine = e
	return v.fsm.Apply(TriggerSetIdling, v.context.kwargs())
}

// MoveTo sends the vehicle to destination.
//
// Re-issuing the current destination is a no-op. A different destination
// while moving stops the current trip with StopChangeDest and starts a new
// one within the same call, so callers never observe the vehicle idling.
// ctx is stored when the vehicle enters moving_to.
func (v *Vehicle) MoveTo(destination core.Position, ctx Context) error {
	if v.engine == nil {
		return ErrNoEngine
	}

	if v.engine.IsMoving() {
		current, ok := v.engine.Destination()
		if !ok || !current.Equal(destination) {
			if err := v.Stop(StopChangeDest, Context{}); err != nil {
				return fmt.Errorf("redirect: %w", err)
			}
			if err := v.engine.StartMove(destination); err != nil {
				return fmt.Errorf("start move to %s: %w", destination, err)
			}
		}
	} else if err := v.engine.StartMove(destination); err != nil {
		return fmt.Errorf("start move to %s: %w", destination, err)
	}

	if v.engine.IsMoving() && v.fsm.Is(StateIdling) {
		v.context = ctx.Clone()
		return v.fsm.Apply(TriggerSetMovingTo, v.context.kwargs())
	}
	return nil
}

// Stop ends the current trip and brings the vehicle to idling.
// An empty reason is recorded as StopUnknown; an empty ctx falls back to the
// stored context. Stopping an idling vehicle only logs a warning.
func (v *Vehicle) Stop(reason StopReason, ctx Context) error {
	if v.engine == nil {
		return ErrNoEngine
	}
	if v.fsm.Is(StateIdling) {
		v.logger.Warn("Vehicle is already idling, ignoring stop", "reason", string(reason))
		return nil
	}

	if reason == "" {
		reason = StopUnknown
	}
	if ctx.IsEmpty() {
		ctx = v.context
	}
	kwargs := ctx.kwargs()
	kwargs["stop"] = string(reason)

	// The hook reads the route, so the engine is stopped after the transition.
	err := v.fsm.Apply(TriggerSetIdling, kwargs)
	if !v.fsm.Is(StateIdling) {
		return err
	}
	v.context = Context{}
	v.engine.EndMove()
	return err
}

// SetOffline takes an idling vehicle offline.
func (v *Vehicle) SetOffline() error {
	return v.fsm.Apply(TriggerSetOffline, v.context.kwargs())
}

// Step reconciles the state with the engine. It is called once per tick.
func (v *Vehicle) Step() error {
	if v.engine == nil {
		return ErrNoEngine
	}

	moving := v.engine.IsMoving()
	switch {
	case v.fsm.Is(StateMovingTo) && !moving:
		return v.Stop(StopArrived, v.context)
	case v.fsm.Is(StateIdling) && moving:
		pos := v.engine.CurrentPosition()
		v.logger.Warn("Vehicle is idling while its engine is moving", "position", pos.String())
		return &UndefinedStateError{VehicleID: v.ID(), Position: pos}
	}
	return nil
}

func (v *Vehicle) onStateChanged(ev *statemachine.Event[State, Trigger]) error {
	if v.engine != nil {
		ev.Kwargs["position"] = v.engine.CurrentPosition().ToMap()
		if route, ok := v.engine.Route(); ok {
			ev.Kwargs["origin"] = route.Origin.ToMap()
			ev.Kwargs["destination"] = route.Destination.ToMap()
			ev.Kwargs["traveled_distance"] = roundKm(route.TraveledDistance(v.engine.Now()))
		}
	}

	v.logger.Debug("State changed",
		"trigger", string(ev.Trigger),
		"from", string(ev.Source),
		"to", string(ev.Destination),
		"time", ev.Time,
	)
	return v.recorder.RecordTransition(ev.Record())
}

func roundKm(km float64) float64 {
	return math.Round(km*1000) / 1000
}
