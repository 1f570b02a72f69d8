// Package history records the transition events of simulated vehicles.
package history

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/fleetsim/vehiclesim/pkg/core"
)

// Recorder receives every transition event of a vehicle.
type Recorder interface {
	RecordTransition(e *core.TransitionEvent) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(e *core.TransitionEvent) error

// RecordTransition calls f(e).
func (f RecorderFunc) RecordTransition(e *core.TransitionEvent) error {
	return f(e)
}

// Log is an append-only, per-object transition log. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	order   []string // object ids in first-seen order
	entries map[string][]core.TransitionEvent
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{
		entries: make(map[string][]core.TransitionEvent),
	}
}

// RecordTransition appends a copy of e to the history of e.ObjectID.
func (l *Log) RecordTransition(e *core.TransitionEvent) error {
	if e == nil {
		return errors.New("history: nil event")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[e.ObjectID]; !ok {
		l.order = append(l.order, e.ObjectID)
	}
	l.entries[e.ObjectID] = append(l.entries[e.ObjectID], cloneEvent(e))
	return nil
}

// Events returns the history of one object, oldest first.
func (l *Log) Events(objectID string) []core.TransitionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src := l.entries[objectID]
	out := make([]core.TransitionEvent, len(src))
	for i := range src {
		out[i] = cloneEvent(&src[i])
	}
	return out
}

// Last returns the most recent event of an object.
func (l *Log) Last(objectID string) (core.TransitionEvent, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src := l.entries[objectID]
	if len(src) == 0 {
		return core.TransitionEvent{}, false
	}
	return cloneEvent(&src[len(src)-1]), true
}

// ObjectIDs returns the recorded object ids in first-seen order.
func (l *Log) ObjectIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.order)
}

// Len returns the total number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, events := range l.entries {
		n += len(events)
	}
	return n
}

func cloneEvent(e *core.TransitionEvent) core.TransitionEvent {
	c := *e
	c.Kwargs = maps.Clone(e.Kwargs)
	return c
}

// Tee fans out events to several recorders.
// Every recorder receives every event; errors are joined.
type Tee struct {
	recorders []Recorder
}

// NewTee creates a Tee over the non-nil recorders.
func NewTee(recorders ...Recorder) *Tee {
	valid := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			valid = append(valid, r)
		}
	}
	return &Tee{recorders: valid}
}

// RecordTransition forwards e to all recorders.
func (t *Tee) RecordTransition(e *core.TransitionEvent) error {
	var errs []error
	for _, r := range t.recorders {
		if err := r.RecordTransition(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
