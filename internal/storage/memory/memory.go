// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/pkg/core"
)

// ErrNoRun is returned when recording before StartRun.
var ErrNoRun = errors.New("no run started")

// VehicleRecord groups a vehicle with its transition history
type VehicleRecord struct {
	Vehicle     core.Vehicle
	Transitions []core.TransitionEvent
}

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	run     *core.Run
	endedAt time.Time

	vehicles map[string]*VehicleRecord // keyed by vehicle ID
	order    []string

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[string]*VehicleRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run
func (b *Backend) StartRun(run *core.Run) error {
	if run == nil {
		return errors.New("memory: nil run")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	r := *run
	b.run = &r
	b.endedAt = time.Time{}

	// Reset all collections
	b.vehicles = make(map[string]*VehicleRecord)
	b.order = nil

	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.endedAt = time.Now().UTC()
	return b.exportJSON()
}

// AddVehicle registers a new vehicle
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	v.RunID = b.run.ID
	rec := b.record(v.ID)
	rec.Vehicle = *v
	return nil
}

// RecordTransition appends e to the history of its vehicle.
// Transitions of unregistered vehicles create a bare record.
func (b *Backend) RecordTransition(e *core.TransitionEvent) error {
	if e == nil {
		return errors.New("memory: nil transition event")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	rec := b.record(e.ObjectID)
	ev := *e
	ev.Kwargs = maps.Clone(e.Kwargs)
	rec.Transitions = append(rec.Transitions, ev)
	return nil
}

// record returns the record for id, creating it if needed. Caller holds mu.
func (b *Backend) record(id string) *VehicleRecord {
	rec, ok := b.vehicles[id]
	if !ok {
		rec = &VehicleRecord{
			Vehicle:     core.Vehicle{ID: id, RunID: b.run.ID},
			Transitions: make([]core.TransitionEvent, 0),
		}
		b.vehicles[id] = rec
		b.order = append(b.order, id)
	}
	return rec
}

// Run returns the current run, if any.
func (b *Backend) Run() (core.Run, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.run == nil {
		return core.Run{}, false
	}
	return *b.run, true
}

// VehicleIDs returns the recorded vehicle ids in registration order.
func (b *Backend) VehicleIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.order)
}

// Transitions returns a copy of the history of vehicle id.
func (b *Backend) Transitions(id string) []core.TransitionEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.vehicles[id]
	if !ok {
		return nil
	}
	return slices.Clone(rec.Transitions)
}

// ExportedFilePath returns the path of the last exported file
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
