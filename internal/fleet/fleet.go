// Package fleet drives a set of vehicles on a shared simulated clock.
package fleet

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/fleetsim/vehiclesim/internal/vehicle"
)

var (
	ErrDuplicateVehicle = errors.New("duplicate vehicle")
	ErrUnknownVehicle   = errors.New("unknown vehicle")
)

// Clock is the simulation clock the fleet advances.
type Clock interface {
	Now() time.Time
	Tick() time.Time
}

// Fleet is an ordered registry of vehicles. It is not safe for concurrent use;
// the simulation loop and command handlers run on one goroutine.
type Fleet struct {
	clock    Clock
	logger   *slog.Logger
	vehicles map[string]*vehicle.Vehicle
	order    []string
}

// New creates an empty fleet. A nil logger uses slog.Default.
func New(clock Clock, logger *slog.Logger) *Fleet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fleet{
		clock:    clock,
		logger:   logger,
		vehicles: make(map[string]*vehicle.Vehicle),
	}
}

// Add registers v. Vehicles step in registration order.
func (f *Fleet) Add(v *vehicle.Vehicle) error {
	if _, ok := f.vehicles[v.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVehicle, v.ID())
	}
	f.vehicles[v.ID()] = v
	f.order = append(f.order, v.ID())
	return nil
}

// Get returns the vehicle with the given id.
func (f *Fleet) Get(id string) (*vehicle.Vehicle, bool) {
	v, ok := f.vehicles[id]
	return v, ok
}

func (f *Fleet) mustGet(id string) (*vehicle.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVehicle, id)
	}
	return v, nil
}

// Vehicles returns the vehicles in registration order.
func (f *Fleet) Vehicles() []*vehicle.Vehicle {
	out := make([]*vehicle.Vehicle, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.vehicles[id])
	}
	return out
}

// IDs returns the vehicle ids in registration order.
func (f *Fleet) IDs() []string {
	return slices.Clone(f.order)
}

// Len returns the number of vehicles.
func (f *Fleet) Len() int {
	return len(f.order)
}

// Step steps every vehicle once. The first error aborts the step.
func (f *Fleet) Step() error {
	for _, id := range f.order {
		if err := f.vehicles[id].Step(); err != nil {
			return fmt.Errorf("step vehicle %s: %w", id, err)
		}
	}
	return nil
}

// Tick advances the clock by one step, then steps every vehicle.
func (f *Fleet) Tick() (time.Time, error) {
	now := f.clock.Tick()
	if err := f.Step(); err != nil {
		return now, err
	}
	f.logger.Debug("Fleet stepped", "simTime", now, "moving", f.Moving())
	return now, nil
}

// Moving returns how many vehicles are in moving_to.
func (f *Fleet) Moving() int {
	n := 0
	for _, v := range f.vehicles {
		if v.IsMovingTo() {
			n++
		}
	}
	return n
}
