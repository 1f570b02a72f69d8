// Package engine simulates vehicle movement along straight routes at constant speed.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetsim/vehiclesim/internal/geo"
	"github.com/fleetsim/vehiclesim/pkg/core"
)

// ErrInvalidSpeed is returned by New for a non-positive speed.
var ErrInvalidSpeed = errors.New("speed must be positive")

// Clock is the time source of an Engine.
type Clock interface {
	Now() time.Time
}

// Engine moves a vehicle from its current position to a destination in a
// straight line. Position is derived from the clock, so the engine has no
// tick of its own: it arrives as soon as the clock passes the arrival time.
type Engine struct {
	clock    Clock
	speed    float64
	position core.Position
	route    *core.Route
}

// New creates an engine parked at start. speed is in km/h.
func New(clock Clock, start core.Position, speed float64) (*Engine, error) {
	if clock == nil {
		return nil, errors.New("engine: clock is required")
	}
	if speed <= 0 {
		return nil, fmt.Errorf("engine: %w: %g", ErrInvalidSpeed, speed)
	}
	return &Engine{
		clock:    clock,
		speed:    speed,
		position: start,
	}, nil
}

// Now returns the current simulated time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Speed returns the cruise speed in km/h.
func (e *Engine) Speed() float64 {
	return e.speed
}

// CurrentPosition returns the interpolated position along the active route,
// or the parked position when there is none.
func (e *Engine) CurrentPosition() core.Position {
	if e.route == nil {
		return e.position
	}
	return geo.Interpolate(e.route.Origin, e.route.Destination, e.route.Progress(e.clock.Now()))
}

// IsMoving reports whether the active route has distance left to cover.
func (e *Engine) IsMoving() bool {
	if e.route == nil {
		return false
	}
	return e.route.TraveledDistance(e.clock.Now()) < e.route.Distance
}

// Destination returns the route destination while the engine is moving.
func (e *Engine) Destination() (core.Position, bool) {
	if !e.IsMoving() {
		return core.Position{}, false
	}
	return e.route.Destination, true
}

// Route returns the current route. A completed route is still returned until EndMove.
func (e *Engine) Route() (*core.Route, bool) {
	if e.route == nil {
		return nil, false
	}
	r := *e.route
	return &r, true
}

// StartMove begins a new route from the current position. Any route in
// progress is ended first. Moving to the current position is a no-op.
func (e *Engine) StartMove(destination core.Position) error {
	e.EndMove()

	if destination.Equal(e.position) {
		return nil
	}

	e.route = &core.Route{
		Origin:      e.position,
		Destination: destination,
		StartTime:   e.clock.Now(),
		Distance:    geo.Distance(e.position, destination),
		Speed:       e.speed,
	}
	return nil
}

// EndMove freezes the engine at its current position and drops the route.
func (e *Engine) EndMove() {
	if e.route == nil {
		return
	}
	e.position = e.CurrentPosition()
	e.route = nil
}
