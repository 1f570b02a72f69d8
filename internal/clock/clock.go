// Package clock provides the simulated clock shared by a simulation run.
package clock

import (
	"sync"
	"time"
)

// Clock is a tick-driven simulated clock. Now only changes when Tick is called.
type Clock struct {
	mu    sync.RWMutex
	start time.Time
	step  time.Duration
	ticks uint64
}

// New creates a clock starting at start and advancing by step on every tick.
func New(start time.Time, step time.Duration) *Clock {
	return &Clock{
		start: start,
		step:  step,
	}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Tick advances the clock by one step and returns the new time.
func (c *Clock) Tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Ticks returns how many ticks have elapsed since start.
func (c *Clock) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// Start returns the simulated start time.
func (c *Clock) Start() time.Time {
	return c.start
}

// Step returns the tick duration.
func (c *Clock) Step() time.Duration {
	return c.step
}
