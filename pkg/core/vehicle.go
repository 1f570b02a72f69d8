// pkg/core/vehicle.go
package core

import "time"

// Vehicle is the registration record of a simulated vehicle.
// ID is the state machine object id.
type Vehicle struct {
	ID            string    `json:"id"`
	RunID         string    `json:"runId"`
	RegisteredAt  time.Time `json:"registeredAt"`
	StartPosition Position  `json:"startPosition"`
	Speed         float64   `json:"speed"` // km/h
}

// TransitionEvent is one entry of a vehicle's append-only history.
// Kwargs carries the transition arguments (stop reason, context) and the
// telemetry attached by the vehicle: position, origin, destination, traveled_distance.
type TransitionEvent struct {
	ObjectID    string         `json:"objectId"`
	Trigger     string         `json:"trigger"`
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Time        time.Time      `json:"time"`
	Kwargs      map[string]any `json:"kwargs,omitempty"`
}

// StopReason returns the "stop" argument of a set_idling event, or "" for
// any other event.
func (e *TransitionEvent) StopReason() string {
	if e.Trigger != "set_idling" {
		return ""
	}
	if s, ok := e.Kwargs["stop"].(string); ok {
		return s
	}
	return ""
}

// TraveledDistance returns the "traveled_distance" telemetry value in km, if present.
func (e *TransitionEvent) TraveledDistance() (float64, bool) {
	d, ok := e.Kwargs["traveled_distance"].(float64)
	return d, ok
}
