// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"maps"
	"time"

	"github.com/fleetsim/vehiclesim/internal/model"
	"github.com/fleetsim/vehiclesim/pkg/core"
)

// pointToPosition converts a stored point back to a core.Position
func pointToPosition(p model.Point) core.Position {
	lon, lat, ok := p.LonLat()
	if !ok {
		return core.Position{}
	}
	return core.NewPosition(lon, lat)
}

// RunToCore converts a GORM Run to a core.Run.
func RunToCore(r model.Run) core.Run {
	return core.Run{
		ID:        r.ID,
		Name:      r.Name,
		Tag:       r.Tag,
		StartTime: r.StartTime,
		TickStep:  time.Duration(r.TickStepMs) * time.Millisecond,
	}
}

// VehicleToCore converts a GORM Vehicle to a core.Vehicle.
// GORM Vehicle.ObjectID maps to core Vehicle.ID.
func VehicleToCore(v model.Vehicle) core.Vehicle {
	return core.Vehicle{
		ID:            v.ObjectID,
		RunID:         v.RunID,
		RegisteredAt:  v.RegisteredAt,
		StartPosition: pointToPosition(v.StartPosition),
		Speed:         v.Speed,
	}
}

// TransitionToCore converts a GORM Transition to a core.TransitionEvent.
// Kwargs are returned as stored; numbers decoded from JSON are float64.
func TransitionToCore(t model.Transition) core.TransitionEvent {
	kwargs := maps.Clone(map[string]any(t.Kwargs))
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return core.TransitionEvent{
		ObjectID:    t.ObjectID,
		Trigger:     t.Trigger,
		Source:      t.Source,
		Destination: t.Destination,
		Time:        t.Time,
		Kwargs:      kwargs,
	}
}
