package convert

import (
	"database/sql"
	"maps"
	"time"

	"github.com/fleetsim/vehiclesim/internal/model"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"gorm.io/datatypes"
)

// positionToPoint converts a core.Position to a lon/lat WKB point
func positionToPoint(p core.Position) model.Point {
	return model.NewPoint(p.Lon, p.Lat)
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r core.Run) model.Run {
	return model.Run{
		ID:         r.ID,
		Name:       r.Name,
		Tag:        r.Tag,
		StartTime:  r.StartTime,
		TickStepMs: r.TickStep.Milliseconds(),
	}
}

// CoreToVehicle converts a core.Vehicle to a GORM model.Vehicle.
// core.Vehicle.ID maps to GORM Vehicle.ObjectID.
func CoreToVehicle(v core.Vehicle) model.Vehicle {
	return model.Vehicle{
		RunID:         v.RunID,
		ObjectID:      v.ID,
		RegisteredAt:  v.RegisteredAt,
		StartPosition: positionToPoint(v.StartPosition),
		Speed:         v.Speed,
	}
}

// CoreToTransition converts a transition event of the given run to a GORM model.Transition.
func CoreToTransition(runID string, e core.TransitionEvent) model.Transition {
	t := model.Transition{
		RunID:       runID,
		ObjectID:    e.ObjectID,
		Time:        e.Time,
		Trigger:     e.Trigger,
		Source:      e.Source,
		Destination: e.Destination,
		StopReason:  e.StopReason(),
		Kwargs:      datatypes.JSONMap(maps.Clone(e.Kwargs)),
	}
	if t.Kwargs == nil {
		t.Kwargs = datatypes.JSONMap{}
	}
	if pos, ok := positionFromMap(e.Kwargs["position"]); ok {
		t.Position = positionToPoint(pos)
	}
	if d, ok := e.TraveledDistance(); ok {
		t.TraveledDistance = sql.NullFloat64{Float64: d, Valid: true}
	}
	return t
}

// EndedAt marks a run as ended at the given wall-clock time.
func EndedAt(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

// positionFromMap reads a {"lon","lat"} map as produced by core.Position.ToMap.
func positionFromMap(v any) (core.Position, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return core.Position{}, false
	}
	lon, lonOK := m["lon"].(float64)
	lat, latOK := m["lat"].(float64)
	if !lonOK || !latOK {
		return core.Position{}, false
	}
	return core.NewPosition(lon, lat), true
}
