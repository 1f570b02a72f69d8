package convert

import (
	"testing"
	"time"

	"github.com/fleetsim/vehiclesim/internal/model"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var at = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func TestRunRoundTrip(t *testing.T) {
	r := core.Run{ID: "run-1", Name: "morning", Tag: "test", StartTime: at, TickStep: 30 * time.Second}

	m := CoreToRun(r)
	assert.Equal(t, int64(30000), m.TickStepMs)
	assert.False(t, m.EndedAt.Valid)

	assert.Equal(t, r, RunToCore(m))
}

func TestVehicleRoundTrip(t *testing.T) {
	v := core.Vehicle{ID: "bus-1", RunID: "run-1", RegisteredAt: at, StartPosition: core.NewPosition(13.4, 52.52), Speed: 40}

	m := CoreToVehicle(v)
	assert.Equal(t, "bus-1", m.ObjectID)
	assert.Zero(t, m.ID)

	assert.Equal(t, v, VehicleToCore(m))
}

func TestCoreToTransition(t *testing.T) {
	e := core.TransitionEvent{
		ObjectID:    "bus-1",
		Trigger:     "set_idling",
		Source:      "moving_to",
		Destination: "idling",
		Time:        at,
		Kwargs: map[string]any{
			"stop":              "arrived",
			"position":          core.NewPosition(13.45, 52.52).ToMap(),
			"traveled_distance": 3.387,
		},
	}

	m := CoreToTransition("run-1", e)

	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, "bus-1", m.ObjectID)
	assert.Equal(t, "set_idling", m.Trigger)
	assert.Equal(t, "arrived", m.StopReason)
	require.True(t, m.TraveledDistance.Valid)
	assert.Equal(t, 3.387, m.TraveledDistance.Float64)

	lon, lat, ok := m.Position.LonLat()
	require.True(t, ok)
	assert.Equal(t, 13.45, lon)
	assert.Equal(t, 52.52, lat)

	back := TransitionToCore(m)
	assert.Equal(t, e, back)

	m.Kwargs["stop"] = "changed"
	assert.Equal(t, "arrived", e.Kwargs["stop"], "kwargs are copied")
}

func TestCoreToTransition_NoTelemetry(t *testing.T) {
	m := CoreToTransition("run-1", core.TransitionEvent{ObjectID: "v", Trigger: "set_offline"})

	assert.Equal(t, "", m.StopReason)
	assert.False(t, m.TraveledDistance.Valid)
	assert.NotNil(t, m.Kwargs)
	_, _, ok := m.Position.LonLat()
	assert.False(t, ok)
}

func TestTransitionToCore_NilKwargs(t *testing.T) {
	e := TransitionToCore(model.Transition{ObjectID: "v"})
	assert.NotNil(t, e.Kwargs)

	e = TransitionToCore(model.Transition{Kwargs: datatypes.JSONMap{"a": 1.0}})
	assert.Equal(t, 1.0, e.Kwargs["a"])
}

func TestPositionFromMap(t *testing.T) {
	_, ok := positionFromMap("13,52")
	assert.False(t, ok)
	_, ok = positionFromMap(map[string]any{"lon": 1.0})
	assert.False(t, ok)
	p, ok := positionFromMap(map[string]any{"lon": 1.0, "lat": 2.0})
	require.True(t, ok)
	assert.Equal(t, core.NewPosition(1, 2), p)
}
