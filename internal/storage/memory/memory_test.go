// internal/storage/memory/memory_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func testRun() *core.Run {
	return &core.Run{ID: "run-1", Name: "morning shift", StartTime: start, TickStep: 10 * time.Second}
}

func event(id, trigger, src, dst string, at time.Duration, kwargs map[string]any) *core.TransitionEvent {
	return &core.TransitionEvent{
		ObjectID: id, Trigger: trigger, Source: src, Destination: dst,
		Time: start.Add(at), Kwargs: kwargs,
	}
}

func TestRecordBeforeStartRun(t *testing.T) {
	b := New(config.MemoryConfig{})

	assert.ErrorIs(t, b.AddVehicle(&core.Vehicle{ID: "truck-1"}), ErrNoRun)
	assert.ErrorIs(t, b.RecordTransition(event("truck-1", "set_idling", "offline", "idling", 0, nil)), ErrNoRun)
	assert.ErrorIs(t, b.EndRun(), ErrNoRun)
	assert.Error(t, b.RecordTransition(nil))
}

func TestAddVehicleAndRecord(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartRun(testRun()))

	v := &core.Vehicle{ID: "truck-1", Speed: 60}
	require.NoError(t, b.AddVehicle(v))
	assert.Equal(t, "run-1", v.RunID)

	kwargs := map[string]any{"trip_id": "t-1"}
	require.NoError(t, b.RecordTransition(event("truck-1", "set_idling", "offline", "idling", 0, kwargs)))
	require.NoError(t, b.RecordTransition(event("van-2", "set_idling", "offline", "idling", time.Second, nil)))

	// the stored copy is detached from the caller's map
	kwargs["trip_id"] = "changed"

	assert.Equal(t, []string{"truck-1", "van-2"}, b.VehicleIDs())
	got := b.Transitions("truck-1")
	require.Len(t, got, 1)
	assert.Equal(t, "t-1", got[0].Kwargs["trip_id"])
	assert.Nil(t, b.Transitions("unknown"))
}

func TestStartRunResets(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.AddVehicle(&core.Vehicle{ID: "truck-1"}))

	require.NoError(t, b.StartRun(&core.Run{ID: "run-2"}))
	assert.Empty(t, b.VehicleIDs())
	run, ok := b.Run()
	require.True(t, ok)
	assert.Equal(t, "run-2", run.ID)
}

func TestEndRun_ExportJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.AddVehicle(&core.Vehicle{ID: "truck-1", StartPosition: core.NewPosition(13.4, 52.5), Speed: 60}))
	require.NoError(t, b.RecordTransition(event("truck-1", "set_idling", "offline", "idling", 0, nil)))
	require.NoError(t, b.RecordTransition(event("truck-1", "set_moving_to", "idling", "moving_to", 10*time.Second,
		map[string]any{"trip_id": "t-1"})))

	require.NoError(t, b.EndRun())

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "morning_shift_20240301_080000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export RunExport
	require.NoError(t, json.Unmarshal(data, &export))

	assert.Equal(t, "run-1", export.ID)
	assert.Equal(t, "10s", export.TickStep)
	assert.False(t, export.EndedAt.IsZero())
	require.Len(t, export.Vehicles, 1)
	assert.Equal(t, 52.5, export.Vehicles[0].StartPosition.Lat)
	require.Len(t, export.Vehicles[0].Transitions, 2)
	assert.Equal(t, "set_moving_to", export.Vehicles[0].Transitions[1].Trigger)
	assert.Equal(t, "t-1", export.Vehicles[0].Transitions[1].Kwargs["trip_id"])
}

func TestEndRun_ExportGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordTransition(event("truck-1", "set_idling", "offline", "idling", 0, nil)))
	require.NoError(t, b.EndRun())

	path := b.ExportedFilePath()
	assert.Equal(t, ".gz", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export RunExport
	require.NoError(t, json.NewDecoder(zr).Decode(&export))
	require.Len(t, export.Vehicles, 1)
	assert.Equal(t, "truck-1", export.Vehicles[0].ID)
}
