package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stopEvent() *core.TransitionEvent {
	return &core.TransitionEvent{
		ObjectID:    "truck-1",
		Trigger:     "set_idling",
		Source:      "moving_to",
		Destination: "idling",
		Time:        time.Date(2024, 3, 1, 8, 2, 0, 0, time.UTC),
		Kwargs: map[string]any{
			"stop":              "arrived",
			"trip_id":           "t-42",
			"position":          map[string]any{"lon": 13.5, "lat": 52.5},
			"destination":       map[string]any{"lon": 13.5, "lat": 52.5},
			"traveled_distance": 6.789,
		},
	}
}

func tags(t *testing.T, e *core.TransitionEvent, runID string) (map[string]string, map[string]any) {
	t.Helper()
	p := TransitionPoint(runID, e)
	tagMap := map[string]string{}
	for _, tag := range p.TagList() {
		tagMap[tag.Key] = tag.Value
	}
	fieldMap := map[string]any{}
	for _, f := range p.FieldList() {
		fieldMap[f.Key] = f.Value
	}
	return tagMap, fieldMap
}

func TestTransitionPoint(t *testing.T) {
	e := stopEvent()
	p := TransitionPoint("run-1", e)
	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, e.Time, p.Time())

	tagMap, fieldMap := tags(t, e, "run-1")
	assert.Equal(t, map[string]string{
		"object_id":   "truck-1",
		"trigger":     "set_idling",
		"source":      "moving_to",
		"destination": "idling",
		"run_id":      "run-1",
		"stop_reason": "arrived",
	}, tagMap)

	assert.Equal(t, "t-42", fieldMap["trip_id"])
	assert.Equal(t, 13.5, fieldMap["lon"])
	assert.Equal(t, 52.5, fieldMap["destination_lat"])
	assert.Equal(t, 6.789, fieldMap["traveled_distance"])
}

func TestTransitionPoint_NoTelemetry(t *testing.T) {
	e := &core.TransitionEvent{
		ObjectID: "truck-1", Trigger: "set_offline", Source: "idling", Destination: "offline",
		Time: time.Unix(0, 0),
	}
	tagMap, fieldMap := tags(t, e, "")

	assert.NotContains(t, tagMap, "run_id")
	assert.NotContains(t, tagMap, "stop_reason")
	assert.Equal(t, map[string]any{"count": int64(1)}, fieldMap)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: false}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "fleet",
		Bucket:   "vehicles",
	}, zerolog.Nop(), backup)
	m.RunID = "run-1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	require.NoError(t, m.RecordTransition(stopEvent()))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := string(data)
	assert.True(t, strings.HasPrefix(line, Measurement+","), line)
	assert.Contains(t, line, "run_id=run-1")
	assert.Contains(t, line, "stop_reason=arrived")
}

func TestWritePoint_NoBackup(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.Error(t, m.RecordTransition(stopEvent()))
	assert.Error(t, m.RecordTransition(nil))
}
