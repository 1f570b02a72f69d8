package telemetry

import (
	"context"
	"testing"

	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := New(mp.Meter("test"))
	require.NoError(t, err)

	events := []*core.TransitionEvent{
		{ObjectID: "v1", Trigger: "set_idling", Source: "offline", Destination: "idling", Kwargs: map[string]any{}},
		{ObjectID: "v1", Trigger: "set_moving_to", Source: "idling", Destination: "moving_to", Kwargs: map[string]any{"traveled_distance": 0.0}},
		{ObjectID: "v1", Trigger: "set_idling", Source: "moving_to", Destination: "idling", Kwargs: map[string]any{"stop": "arrived", "traveled_distance": 3.5}},
		{ObjectID: "v2", Trigger: "set_idling", Source: "moving_to", Destination: "idling", Kwargs: map[string]any{"stop": "change_dest"}},
	}
	for _, e := range events {
		require.NoError(t, r.RecordTransition(e))
	}

	metrics := collect(t, reader)

	transitions, ok := metrics["vehicle.transitions"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range transitions.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(4), total)
	assert.Len(t, transitions.DataPoints, 3, "one series per trigger/source/destination")

	stops, ok := metrics["vehicle.stops"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, stops.DataPoints, 2)

	hist, ok := metrics["vehicle.trip.distance"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, 3.5, hist.DataPoints[0].Sum)
	assert.Equal(t, "km", metrics["vehicle.trip.distance"].Unit)
}
