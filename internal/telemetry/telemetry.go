// Package telemetry turns vehicle transitions into OpenTelemetry metrics.
package telemetry

import (
	"context"
	"fmt"

	"github.com/fleetsim/vehiclesim/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder counts transitions and stops and records trip distances.
type Recorder struct {
	transitions metric.Int64Counter
	stops       metric.Int64Counter
	distance    metric.Float64Histogram
}

// New creates the instruments on m.
func New(m metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	r.transitions, err = m.Int64Counter(
		"vehicle.transitions",
		metric.WithDescription("State transitions of simulated vehicles"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	r.stops, err = m.Int64Counter(
		"vehicle.stops",
		metric.WithDescription("Trips ended, by stop reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stops counter: %w", err)
	}

	r.distance, err = m.Float64Histogram(
		"vehicle.trip.distance",
		metric.WithDescription("Distance covered by ended trips"),
		metric.WithUnit("km"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating distance histogram: %w", err)
	}

	return r, nil
}

// RecordTransition implements the vehicle recorder interface.
func (r *Recorder) RecordTransition(e *core.TransitionEvent) error {
	ctx := context.Background()

	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", e.Trigger),
		attribute.String("source", e.Source),
		attribute.String("destination", e.Destination),
	))

	reason := e.StopReason()
	if reason == "" {
		return nil
	}
	attrs := metric.WithAttributes(attribute.String("reason", reason))
	r.stops.Add(ctx, 1, attrs)
	if km, ok := e.TraveledDistance(); ok {
		r.distance.Record(ctx, km, attrs)
	}
	return nil
}
