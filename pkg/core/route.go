// pkg/core/route.go
package core

import "time"

// Route is a single straight trip from Origin to Destination started at StartTime.
// Distance is in kilometers, Speed in kilometers per hour.
type Route struct {
	Origin      Position
	Destination Position
	StartTime   time.Time
	Distance    float64
	Speed       float64
}

// Duration returns the time needed to cover the whole route.
func (r *Route) Duration() time.Duration {
	if r.Speed <= 0 {
		return 0
	}
	return time.Duration(r.Distance / r.Speed * float64(time.Hour))
}

// ArrivalTime returns the simulated time at which the route is completed.
func (r *Route) ArrivalTime() time.Time {
	return r.StartTime.Add(r.Duration())
}

// TraveledDistance returns the kilometers covered as of now, clamped to [0, Distance].
func (r *Route) TraveledDistance(now time.Time) float64 {
	if r.Speed <= 0 || !now.After(r.StartTime) {
		return 0
	}
	traveled := now.Sub(r.StartTime).Hours() * r.Speed
	if traveled > r.Distance {
		return r.Distance
	}
	return traveled
}

// Progress returns the completed fraction of the route as of now, in [0, 1].
func (r *Route) Progress(now time.Time) float64 {
	if r.Distance <= 0 {
		return 1
	}
	return r.TraveledDistance(now) / r.Distance
}
