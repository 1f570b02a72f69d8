// pkg/core/position.go
package core

import (
	"fmt"
	"math"
)

// positionTolerance is the coordinate delta (degrees) under which two positions are equal.
// 1e-9 degrees is well below a millimetre.
const positionTolerance = 1e-9

// Position is a WGS84 coordinate. Lon is the easting, Lat the northing.
type Position struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// NewPosition builds a Position from longitude and latitude.
func NewPosition(lon, lat float64) Position {
	return Position{Lon: lon, Lat: lat}
}

// Equal reports whether both coordinates match within positionTolerance.
func (p Position) Equal(o Position) bool {
	return math.Abs(p.Lon-o.Lon) < positionTolerance && math.Abs(p.Lat-o.Lat) < positionTolerance
}

// ToMap serializes the position to a plain key/value structure.
func (p Position) ToMap() map[string]any {
	return map[string]any{
		"lon": p.Lon,
		"lat": p.Lat,
	}
}

// String formats the position as "lon,lat", the same layout geo.PositionFromString parses.
func (p Position) String() string {
	return fmt.Sprintf("%g,%g", p.Lon, p.Lat)
}
