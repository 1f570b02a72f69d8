package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/fleetsim/vehiclesim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Positions are kept in EPSG:4326 (lon, lat). Geometry work happens in EPSG:3857.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PositionFromString parses a "lon,lat" string into a core.Position.
func PositionFromString(coords string) (core.Position, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return core.Position{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position{}, ErrInvalidCoordinates
	}
	if lon < -180 || lon > 180 || lat < -85.06 || lat > 85.06 {
		return core.Position{}, ErrInvalidCoordinates
	}
	return core.Position{Lon: lon, Lat: lat}, nil
}

// ToMercator converts a WGS84 position to EPSG:3857 meters.
func ToMercator(p core.Position) geom.XY {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(p.Lon, p.Lat, 0)
	return geom.XY{X: x, Y: y}
}

// FromMercator converts EPSG:3857 meters back to a WGS84 position.
func FromMercator(xy geom.XY) core.Position {
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ := f(xy.X, xy.Y, 0)
	return core.Position{Lon: lon, Lat: lat}
}

// Distance returns the distance between a and b in kilometers.
// The segment length is measured in Web Mercator and scaled back by the
// cosine of the mid latitude.
func Distance(a, b core.Position) float64 {
	from, to := ToMercator(a), ToMercator(b)
	seq := geom.NewSequence([]float64{from.X, from.Y, to.X, to.Y}, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		// a single distinct point
		return 0
	}

	midLat := (a.Lat + b.Lat) / 2 * math.Pi / 180
	return ls.Length() * math.Cos(midLat) / 1000
}

// Interpolate returns the position at the given fraction of the straight
// Mercator segment from a to b. Fractions are clamped to [0, 1].
func Interpolate(a, b core.Position, fraction float64) core.Position {
	if fraction <= 0 {
		return a
	}
	if fraction >= 1 {
		return b
	}
	from, to := ToMercator(a), ToMercator(b)
	return FromMercator(geom.XY{
		X: from.X + (to.X-from.X)*fraction,
		Y: from.Y + (to.Y-from.Y)*fraction,
	})
}
