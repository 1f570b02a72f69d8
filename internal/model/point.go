package model

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Point is a WGS84 lon/lat point stored as WKB.
type Point struct {
	geom.Point
}

// NewPoint builds a point from longitude and latitude. Non-finite
// coordinates yield an empty point.
func NewPoint(lon, lat float64) Point {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: lon, Y: lat}})
	if err != nil {
		return Point{geom.NewEmptyPoint(geom.DimXY)}
	}
	return Point{pt}
}

// LonLat returns the coordinates; ok is false for an empty point.
func (p Point) LonLat() (lon, lat float64, ok bool) {
	xy, ok := p.XY()
	return xy.X, xy.Y, ok
}

func (Point) GormDataType() string {
	return "bytes"
}

func (Point) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "bytea"
	}
	return "blob"
}
