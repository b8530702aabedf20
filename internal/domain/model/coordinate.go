package model

import (
	"math"

	"github.com/paulmach/orb"
)

// Coordinate 緯度経度（度単位）
type Coordinate struct {
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
}

// NewCoordinate Coordinate を作成
func NewCoordinate(lat, lng float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lng}
}

// Point orb.Point に変換（orb は [lng, lat] の順）
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// CoordinateFromPoint orb.Point から Coordinate に変換
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Latitude: p.Lat(), Longitude: p.Lon()}
}

// IsValid 緯度経度が有効範囲内かチェック
func (c Coordinate) IsValid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Geometry PostGIS GEOMETRY型 / GeoJSON Point に対応する構造体
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
}

// ToGeometry Coordinate を GeoJSON Point に変換
func (c Coordinate) ToGeometry() *Geometry {
	return &Geometry{
		Type:        "Point",
		Coordinates: []float64{c.Longitude, c.Latitude},
	}
}

// ToCoordinate GeoJSON Point から Coordinate に変換
func (g *Geometry) ToCoordinate() (Coordinate, bool) {
	if g == nil || len(g.Coordinates) < 2 {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: g.Coordinates[1], Longitude: g.Coordinates[0]}, true
}
