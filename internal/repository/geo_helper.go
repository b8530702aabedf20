package repository

import (
	"github.com/paulmach/orb"

	"PodMatch-App/internal/domain/model"
)

// GeoPoint PostGIS POINT 型の JSON 表現
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// CoordinateToGeoPoint model.Coordinate を PostGIS POINT 形式に変換
func CoordinateToGeoPoint(coord model.Coordinate) *GeoPoint {
	point := coord.Point()
	return &GeoPoint{
		Type:        "Point",
		Coordinates: []float64{point.Lon(), point.Lat()},
	}
}

// GeoPointToCoordinate PostGIS POINT を model.Coordinate に変換
func GeoPointToCoordinate(geoPoint *GeoPoint) (model.Coordinate, bool) {
	if geoPoint == nil || len(geoPoint.Coordinates) < 2 {
		return model.Coordinate{}, false
	}
	point := orb.Point{geoPoint.Coordinates[0], geoPoint.Coordinates[1]}
	return model.CoordinateFromPoint(point), true
}

// EventRow events テーブルの行。
// 座標は latitude / longitude 列、なければ PostGIS の geo_point 列から読む。
type EventRow struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	GeoPoint    *GeoPoint  `json:"geo_point"`
	Date        *Timestamp `json:"date"`
	EndDate     *Timestamp `json:"end_date"`
	Source      string     `json:"source"`
	ImageURL    string     `json:"image_url"`
	URL         string     `json:"url"`
	Tags        []string   `json:"tags"`
	Price       *float64   `json:"price"`
}

// ToEvent EventRow を model.Event に変換
func (row *EventRow) ToEvent() model.Event {
	event := model.Event{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Category:    row.Category,
		Venue:       row.Location,
		Source:      row.Source,
		ImageURL:    row.ImageURL,
		URL:         row.URL,
		Tags:        row.Tags,
		Price:       row.Price,
	}

	if row.Latitude != nil && row.Longitude != nil {
		event.Coordinate = model.NewCoordinate(*row.Latitude, *row.Longitude)
	} else if coord, ok := GeoPointToCoordinate(row.GeoPoint); ok {
		event.Coordinate = coord
	}
	if row.Date != nil {
		event.StartsAt = row.Date.Time
	}
	if row.EndDate != nil && !row.EndDate.Time.IsZero() {
		end := row.EndDate.Time
		event.EndsAt = &end
	}
	return event
}
