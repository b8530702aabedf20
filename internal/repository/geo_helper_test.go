package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodMatch-App/internal/domain/model"
)

func TestGeoPointConversion(t *testing.T) {
	gp := CoordinateToGeoPoint(model.NewCoordinate(37.7749, -122.4194))
	assert.Equal(t, "Point", gp.Type)
	assert.Equal(t, []float64{-122.4194, 37.7749}, gp.Coordinates)

	coord, ok := GeoPointToCoordinate(gp)
	require.True(t, ok)
	assert.Equal(t, 37.7749, coord.Latitude)
	assert.Equal(t, -122.4194, coord.Longitude)

	_, ok = GeoPointToCoordinate(&GeoPoint{Type: "Point"})
	assert.False(t, ok)
	_, ok = GeoPointToCoordinate(nil)
	assert.False(t, ok)
}

func TestDecodeEventRows(t *testing.T) {
	data := []byte(`[
		{"id":"e1","title":"Open Mic","category":"Connect","location":"Cafe",
		 "latitude":37.79,"longitude":-122.42,"date":"2026-10-03T18:00:00+00:00",
		 "tags":["music"],"price":150},
		{"id":"e2","title":"Garden","category":"Fix",
		 "geo_point":{"type":"Point","coordinates":[-122.40,37.76]},
		 "date":"2026-10-06T09:30:00","end_date":null},
		{"id":"e3","title":"Workshop","category":"Learn","date":"2026-10-08"}
	]`)

	events, err := decodeEventRows(data)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "Cafe", events[0].Venue)
	assert.Equal(t, 37.79, events[0].Coordinate.Latitude)
	assert.True(t, events[0].StartsAt.Equal(time.Date(2026, 10, 3, 18, 0, 0, 0, time.UTC)))
	require.NotNil(t, events[0].Price)
	assert.Equal(t, 150.0, *events[0].Price)

	assert.Equal(t, 37.76, events[1].Coordinate.Latitude)
	assert.Equal(t, -122.40, events[1].Coordinate.Longitude)
	assert.Nil(t, events[1].EndsAt)
	assert.Equal(t, 9, events[1].StartsAt.Hour())

	assert.Equal(t, 8, events[2].StartsAt.Day())

	_, err = decodeEventRows([]byte(`[{"id":"bad","date":"yesterday"}]`))
	assert.Error(t, err)
}
