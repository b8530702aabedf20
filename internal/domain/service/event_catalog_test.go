package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	repoimpl "PodMatch-App/internal/repository"
)

func eventIDs(events []model.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

func TestEventCatalog(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	center := model.NewCoordinate(37.7749, -122.4194)

	events := append(repoimpl.DemoEvents(center, now),
		model.Event{
			ID:         "event-past",
			Title:      "Last week's meetup",
			Category:   model.CategoryConnect,
			Coordinate: center,
			StartsAt:   now.Add(-7 * 24 * time.Hour),
		},
		model.Event{
			ID:         "event-far",
			Title:      "Tokyo hackathon",
			Category:   model.CategoryLearn,
			Coordinate: model.NewCoordinate(35.6812, 139.7671),
			StartsAt:   now.Add(24 * time.Hour),
		},
	)

	catalog := NewEventCatalog(repoimpl.NewMemoryEventsRepository(events...), 10).(*eventCatalog)
	catalog.now = func() time.Time { return now }

	t.Run("受付中のイベントを開始日時順で返す", func(t *testing.T) {
		got, err := catalog.ListOpenEvents(ctx, model.EventFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"event-far", "event-1", "event-4", "event-2", "event-3"}, eventIDs(got))
	})

	t.Run("カテゴリで絞り込む", func(t *testing.T) {
		got, err := catalog.ListOpenEvents(ctx, model.EventFilter{Category: model.CategoryConnect})
		require.NoError(t, err)
		assert.Equal(t, []string{"event-1", "event-4"}, eventIDs(got))
	})

	t.Run("距離で絞り込む（デフォルト半径）", func(t *testing.T) {
		got, err := catalog.ListOpenEvents(ctx, model.EventFilter{Near: &center})
		require.NoError(t, err)
		assert.Equal(t, []string{"event-1", "event-4", "event-2", "event-3"}, eventIDs(got))
	})

	t.Run("半径を指定して絞り込む", func(t *testing.T) {
		got, err := catalog.ListOpenEvents(ctx, model.EventFilter{Near: &center, RadiusKm: 2})
		require.NoError(t, err)
		for _, e := range got {
			assert.NotEqual(t, "event-3", e.ID)
		}
	})

	t.Run("不明なカテゴリはInvalidArgument", func(t *testing.T) {
		_, err := catalog.ListOpenEvents(ctx, model.EventFilter{Category: "Party"})
		assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	})

	t.Run("範囲外の座標はInvalidArgument", func(t *testing.T) {
		bad := model.NewCoordinate(100, 0)
		_, err := catalog.ListOpenEvents(ctx, model.EventFilter{Near: &bad})
		assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	})

	t.Run("イベント取得", func(t *testing.T) {
		e, err := catalog.GetEvent(ctx, "event-2")
		require.NoError(t, err)
		assert.Equal(t, "Community Garden Project", e.Title)

		_, err = catalog.GetEvent(ctx, "missing")
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		_, err = catalog.GetEvent(ctx, "")
		assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	})
}
