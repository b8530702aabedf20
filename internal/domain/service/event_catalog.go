package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb/geo"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

// EventCatalog イベントの参照と絞り込み
type EventCatalog interface {
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	ListOpenEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
}

type eventCatalog struct {
	eventsRepo      repository.EventsRepository
	defaultRadiusKm float64
	now             func() time.Time
}

// NewEventCatalog EventCatalogを作成
func NewEventCatalog(eventsRepo repository.EventsRepository, defaultRadiusKm float64) EventCatalog {
	return &eventCatalog{
		eventsRepo:      eventsRepo,
		defaultRadiusKm: defaultRadiusKm,
		now:             time.Now,
	}
}

func (c *eventCatalog) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	if eventID == "" {
		return nil, apperror.InvalidArgument("イベントIDは必須です")
	}
	event, err := c.eventsRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベント %s の取得に失敗: %w", eventID, err)
	}
	return event, nil
}

// ListOpenEvents 受付中のイベントをカテゴリ・距離で絞り込み、開始日時順で返す
func (c *eventCatalog) ListOpenEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	if filter.Category != "" && !model.IsValidCategory(filter.Category) {
		return nil, apperror.InvalidArgument("不明なカテゴリです: " + filter.Category)
	}
	if filter.Near != nil && !filter.Near.IsValid() {
		return nil, apperror.InvalidArgument("座標が有効範囲外です")
	}

	events, err := c.eventsRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗: %w", err)
	}

	radiusMeters := filter.RadiusKm * 1000
	if filter.RadiusKm <= 0 {
		radiusMeters = c.defaultRadiusKm * 1000
	}

	now := c.now()
	result := make([]model.Event, 0, len(events))
	for _, event := range events {
		if !event.IsOpen(now) {
			continue
		}
		if filter.Category != "" && event.Category != filter.Category {
			continue
		}
		if filter.Near != nil {
			if geo.DistanceHaversine(filter.Near.Point(), event.Coordinate.Point()) > radiusMeters {
				continue
			}
		}
		result = append(result, event)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].StartsAt.Equal(result[j].StartsAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}
