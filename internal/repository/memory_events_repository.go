package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

// MemoryEventsRepository 固定のイベント一覧を返すカタログ（デモ・テスト用）
type MemoryEventsRepository struct {
	mu     sync.RWMutex
	events map[string]model.Event
}

func NewMemoryEventsRepository(events ...model.Event) repository.EventsRepository {
	r := &MemoryEventsRepository{events: make(map[string]model.Event, len(events))}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *MemoryEventsRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("イベント %s が見つかりません", id))
	}
	return &event, nil
}

func (r *MemoryEventsRepository) GetAll(ctx context.Context) ([]model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]model.Event, 0, len(r.events))
	for _, e := range r.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

// DemoEvents 中心座標の周辺に置いたデモ用イベント
func DemoEvents(center model.Coordinate, now time.Time) []model.Event {
	day := 24 * time.Hour
	price := func(v float64) *float64 { return &v }
	return []model.Event{
		{
			ID:          "event-1",
			Title:       "Open Mic Night",
			Description: "Showcase your talent at our weekly open mic night. All talents welcome!",
			Category:    model.CategoryConnect,
			Venue:       "Café Culture",
			Coordinate:  model.NewCoordinate(center.Latitude+0.02, center.Longitude-0.01),
			StartsAt:    now.Add(2 * day),
			Tags:        []string{"music", "performance", "social"},
			Price:       price(150),
		},
		{
			ID:          "event-2",
			Title:       "Community Garden Project",
			Description: "Help revitalize our neighborhood garden and make our community greener.",
			Category:    model.CategoryFix,
			Venue:       "City Park",
			Coordinate:  model.NewCoordinate(center.Latitude-0.015, center.Longitude+0.02),
			StartsAt:    now.Add(5 * day),
			Tags:        []string{"environment", "volunteer", "outdoor"},
			Price:       price(0),
		},
		{
			ID:          "event-3",
			Title:       "AI Workshop: Building Your First Model",
			Description: "Learn the basics of AI and build your first machine learning model.",
			Category:    model.CategoryLearn,
			Venue:       "Tech Hub",
			Coordinate:  model.NewCoordinate(center.Latitude+0.03, center.Longitude+0.03),
			StartsAt:    now.Add(7 * day),
			Tags:        []string{"technology", "education", "workshop"},
			Price:       price(500),
		},
		{
			ID:          "event-4",
			Title:       "Board Game Night",
			Description: "Join us for a night of strategy, luck, and fun with various board games.",
			Category:    model.CategoryConnect,
			Venue:       "Game Café",
			Coordinate:  model.NewCoordinate(center.Latitude-0.01, center.Longitude-0.025),
			StartsAt:    now.Add(3 * day),
			Tags:        []string{"games", "social", "indoor"},
			Price:       price(200),
		},
	}
}
