package repository

import (
	"context"

	"PodMatch-App/internal/domain/model"
)

// EventsRepository イベントカタログ（読み取り専用）
type EventsRepository interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetAll(ctx context.Context) ([]model.Event, error)
}
