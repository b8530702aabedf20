package repository

import (
	"context"

	"PodMatch-App/internal/domain/model"
)

// LocationResolver 座標から表示用のエリア名を取得する外部連携
type LocationResolver interface {
	ResolveNeighborhood(ctx context.Context, coord model.Coordinate) (string, error)
}
