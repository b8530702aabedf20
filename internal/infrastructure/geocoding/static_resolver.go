package geocoding

import (
	"context"

	"PodMatch-App/internal/domain/model"
)

// StaticResolver 常に同じエリア名を返す（デモ・テスト用）
type StaticResolver struct {
	Label string
}

func NewStaticResolver(label string) *StaticResolver {
	return &StaticResolver{Label: label}
}

func (s *StaticResolver) ResolveNeighborhood(ctx context.Context, coord model.Coordinate) (string, error) {
	return s.Label, nil
}
