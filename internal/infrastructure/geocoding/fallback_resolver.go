package geocoding

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/infrastructure/metrics"
)

// FallbackResolver 外部の失敗を代替ラベルに置き換える。
// 権限エラーだけは呼び出し元に返す。
type FallbackResolver struct {
	next     repository.LocationResolver
	fallback string
	logger   *zap.Logger
}

func NewFallbackResolver(next repository.LocationResolver, fallback string, logger *zap.Logger) *FallbackResolver {
	return &FallbackResolver{
		next:     next,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FallbackResolver) ResolveNeighborhood(ctx context.Context, coord model.Coordinate) (string, error) {
	label, err := f.next.ResolveNeighborhood(ctx, coord)
	if err == nil && label != "" {
		return label, nil
	}
	if errors.Is(err, apperror.ErrPermissionDenied) {
		return "", err
	}

	metrics.LabelFallbacks.Inc()
	f.logger.Warn("⚠️ エリア名を取得できないため代替ラベルを使用",
		zap.Float64("latitude", coord.Latitude),
		zap.Float64("longitude", coord.Longitude),
		zap.String("fallback", f.fallback),
		zap.Error(err))
	return f.fallback, nil
}
