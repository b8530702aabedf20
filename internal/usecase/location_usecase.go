package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/domain/service"
)

type LocationUseCase interface {
	// UpdateUserLocation エリア名を解決し、Podを作成・更新してユーザーを参加させる
	UpdateUserLocation(ctx context.Context, userID string, coord model.Coordinate) (*model.LocationUpdate, error)
	FindNearbyPods(ctx context.Context, coord model.Coordinate, radiusKm float64) ([]string, error)
	GetPod(ctx context.Context, podID string) (*model.Pod, error)
	ListPodMembers(ctx context.Context, podID string) ([]string, error)
}

// locationUseCaseImpl はLocationUseCaseの実装
type locationUseCaseImpl struct {
	resolver   repository.LocationResolver
	podIndex   service.PodIndex
	membership service.PodMembershipService
	logger     *zap.Logger
}

// NewLocationUseCase は新しいLocationUseCaseインスタンスを作成
func NewLocationUseCase(
	resolver repository.LocationResolver,
	podIndex service.PodIndex,
	membership service.PodMembershipService,
	logger *zap.Logger,
) LocationUseCase {
	return &locationUseCaseImpl{
		resolver:   resolver,
		podIndex:   podIndex,
		membership: membership,
		logger:     logger,
	}
}

func (u *locationUseCaseImpl) UpdateUserLocation(ctx context.Context, userID string, coord model.Coordinate) (*model.LocationUpdate, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.PreconditionFailed("ユーザーIDは必須です")
	}
	if !coord.IsValid() {
		return nil, apperror.InvalidArgument(fmt.Sprintf("座標が有効範囲外です (%.6f, %.6f)", coord.Latitude, coord.Longitude))
	}

	// Step 1: エリア名（権限エラー以外は代替ラベルに置き換わる）
	label, err := u.resolver.ResolveNeighborhood(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("エリア名の取得に失敗: %w", err)
	}

	// Step 2: Podの作成・更新
	podID, err := u.podIndex.UpsertPod(ctx, coord, label)
	if err != nil {
		return nil, err
	}

	// Step 3: メンバー登録
	if err := u.membership.Join(ctx, podID, userID); err != nil {
		return nil, err
	}

	u.logger.Info("📍 位置情報を更新",
		zap.String("user_id", userID),
		zap.String("pod_id", podID),
		zap.String("neighborhood", label))
	return &model.LocationUpdate{PodID: podID, Neighborhood: label}, nil
}

func (u *locationUseCaseImpl) FindNearbyPods(ctx context.Context, coord model.Coordinate, radiusKm float64) ([]string, error) {
	return u.podIndex.FindNearbyPods(ctx, coord, radiusKm)
}

func (u *locationUseCaseImpl) GetPod(ctx context.Context, podID string) (*model.Pod, error) {
	return u.podIndex.GetPod(ctx, podID)
}

func (u *locationUseCaseImpl) ListPodMembers(ctx context.Context, podID string) ([]string, error) {
	return u.membership.ListMembers(ctx, podID)
}
