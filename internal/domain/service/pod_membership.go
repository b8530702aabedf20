package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

// PodMembershipService ユーザーとPodの関連を管理する。
// 移動しても以前のPodからは抜けない（履歴として残る）。
type PodMembershipService interface {
	Join(ctx context.Context, podID, userID string) error
	ListMembers(ctx context.Context, podID string) ([]string, error)
	ListMemberships(ctx context.Context, podID string) ([]model.PodMembership, error)
}

type podMembershipService struct {
	podsRepo repository.PodsRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewPodMembershipService PodMembershipServiceを作成
func NewPodMembershipService(podsRepo repository.PodsRepository, logger *zap.Logger) PodMembershipService {
	return &podMembershipService{
		podsRepo: podsRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Join 冪等な参加。既に参加済みなら最初の参加日時を保持する。
func (s *podMembershipService) Join(ctx context.Context, podID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.PreconditionFailed("ユーザーIDは必須です")
	}
	if _, err := s.podsRepo.GetByID(ctx, podID); err != nil {
		return fmt.Errorf("Pod %s の確認に失敗: %w", podID, err)
	}

	membership := &model.PodMembership{
		PodID:    podID,
		UserID:   userID,
		JoinedAt: s.now(),
	}
	if err := s.podsRepo.AddMember(ctx, membership); err != nil {
		return fmt.Errorf("Podメンバーの追加に失敗: %w", err)
	}

	s.logger.Debug("👥 Podメンバー登録", zap.String("pod_id", podID), zap.String("user_id", userID))
	return nil
}

// ListMembers Pod内のユーザーID一覧（ソート済み）
func (s *podMembershipService) ListMembers(ctx context.Context, podID string) ([]string, error) {
	memberships, err := s.ListMemberships(ctx, podID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		userIDs = append(userIDs, m.UserID)
	}
	sort.Strings(userIDs)
	return userIDs, nil
}

func (s *podMembershipService) ListMemberships(ctx context.Context, podID string) ([]model.PodMembership, error) {
	if _, err := s.podsRepo.GetByID(ctx, podID); err != nil {
		return nil, fmt.Errorf("Pod %s の確認に失敗: %w", podID, err)
	}

	memberships, err := s.podsRepo.ListMembers(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("Podメンバー一覧の取得に失敗: %w", err)
	}
	return memberships, nil
}
