package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/service"
)

type EventUseCase interface {
	ListOpenEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)

	// JoinEvent ユーザーをイベントのグループに割り当てる（冪等）
	JoinEvent(ctx context.Context, req model.JoinRequest) (*model.JoinResult, error)
	GetGroup(ctx context.Context, eventID, groupID string) (*model.EventGroup, error)
	ListGroups(ctx context.Context, eventID string) ([]*model.EventGroup, error)
	GetGroupRoster(ctx context.Context, eventID, groupID string) ([]string, error)

	ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error)
	GetParticipation(ctx context.Context, userID, eventID string) (*model.Participant, error)
	// ListUserEvents ユーザーが参加しているイベントを参加順で返す
	ListUserEvents(ctx context.Context, userID string) ([]model.UserEvent, error)
}

// eventUseCaseImpl はEventUseCaseの実装
type eventUseCaseImpl struct {
	catalog  service.EventCatalog
	matcher  service.GroupMatcher
	registry service.ParticipantRegistry
	logger   *zap.Logger
}

// NewEventUseCase は新しいEventUseCaseインスタンスを作成
func NewEventUseCase(
	catalog service.EventCatalog,
	matcher service.GroupMatcher,
	registry service.ParticipantRegistry,
	logger *zap.Logger,
) EventUseCase {
	return &eventUseCaseImpl{
		catalog:  catalog,
		matcher:  matcher,
		registry: registry,
		logger:   logger,
	}
}

func (u *eventUseCaseImpl) ListOpenEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	return u.catalog.ListOpenEvents(ctx, filter)
}

func (u *eventUseCaseImpl) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	return u.catalog.GetEvent(ctx, eventID)
}

func (u *eventUseCaseImpl) JoinEvent(ctx context.Context, req model.JoinRequest) (*model.JoinResult, error) {
	return u.matcher.Join(ctx, req)
}

func (u *eventUseCaseImpl) GetGroup(ctx context.Context, eventID, groupID string) (*model.EventGroup, error) {
	return u.matcher.GetGroup(ctx, eventID, groupID)
}

func (u *eventUseCaseImpl) ListGroups(ctx context.Context, eventID string) ([]*model.EventGroup, error) {
	return u.matcher.ListGroups(ctx, eventID)
}

func (u *eventUseCaseImpl) GetGroupRoster(ctx context.Context, eventID, groupID string) ([]string, error) {
	return u.matcher.GetGroupRoster(ctx, eventID, groupID)
}

func (u *eventUseCaseImpl) ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error) {
	if _, err := u.catalog.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return u.registry.ListForEvent(ctx, eventID)
}

func (u *eventUseCaseImpl) GetParticipation(ctx context.Context, userID, eventID string) (*model.Participant, error) {
	return u.registry.Get(ctx, userID, eventID)
}

func (u *eventUseCaseImpl) ListUserEvents(ctx context.Context, userID string) ([]model.UserEvent, error) {
	if userID == "" {
		return nil, apperror.PreconditionFailed("ユーザーIDは必須です")
	}

	participations, err := u.registry.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]model.UserEvent, 0, len(participations))
	for _, p := range participations {
		event, err := u.catalog.GetEvent(ctx, p.EventID)
		if err != nil {
			// カタログから消えたイベントは一覧から外す
			if errors.Is(err, apperror.ErrNotFound) {
				u.logger.Warn("⚠️ 参加中のイベントがカタログにありません",
					zap.String("user_id", userID),
					zap.String("event_id", p.EventID))
				continue
			}
			return nil, fmt.Errorf("参加イベントの取得に失敗: %w", err)
		}
		result = append(result, model.UserEvent{
			Event:    *event,
			GroupID:  p.GroupID,
			JoinedAt: p.JoinedAt,
		})
	}
	return result, nil
}
