package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/domain/service"
	"PodMatch-App/internal/infrastructure/geocoding"
	repoimpl "PodMatch-App/internal/repository"
)

type deniedResolver struct{}

func (deniedResolver) ResolveNeighborhood(ctx context.Context, coord model.Coordinate) (string, error) {
	return "", apperror.New(apperror.CodePermissionDenied, "denied")
}

func newLocationUseCase(resolver repository.LocationResolver) LocationUseCase {
	podsRepo := repoimpl.NewMemoryPodsRepository()
	logger := zap.NewNop()
	return NewLocationUseCase(
		geocoding.NewFallbackResolver(resolver, "Unknown Area", logger),
		service.NewPodIndex(podsRepo, logger),
		service.NewPodMembershipService(podsRepo, logger),
		logger,
	)
}

func TestLocationUseCase_UpdateUserLocation(t *testing.T) {
	ctx := context.Background()

	t.Run("Podを作成してメンバーに追加", func(t *testing.T) {
		u := newLocationUseCase(geocoding.NewStaticResolver("Mission District"))

		res, err := u.UpdateUserLocation(ctx, "alice", model.NewCoordinate(37.7749, -122.4194))
		require.NoError(t, err)
		assert.Equal(t, "pod_37.8_-122.4", res.PodID)
		assert.Equal(t, "Mission District", res.Neighborhood)

		_, err = u.UpdateUserLocation(ctx, "bob", model.NewCoordinate(37.78, -122.41))
		require.NoError(t, err)

		members, err := u.ListPodMembers(ctx, res.PodID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, members)

		pod, err := u.GetPod(ctx, res.PodID)
		require.NoError(t, err)
		assert.Equal(t, "Mission District", pod.Label)

		nearby, err := u.FindNearbyPods(ctx, model.NewCoordinate(37.7749, -122.4194), 10)
		require.NoError(t, err)
		assert.Equal(t, []string{res.PodID}, nearby)
	})

	t.Run("エリア名が取れなければ代替ラベル", func(t *testing.T) {
		u := newLocationUseCase(geocoding.NewStaticResolver(""))

		res, err := u.UpdateUserLocation(ctx, "alice", model.NewCoordinate(35.6812, 139.7671))
		require.NoError(t, err)
		assert.Equal(t, "Unknown Area", res.Neighborhood)
	})

	t.Run("権限エラーはそのまま返しPodを作らない", func(t *testing.T) {
		u := newLocationUseCase(deniedResolver{})

		_, err := u.UpdateUserLocation(ctx, "alice", model.NewCoordinate(37.7749, -122.4194))
		assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

		_, err = u.GetPod(ctx, "pod_37.8_-122.4")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("入力エラー", func(t *testing.T) {
		u := newLocationUseCase(geocoding.NewStaticResolver("x"))

		_, err := u.UpdateUserLocation(ctx, "", model.NewCoordinate(0, 0))
		assert.ErrorIs(t, err, apperror.ErrPreconditionFailed)

		_, err = u.UpdateUserLocation(ctx, "alice", model.NewCoordinate(95, 0))
		assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	})
}

func TestEventUseCase(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	now := time.Now()

	events := repoimpl.NewMemoryEventsRepository(repoimpl.DemoEvents(model.NewCoordinate(37.7749, -122.4194), now)...)
	catalog := service.NewEventCatalog(events, 10)
	registry := service.NewParticipantRegistry(repoimpl.NewMemoryParticipantsRepository())
	matcher := service.NewGroupMatcher(catalog, repoimpl.NewMemoryEventGroupsRepository(), registry, service.DefaultGroupMatcherConfig(), logger)
	u := NewEventUseCase(catalog, matcher, registry, logger)

	first, err := u.JoinEvent(ctx, model.JoinRequest{UserID: "alice", EventID: "event-3", SizeClass: "SMALL"})
	require.NoError(t, err)
	_, err = u.JoinEvent(ctx, model.JoinRequest{UserID: "alice", EventID: "event-1", SizeClass: "LARGE"})
	require.NoError(t, err)
	_, err = u.JoinEvent(ctx, model.JoinRequest{UserID: "bob", EventID: "event-3", SizeClass: "SMALL"})
	require.NoError(t, err)

	t.Run("ユーザーの参加イベント", func(t *testing.T) {
		joined, err := u.ListUserEvents(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, joined, 2)
		groupByEvent := map[string]string{}
		for _, j := range joined {
			groupByEvent[j.Event.ID] = j.GroupID
		}
		assert.Contains(t, groupByEvent, "event-1")
		assert.Equal(t, first.GroupID, groupByEvent["event-3"])
		assert.False(t, joined[1].JoinedAt.Before(joined[0].JoinedAt))
	})

	t.Run("参加者一覧と参加記録", func(t *testing.T) {
		participants, err := u.ListParticipants(ctx, "event-3")
		require.NoError(t, err)
		assert.Len(t, participants, 2)

		p, err := u.GetParticipation(ctx, "bob", "event-3")
		require.NoError(t, err)
		assert.Equal(t, first.GroupID, p.GroupID)

		_, err = u.ListParticipants(ctx, "missing")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("グループ", func(t *testing.T) {
		groups, err := u.ListGroups(ctx, "event-3")
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, 2, groups[0].CurrentSize)

		roster, err := u.GetGroupRoster(ctx, "event-3", first.GroupID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, roster)
	})

	t.Run("ユーザーIDなし", func(t *testing.T) {
		_, err := u.ListUserEvents(ctx, "")
		assert.ErrorIs(t, err, apperror.ErrPreconditionFailed)
	})
}
