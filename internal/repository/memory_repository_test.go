package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
)

func TestMemoryEventGroupsRepository_AdmitMember(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	t.Run("人数が一致すれば追加", func(t *testing.T) {
		repo := NewMemoryEventGroupsRepository()
		require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", "E1", model.SizeSmall, "u0", now)))

		g, err := repo.AdmitMember(ctx, "E1", "g1", "u1", 1)
		require.NoError(t, err)
		assert.Equal(t, 2, g.CurrentSize)
		assert.Equal(t, []string{"u0", "u1"}, g.Members)
		assert.False(t, g.IsFull)
	})

	t.Run("人数が変わっていればConflict", func(t *testing.T) {
		repo := NewMemoryEventGroupsRepository()
		require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", "E1", model.SizeSmall, "u0", now)))

		_, err := repo.AdmitMember(ctx, "E1", "g1", "u1", 2)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("定員に達すると満員になり以降は追加できない", func(t *testing.T) {
		repo := NewMemoryEventGroupsRepository()
		require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", "E1", model.SizeSmall, "u0", now)))

		for i := 1; i < 4; i++ {
			_, err := repo.AdmitMember(ctx, "E1", "g1", fmt.Sprintf("u%d", i), i)
			require.NoError(t, err)
		}
		g, err := repo.GetByID(ctx, "E1", "g1")
		require.NoError(t, err)
		assert.True(t, g.IsFull)
		assert.Equal(t, 4, g.CurrentSize)

		_, err = repo.AdmitMember(ctx, "E1", "g1", "u4", 4)
		assert.ErrorIs(t, err, apperror.ErrConflict)

		open, err := repo.ListOpen(ctx, "E1", model.SizeSmall)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("同じユーザーは2回入れない", func(t *testing.T) {
		repo := NewMemoryEventGroupsRepository()
		require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", "E1", model.SizeSmall, "u0", now)))

		_, err := repo.AdmitMember(ctx, "E1", "g1", "u0", 1)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("存在しないグループはNotFound", func(t *testing.T) {
		repo := NewMemoryEventGroupsRepository()
		_, err := repo.AdmitMember(ctx, "E1", "nope", "u1", 1)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("同じ期待人数での同時追加は1件だけ成功", func(t *testing.T) {
		repo := NewMemoryEventGroupsRepository()
		require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", "E1", model.SizeLarge, "u0", now)))

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := repo.AdmitMember(ctx, "E1", "g1", fmt.Sprintf("u%d", i+1), 1); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
	})

	t.Run("返り値を書き換えても保存値は変わらない", func(t *testing.T) {
		repo := NewMemoryEventGroupsRepository()
		require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", "E1", model.SizeSmall, "u0", now)))

		g, err := repo.GetByID(ctx, "E1", "g1")
		require.NoError(t, err)
		g.Members[0] = "mallory"
		g.CurrentSize = 99

		again, err := repo.GetByID(ctx, "E1", "g1")
		require.NoError(t, err)
		assert.Equal(t, []string{"u0"}, again.Members)
		assert.Equal(t, 1, again.CurrentSize)
	})
}

func TestMemoryEventGroupsRepository_ListOpen(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryEventGroupsRepository()

	require.NoError(t, repo.Create(ctx, model.NewEventGroup("g-large", "E1", model.SizeLarge, "u0", now.Add(2*time.Second))))
	require.NoError(t, repo.Create(ctx, model.NewEventGroup("g-small", "E1", model.SizeSmall, "u1", now)))
	require.NoError(t, repo.Create(ctx, model.NewEventGroup("g-any", "E1", model.SizeAny, "u2", now.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, model.NewEventGroup("g-other", "E2", model.SizeSmall, "u3", now)))

	err := repo.Create(ctx, model.NewEventGroup("g-small", "E1", model.SizeSmall, "u9", now))
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	ids := func(groups []*model.EventGroup) []string {
		out := make([]string, len(groups))
		for i, g := range groups {
			out[i] = g.ID
		}
		return out
	}

	small, err := repo.ListOpen(ctx, "E1", model.SizeSmall)
	require.NoError(t, err)
	assert.Equal(t, []string{"g-small"}, ids(small))

	anyOpen, err := repo.ListOpen(ctx, "E1", model.SizeAny)
	require.NoError(t, err)
	assert.Equal(t, []string{"g-small", "g-any", "g-large"}, ids(anyOpen))

	all, err := repo.ListByEvent(ctx, "E1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryPodsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPodsRepository()
	t0 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	err := repo.AddMember(ctx, &model.PodMembership{PodID: "pod_1_1", UserID: "u1", JoinedAt: t0})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, repo.UpsertPod(ctx, &model.Pod{ID: "pod_1_1", CenterLat: 1, CenterLng: 1, Label: "A", UpdatedAt: t0}))
	require.NoError(t, repo.UpsertPod(ctx, &model.Pod{ID: "pod_1_1", CenterLat: 1, CenterLng: 1, Label: "B", UpdatedAt: t0.Add(time.Minute)}))

	pod, err := repo.GetByID(ctx, "pod_1_1")
	require.NoError(t, err)
	assert.Equal(t, "B", pod.Label)

	require.NoError(t, repo.AddMember(ctx, &model.PodMembership{PodID: "pod_1_1", UserID: "u1", JoinedAt: t0}))
	require.NoError(t, repo.AddMember(ctx, &model.PodMembership{PodID: "pod_1_1", UserID: "u1", JoinedAt: t0.Add(time.Hour)}))

	members, err := repo.ListMembers(ctx, "pod_1_1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].JoinedAt.Equal(t0))
}

func TestMemoryParticipantsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryParticipantsRepository()

	p := &model.Participant{UserID: "u1", EventID: "E1", GroupID: "g1", JoinedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, p))

	err := repo.Create(ctx, &model.Participant{UserID: "u1", EventID: "E1", GroupID: "g2"})
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	got, err := repo.Get(ctx, "u1", "E1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GroupID)

	_, err = repo.Get(ctx, "u2", "E1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	byUser, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}

func TestMemoryParticipantsRepository_Claim(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryParticipantsRepository()
	claimedAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &model.Participant{UserID: "u1", EventID: "E1", JoinedAt: claimedAt}))

	t.Run("別の仮押さえ時刻では確定できない", func(t *testing.T) {
		_, err := repo.AssignGroup(ctx, "u1", "E1", claimedAt.Add(time.Second), "g1")
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("引き継ぎは一致した仮押さえだけ", func(t *testing.T) {
		err := repo.ReplaceClaim(ctx, "u1", "E1", claimedAt.Add(time.Second), claimedAt.Add(time.Minute))
		assert.ErrorIs(t, err, apperror.ErrConflict)

		require.NoError(t, repo.ReplaceClaim(ctx, "u1", "E1", claimedAt, claimedAt.Add(time.Minute)))
		claimedAt = claimedAt.Add(time.Minute)
	})

	t.Run("確定は1度だけで同じグループなら冪等", func(t *testing.T) {
		p, err := repo.AssignGroup(ctx, "u1", "E1", claimedAt, "g1")
		require.NoError(t, err)
		assert.Equal(t, "g1", p.GroupID)

		p, err = repo.AssignGroup(ctx, "u1", "E1", claimedAt, "g1")
		require.NoError(t, err)
		assert.Equal(t, "g1", p.GroupID)

		_, err = repo.AssignGroup(ctx, "u1", "E1", claimedAt, "g2")
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("確定済みは取り消せない", func(t *testing.T) {
		require.NoError(t, repo.DeleteClaim(ctx, "u1", "E1", claimedAt))
		got, err := repo.Get(ctx, "u1", "E1")
		require.NoError(t, err)
		assert.Equal(t, "g1", got.GroupID)
	})

	t.Run("仮押さえは取り消せる", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &model.Participant{UserID: "u2", EventID: "E1", JoinedAt: claimedAt}))
		require.NoError(t, repo.DeleteClaim(ctx, "u2", "E1", claimedAt))
		_, err := repo.Get(ctx, "u2", "E1")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("存在しない参加記録の確定はNotFound", func(t *testing.T) {
		_, err := repo.AssignGroup(ctx, "u9", "E1", claimedAt, "g1")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestMemoryEventGroupsRepository_FindByMember(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventGroupsRepository()
	t0 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", "E1", model.SizeSmall, "u1", t0)))
	for i, u := range []string{"u2", "u3", "u4"} {
		_, err := repo.AdmitMember(ctx, "E1", "g1", u, i+1)
		require.NoError(t, err)
	}

	// 満員のグループでも見つかる
	g, err := repo.FindByMember(ctx, "E1", "u4")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID)
	assert.True(t, g.IsFull)

	_, err = repo.FindByMember(ctx, "E1", "u9")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = repo.FindByMember(ctx, "E2", "u1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
