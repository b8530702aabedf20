package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	firestoreclient "PodMatch-App/internal/infrastructure/firestore"
)

// Firestoreエミュレータに対するテスト。FIRESTORE_EMULATOR_HOST が未設定ならスキップする。
func setupFirestore(t *testing.T) *firestore.Client {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST が設定されていないためスキップ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := firestoreclient.NewFirestoreClient(ctx, "podmatch-test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client.GetClient()
}

func TestFirestoreEventGroupsRepository_Emulator(t *testing.T) {
	fs := setupFirestore(t)
	ctx := context.Background()
	repo := NewFirestoreEventGroupsRepository(fs)

	eventID := "it-" + uuid.New().String()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Create(ctx, model.NewEventGroup("g1", eventID, model.SizeSmall, "u0", now)))

	err := repo.Create(ctx, model.NewEventGroup("g1", eventID, model.SizeSmall, "u0", now))
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	t.Run("同じ期待人数の追加は1件だけ成功する", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := repo.AdmitMember(ctx, eventID, "g1", fmt.Sprintf("u%d", i+1), 1); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)

		_, err := repo.AdmitMember(ctx, eventID, "g1", "u9", 1)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("4人目で満員になり空きから外れる", func(t *testing.T) {
		_, err := repo.AdmitMember(ctx, eventID, "g1", "u9", 2)
		require.NoError(t, err)
		full, err := repo.AdmitMember(ctx, eventID, "g1", "u10", 3)
		require.NoError(t, err)
		assert.True(t, full.IsFull)
		assert.Equal(t, 4, full.CurrentSize)

		_, err = repo.AdmitMember(ctx, eventID, "g1", "u11", 4)
		assert.ErrorIs(t, err, apperror.ErrConflict)
		_, err = repo.AdmitMember(ctx, eventID, "missing", "u11", 1)
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		stored, err := repo.GetByID(ctx, eventID, "g1")
		require.NoError(t, err)
		assert.True(t, stored.IsFull)
		assert.Len(t, stored.Members, 4)

		open, err := repo.ListOpen(ctx, eventID, model.SizeAny)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("所属グループの検索", func(t *testing.T) {
		member, err := repo.FindByMember(ctx, eventID, "u10")
		require.NoError(t, err)
		assert.Equal(t, "g1", member.ID)

		_, err = repo.FindByMember(ctx, eventID, "u11")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("小文字で保存されたサイズも一致する", func(t *testing.T) {
		legacy := fs.Collection(eventsCollection).Doc(eventID).Collection(groupsCollection).Doc("legacy")
		_, err := legacy.Set(ctx, map[string]interface{}{
			"size":        "small",
			"capacity":    4,
			"currentSize": 1,
			"isFull":      false,
			"members":     []string{"old"},
			"createdBy":   "old",
			"createdAt":   now.Add(time.Second),
		})
		require.NoError(t, err)

		open, err := repo.ListOpen(ctx, eventID, model.SizeSmall)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "legacy", open[0].ID)
		assert.Equal(t, model.SizeSmall, open[0].SizeClass)

		_, err = repo.AdmitMember(ctx, eventID, "legacy", "u20", 1)
		require.NoError(t, err)
		snap, err := legacy.Get(ctx)
		require.NoError(t, err)
		size, err := snap.DataAt("size")
		require.NoError(t, err)
		assert.Equal(t, string(model.SizeSmall), size)
	})
}

func TestFirestoreParticipantsRepository_Emulator(t *testing.T) {
	fs := setupFirestore(t)
	ctx := context.Background()
	repo := NewFirestoreParticipantsRepository(fs)

	eventID := "it-" + uuid.New().String()
	otherEventID := "it-" + uuid.New().String()
	userID := "user-" + uuid.New().String()
	claimedAt := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Create(ctx, &model.Participant{UserID: userID, EventID: eventID, JoinedAt: claimedAt}))

	t.Run("2回目の作成はAlreadyExists", func(t *testing.T) {
		err := repo.Create(ctx, &model.Participant{UserID: userID, EventID: eventID, JoinedAt: claimedAt.Add(time.Second)})
		assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

		p, err := repo.Get(ctx, userID, eventID)
		require.NoError(t, err)
		assert.True(t, p.Pending())
		assert.True(t, p.JoinedAt.Equal(claimedAt))
	})

	t.Run("仮押さえの引き継ぎと確定", func(t *testing.T) {
		err := repo.ReplaceClaim(ctx, userID, eventID, claimedAt.Add(time.Second), claimedAt.Add(time.Minute))
		assert.ErrorIs(t, err, apperror.ErrConflict)
		require.NoError(t, repo.ReplaceClaim(ctx, userID, eventID, claimedAt, claimedAt.Add(time.Minute)))
		renewed := claimedAt.Add(time.Minute)

		_, err = repo.AssignGroup(ctx, userID, eventID, claimedAt, "g1")
		assert.ErrorIs(t, err, apperror.ErrConflict)

		p, err := repo.AssignGroup(ctx, userID, eventID, renewed, "g1")
		require.NoError(t, err)
		assert.Equal(t, "g1", p.GroupID)

		p, err = repo.AssignGroup(ctx, userID, eventID, renewed, "g1")
		require.NoError(t, err)
		assert.Equal(t, "g1", p.GroupID)
		_, err = repo.AssignGroup(ctx, userID, eventID, renewed, "g2")
		assert.ErrorIs(t, err, apperror.ErrConflict)

		// 確定済みは取り消されない
		require.NoError(t, repo.DeleteClaim(ctx, userID, eventID, renewed))
		p, err = repo.Get(ctx, userID, eventID)
		require.NoError(t, err)
		assert.Equal(t, "g1", p.GroupID)

		_, err = repo.AssignGroup(ctx, "nobody", eventID, renewed, "g1")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("仮押さえの取り消し", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &model.Participant{UserID: "u2", EventID: eventID, JoinedAt: claimedAt}))
		require.NoError(t, repo.DeleteClaim(ctx, "u2", eventID, claimedAt))
		_, err := repo.Get(ctx, "u2", eventID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("ユーザーの参加一覧はイベントをまたいで取得する", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &model.Participant{UserID: userID, EventID: otherEventID, GroupID: "g9", JoinedAt: claimedAt}))

		ps, err := repo.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, ps, 2)
		groups := map[string]string{}
		for _, p := range ps {
			assert.Equal(t, userID, p.UserID)
			groups[p.EventID] = p.GroupID
		}
		assert.Equal(t, map[string]string{eventID: "g1", otherEventID: "g9"}, groups)

		byEvent, err := repo.ListByEvent(ctx, eventID)
		require.NoError(t, err)
		require.Len(t, byEvent, 1)
		assert.Equal(t, userID, byEvent[0].UserID)
	})
}

func TestFirestorePodsRepository_Emulator(t *testing.T) {
	fs := setupFirestore(t)
	ctx := context.Background()
	repo := NewFirestorePodsRepository(fs)

	podID := "pod_it_" + uuid.New().String()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.UpsertPod(ctx, &model.Pod{ID: podID, CenterLat: 37.77, CenterLng: -122.42, Label: "Mission", UpdatedAt: now}))
	require.NoError(t, repo.UpsertPod(ctx, &model.Pod{ID: podID, CenterLat: 37.77, CenterLng: -122.42, Label: "SoMa", UpdatedAt: now.Add(time.Second)}))

	pod, err := repo.GetByID(ctx, podID)
	require.NoError(t, err)
	assert.Equal(t, "SoMa", pod.Label)

	require.NoError(t, repo.AddMember(ctx, &model.PodMembership{PodID: podID, UserID: "alice", JoinedAt: now}))
	require.NoError(t, repo.AddMember(ctx, &model.PodMembership{PodID: podID, UserID: "alice", JoinedAt: now.Add(time.Hour)}))

	members, err := repo.ListMembers(ctx, podID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].JoinedAt.Equal(now))

	err = repo.AddMember(ctx, &model.PodMembership{PodID: "missing-" + podID, UserID: "alice", JoinedAt: now})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
