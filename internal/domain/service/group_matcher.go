package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/infrastructure/metrics"
)

// GroupMatcherConfig 排他待ちと再試行の設定
type GroupMatcherConfig struct {
	LockTimeout      time.Duration // イベントの排他を待つ上限
	MaxAttempts      int           // CapacityRaceLost の内部再試行回数（初回を含む）
	RetryInterval    time.Duration // 再試行の初回待ち時間
	MaxAdmitAttempts int           // 1回の試行内で候補グループを読み直す回数
	ClaimTTL         time.Duration // これより古い他者の仮押さえは放置されたものとして引き継ぐ
}

// DefaultGroupMatcherConfig デフォルト設定
func DefaultGroupMatcherConfig() GroupMatcherConfig {
	return GroupMatcherConfig{
		LockTimeout:      2 * time.Second,
		MaxAttempts:      3,
		RetryInterval:    50 * time.Millisecond,
		MaxAdmitAttempts: 5,
		ClaimTTL:         30 * time.Second,
	}
}

// GroupMatcher 参加ユーザーを定員付きのグループに割り当てる
type GroupMatcher interface {
	Join(ctx context.Context, req model.JoinRequest) (*model.JoinResult, error)
	GetGroup(ctx context.Context, eventID, groupID string) (*model.EventGroup, error)
	ListGroups(ctx context.Context, eventID string) ([]*model.EventGroup, error)
	GetGroupRoster(ctx context.Context, eventID, groupID string) ([]string, error)
}

type groupMatcher struct {
	catalog    EventCatalog
	groupsRepo repository.EventGroupsRepository
	registry   ParticipantRegistry
	locks      *keyedLocks
	config     GroupMatcherConfig
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewGroupMatcher GroupMatcherを作成
func NewGroupMatcher(
	catalog EventCatalog,
	groupsRepo repository.EventGroupsRepository,
	registry ParticipantRegistry,
	config GroupMatcherConfig,
	logger *zap.Logger,
) GroupMatcher {
	defaults := DefaultGroupMatcherConfig()
	if config.LockTimeout <= 0 {
		config.LockTimeout = defaults.LockTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.MaxAdmitAttempts <= 0 {
		config.MaxAdmitAttempts = defaults.MaxAdmitAttempts
	}
	if config.ClaimTTL <= 0 {
		config.ClaimTTL = defaults.ClaimTTL
	}

	return &groupMatcher{
		catalog:    catalog,
		groupsRepo: groupsRepo,
		registry:   registry,
		locks:      newKeyedLocks(),
		config:     config,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Join ユーザーをイベントのグループに割り当てる。
// 同じ (user, event) への2回目以降の呼び出しは同じグループIDを返し、状態は変えない。
// 候補検索・追加・新規作成はイベント単位の排他の中で行い、
// 追加自体もリポジトリの compare-and-swap で行うため定員を超えることはない。
func (m *groupMatcher) Join(ctx context.Context, req model.JoinRequest) (result *model.JoinResult, err error) {
	start := time.Now()
	defer func() {
		metrics.JoinDuration.Observe(time.Since(start).Seconds())
		switch {
		case err == nil && result.AlreadyJoined:
			metrics.EventJoins.WithLabelValues(metrics.OutcomeAlreadyJoined).Inc()
		case err == nil:
			metrics.EventJoins.WithLabelValues(metrics.OutcomeJoined).Inc()
		case errors.Is(err, apperror.ErrCapacityRaceLost):
			metrics.EventJoins.WithLabelValues(metrics.OutcomeRaceLost).Inc()
		default:
			metrics.EventJoins.WithLabelValues(metrics.OutcomeError).Inc()
		}
	}()

	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperror.PreconditionFailed("ユーザーIDは必須です")
	}
	sizeClass, err := model.ParseSizeClass(req.SizeClass)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidArgument, "グループサイズが不正です", err)
	}

	// Step 1: 既に参加済みなら何もしない
	if existing, err := m.findParticipation(ctx, req.UserID, req.EventID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	if _, err := m.catalog.GetEvent(ctx, req.EventID); err != nil {
		return nil, err
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     m.config.RetryInterval,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         time.Second,
	}
	b.Reset()

	attempt := 0
	operation := func() (*model.JoinResult, error) {
		attempt++
		res, err := m.joinOnce(ctx, req.UserID, req.EventID, sizeClass)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, apperror.ErrCapacityRaceLost) {
			if attempt < m.config.MaxAttempts {
				metrics.JoinRetries.Inc()
				m.logger.Warn("⚠️ グループ割り当ての競合、再試行します",
					zap.String("event_id", req.EventID),
					zap.String("user_id", req.UserID),
					zap.Int("attempt", attempt),
					zap.Error(err))
			}
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	result, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(m.config.MaxAttempts)))
	if err != nil {
		return nil, err
	}

	m.logger.Info("✅ イベント参加完了",
		zap.String("event_id", req.EventID),
		zap.String("user_id", req.UserID),
		zap.String("group_id", result.GroupID),
		zap.Bool("already_joined", result.AlreadyJoined))
	return result, nil
}

// findParticipation 既存の参加記録があればその結果を返す。なければ nil。
func (m *groupMatcher) findParticipation(ctx context.Context, userID, eventID string) (*model.JoinResult, error) {
	p, err := m.registry.Get(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.JoinResult{GroupID: p.GroupID, AlreadyJoined: true}, nil
}

// joinOnce 排他を取得して Step 2〜5 を1回実行する。
// 席を取る前に (user, event) の参加記録を仮押さえし、席を取ったあとでグループを確定する。
// 確定に失敗しても仮押さえと席は残るため、再試行は同じ席を再利用して参加を完了できる。
func (m *groupMatcher) joinOnce(ctx context.Context, userID, eventID string, sizeClass model.SizeClass) (*model.JoinResult, error) {
	release, err := m.locks.acquire(ctx, eventID, m.config.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	claim, created, err := m.registry.Claim(ctx, userID, eventID, m.claimToken())
	if err != nil {
		return nil, err
	}
	if !claim.Pending() {
		// 排他の外で別リクエストが先に確定している
		return &model.JoinResult{GroupID: claim.GroupID, AlreadyJoined: true}, nil
	}

	// 前回の試行で席だけ確保できている場合はそれを使う
	seat, err := m.groupsRepo.FindByMember(ctx, eventID, userID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("既存の席の確認に失敗: %w", err)
	}
	if seat != nil {
		m.logger.Info("♻️ 確保済みの席で参加を再開します",
			zap.String("event_id", eventID),
			zap.String("user_id", userID),
			zap.String("group_id", seat.ID))
		return m.assign(ctx, claim, seat.ID)
	}

	if !created {
		claim, err = m.takeOver(ctx, claim)
		if err != nil {
			return nil, err
		}
	}

	group, err := m.admitOrSpawn(ctx, userID, eventID, sizeClass)
	if err != nil {
		if releaseErr := m.registry.Release(ctx, claim); releaseErr != nil {
			m.logger.Warn("⚠️ 仮押さえの取り消しに失敗",
				zap.String("event_id", eventID),
				zap.String("user_id", userID),
				zap.Error(releaseErr))
		}
		return nil, err
	}

	// Step 5: 参加記録の確定
	return m.assign(ctx, claim, group.ID)
}

// claimToken 仮押さえの識別に使う時刻。どのストアでも往復で値が変わらない精度に丸める
func (m *groupMatcher) claimToken() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// takeOver 他の処理が作った仮押さえを引き継ぐ。
// 作成から ClaimTTL 以内なら相手がまだ処理中とみなし、再試行に回す。
func (m *groupMatcher) takeOver(ctx context.Context, claim *model.Participant) (*model.Participant, error) {
	age := m.now().Sub(claim.JoinedAt)
	if age < m.config.ClaimTTL {
		return nil, apperror.New(apperror.CodeCapacityRaceLost, "同じユーザーの参加処理が進行中です")
	}

	renewed, err := m.registry.Reclaim(ctx, claim, m.claimToken())
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Wrap(apperror.CodeCapacityRaceLost, "仮押さえの引き継ぎが競合しました", err)
		}
		return nil, err
	}
	m.logger.Warn("⚠️ 放置された仮押さえを引き継ぎます",
		zap.String("event_id", claim.EventID),
		zap.String("user_id", claim.UserID),
		zap.Duration("age", age))
	return renewed, nil
}

// assign 仮押さえにグループを確定する。別プロセスが先に確定していればそちらを正とする
func (m *groupMatcher) assign(ctx context.Context, claim *model.Participant, groupID string) (*model.JoinResult, error) {
	p, err := m.registry.Assign(ctx, claim, groupID)
	if err == nil {
		return &model.JoinResult{GroupID: p.GroupID}, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return nil, err
	}

	existing, findErr := m.findParticipation(ctx, claim.UserID, claim.EventID)
	if findErr != nil || existing == nil {
		return nil, apperror.Wrap(apperror.CodeCapacityRaceLost, "参加記録の確定が競合しました", err)
	}
	if existing.GroupID == groupID {
		return existing, nil
	}
	m.logger.Warn("⚠️ 参加記録は別の処理で確定済みです",
		zap.String("event_id", claim.EventID),
		zap.String("user_id", claim.UserID),
		zap.String("group_id", existing.GroupID),
		zap.String("orphan_group_id", groupID))
	return existing, nil
}

// admitOrSpawn Step 2〜4: 空きグループへの追加、なければ新規作成
func (m *groupMatcher) admitOrSpawn(ctx context.Context, userID, eventID string, sizeClass model.SizeClass) (*model.EventGroup, error) {
	for i := 0; i < m.config.MaxAdmitAttempts; i++ {
		candidates, err := m.groupsRepo.ListOpen(ctx, eventID, sizeClass)
		if err != nil {
			return nil, fmt.Errorf("空きグループの取得に失敗: %w", err)
		}
		if len(candidates) == 0 {
			return m.spawn(ctx, userID, eventID, sizeClass)
		}

		for _, candidate := range candidates {
			if candidate.HasMember(userID) {
				return candidate, nil
			}
			admitted, err := m.groupsRepo.AdmitMember(ctx, eventID, candidate.ID, userID, candidate.CurrentSize)
			if err == nil {
				if admitted.IsFull {
					metrics.GroupsFilled.WithLabelValues(string(admitted.SizeClass)).Inc()
					m.logger.Info("🈵 グループが満員になりました",
						zap.String("event_id", eventID),
						zap.String("group_id", admitted.ID),
						zap.Int("capacity", admitted.Capacity))
				}
				return admitted, nil
			}
			if !errors.Is(err, apperror.ErrConflict) {
				return nil, fmt.Errorf("グループ %s への追加に失敗: %w", candidate.ID, err)
			}
			m.logger.Debug("グループの人数が変わったため次の候補へ",
				zap.String("group_id", candidate.ID),
				zap.Int("expected_size", candidate.CurrentSize))
		}
	}

	return nil, apperror.New(apperror.CodeCapacityRaceLost, "空きグループへの追加が競合し続けました")
}

// spawn 作成者1人の新しいグループを作る
func (m *groupMatcher) spawn(ctx context.Context, userID, eventID string, sizeClass model.SizeClass) (*model.EventGroup, error) {
	group := model.NewEventGroup(m.newID(), eventID, sizeClass, userID, m.now())
	if err := m.groupsRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("グループの作成に失敗: %w", err)
	}

	metrics.GroupsCreated.WithLabelValues(string(sizeClass)).Inc()
	if group.IsFull {
		metrics.GroupsFilled.WithLabelValues(string(sizeClass)).Inc()
	}
	m.logger.Info("🆕 グループ作成",
		zap.String("event_id", eventID),
		zap.String("group_id", group.ID),
		zap.String("size_class", string(sizeClass)),
		zap.Int("capacity", group.Capacity))
	return group, nil
}

func (m *groupMatcher) GetGroup(ctx context.Context, eventID, groupID string) (*model.EventGroup, error) {
	group, err := m.groupsRepo.GetByID(ctx, eventID, groupID)
	if err != nil {
		return nil, fmt.Errorf("グループ %s の取得に失敗: %w", groupID, err)
	}
	return group, nil
}

func (m *groupMatcher) ListGroups(ctx context.Context, eventID string) ([]*model.EventGroup, error) {
	if _, err := m.catalog.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	groups, err := m.groupsRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("グループ一覧の取得に失敗: %w", err)
	}
	model.SortGroupsByAge(groups)
	return groups, nil
}

// GetGroupRoster グループのメンバー一覧（ソート済み）
func (m *groupMatcher) GetGroupRoster(ctx context.Context, eventID, groupID string) ([]string, error) {
	group, err := m.GetGroup(ctx, eventID, groupID)
	if err != nil {
		return nil, err
	}
	roster := append([]string(nil), group.Members...)
	sort.Strings(roster)
	return roster, nil
}
