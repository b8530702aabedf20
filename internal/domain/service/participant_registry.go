package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

// ParticipantRegistry ユーザー×イベントごとの所属グループの正本。
// 参加処理はまずグループ未定の仮押さえを作り、席を確保してからグループを確定する。
// 仮押さえは Get / List には現れない。
type ParticipantRegistry interface {
	Get(ctx context.Context, userID, eventID string) (*model.Participant, error)
	ListForEvent(ctx context.Context, eventID string) ([]model.Participant, error)
	ListForUser(ctx context.Context, userID string) ([]model.Participant, error)
	// Record 確定済みの参加記録を1度だけ作成する。既存なら apperror.ErrAlreadyExists（付け替えはしない）
	Record(ctx context.Context, participant *model.Participant) error
	// Claim (user, event) を仮押さえする。既に行があれば作らずにその行を返す（created=false）
	Claim(ctx context.Context, userID, eventID string, at time.Time) (claim *model.Participant, created bool, err error)
	// Assign 仮押さえにグループを確定する
	Assign(ctx context.Context, claim *model.Participant, groupID string) (*model.Participant, error)
	// Reclaim 放置された仮押さえを引き継ぐ。他の処理が先に動いていれば apperror.ErrConflict
	Reclaim(ctx context.Context, claim *model.Participant, at time.Time) (*model.Participant, error)
	// Release 席を取る前に失敗した仮押さえを取り消す
	Release(ctx context.Context, claim *model.Participant) error
}

type participantRegistry struct {
	participantsRepo repository.ParticipantsRepository
}

// NewParticipantRegistry ParticipantRegistryを作成
func NewParticipantRegistry(participantsRepo repository.ParticipantsRepository) ParticipantRegistry {
	return &participantRegistry{participantsRepo: participantsRepo}
}

func (r *participantRegistry) Get(ctx context.Context, userID, eventID string) (*model.Participant, error) {
	p, err := r.participantsRepo.Get(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("参加記録の取得に失敗 (user=%s, event=%s): %w", userID, eventID, err)
	}
	if p.Pending() {
		return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s のイベント %s への参加は処理中です", userID, eventID))
	}
	return p, nil
}

func (r *participantRegistry) ListForEvent(ctx context.Context, eventID string) ([]model.Participant, error) {
	participants, err := r.participantsRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベント %s の参加者一覧の取得に失敗: %w", eventID, err)
	}
	participants = withoutPending(participants)
	sortByJoinedAt(participants)
	return participants, nil
}

func (r *participantRegistry) ListForUser(ctx context.Context, userID string) ([]model.Participant, error) {
	participants, err := r.participantsRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー %s の参加一覧の取得に失敗: %w", userID, err)
	}
	participants = withoutPending(participants)
	sortByJoinedAt(participants)
	return participants, nil
}

func (r *participantRegistry) Record(ctx context.Context, participant *model.Participant) error {
	if participant.UserID == "" || participant.EventID == "" || participant.GroupID == "" {
		return apperror.InvalidArgument("参加記録にはユーザー・イベント・グループが必要です")
	}
	if err := r.participantsRepo.Create(ctx, participant); err != nil {
		return fmt.Errorf("参加記録の保存に失敗: %w", err)
	}
	return nil
}

func (r *participantRegistry) Claim(ctx context.Context, userID, eventID string, at time.Time) (*model.Participant, bool, error) {
	claim := &model.Participant{UserID: userID, EventID: eventID, JoinedAt: at}
	err := r.participantsRepo.Create(ctx, claim)
	if err == nil {
		return claim, true, nil
	}
	if !errors.Is(err, apperror.ErrAlreadyExists) {
		return nil, false, fmt.Errorf("参加枠の仮押さえに失敗: %w", err)
	}

	existing, err := r.participantsRepo.Get(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// 取り消された直後
			return nil, false, apperror.New(apperror.CodeCapacityRaceLost, "参加枠の仮押さえが競合しました")
		}
		return nil, false, fmt.Errorf("参加記録の取得に失敗 (user=%s, event=%s): %w", userID, eventID, err)
	}
	return existing, false, nil
}

func (r *participantRegistry) Assign(ctx context.Context, claim *model.Participant, groupID string) (*model.Participant, error) {
	p, err := r.participantsRepo.AssignGroup(ctx, claim.UserID, claim.EventID, claim.JoinedAt, groupID)
	if err != nil {
		return nil, fmt.Errorf("参加記録の確定に失敗: %w", err)
	}
	return p, nil
}

func (r *participantRegistry) Reclaim(ctx context.Context, claim *model.Participant, at time.Time) (*model.Participant, error) {
	if err := r.participantsRepo.ReplaceClaim(ctx, claim.UserID, claim.EventID, claim.JoinedAt, at); err != nil {
		return nil, fmt.Errorf("仮押さえの引き継ぎに失敗: %w", err)
	}
	renewed := *claim
	renewed.JoinedAt = at
	return &renewed, nil
}

func (r *participantRegistry) Release(ctx context.Context, claim *model.Participant) error {
	if err := r.participantsRepo.DeleteClaim(ctx, claim.UserID, claim.EventID, claim.JoinedAt); err != nil {
		return fmt.Errorf("仮押さえの取り消しに失敗: %w", err)
	}
	return nil
}

func withoutPending(participants []model.Participant) []model.Participant {
	kept := participants[:0]
	for _, p := range participants {
		if !p.Pending() {
			kept = append(kept, p)
		}
	}
	return kept
}

func sortByJoinedAt(participants []model.Participant) {
	sort.SliceStable(participants, func(i, j int) bool {
		if participants[i].JoinedAt.Equal(participants[j].JoinedAt) {
			if participants[i].UserID == participants[j].UserID {
				return participants[i].EventID < participants[j].EventID
			}
			return participants[i].UserID < participants[j].UserID
		}
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
}
