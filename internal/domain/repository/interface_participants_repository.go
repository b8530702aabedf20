package repository

import (
	"context"
	"time"

	"PodMatch-App/internal/domain/model"
)

// ParticipantsRepository 参加記録の永続化。
// GroupID が空の行はグループ確定前の仮押さえで、claimedAt（JoinedAt）で照合する。
type ParticipantsRepository interface {
	// Create 存在しない場合のみ作成。既に存在すれば apperror.ErrAlreadyExists
	Create(ctx context.Context, participant *model.Participant) error
	Get(ctx context.Context, userID, eventID string) (*model.Participant, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error)
	ListByUser(ctx context.Context, userID string) ([]model.Participant, error)
	// AssignGroup 仮押さえ（claimedAt 一致）にグループを1度だけ設定する。
	// 既に同じグループなら成功、別グループや別の仮押さえなら apperror.ErrConflict
	AssignGroup(ctx context.Context, userID, eventID string, claimedAt time.Time, groupID string) (*model.Participant, error)
	// ReplaceClaim 古い仮押さえを新しい時刻で引き継ぐ。一致しなければ apperror.ErrConflict
	ReplaceClaim(ctx context.Context, userID, eventID string, claimedAt, newClaimedAt time.Time) error
	// DeleteClaim 仮押さえを取り消す。確定済みや別の仮押さえには何もしない
	DeleteClaim(ctx context.Context, userID, eventID string, claimedAt time.Time) error
}
