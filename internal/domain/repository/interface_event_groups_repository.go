package repository

import (
	"context"

	"PodMatch-App/internal/domain/model"
)

// EventGroupsRepository イベントグループの永続化
type EventGroupsRepository interface {
	Create(ctx context.Context, group *model.EventGroup) error
	GetByID(ctx context.Context, eventID, groupID string) (*model.EventGroup, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.EventGroup, error)
	// FindByMember ユーザーが所属するグループ（満員を含む）。なければ apperror.ErrNotFound
	FindByMember(ctx context.Context, eventID, userID string) (*model.EventGroup, error)
	// ListOpen 満員でないグループを作成順で返す。SizeAny なら全サイズ
	ListOpen(ctx context.Context, eventID string, sizeClass model.SizeClass) ([]*model.EventGroup, error)
	// AdmitMember 現在人数が expectedSize の場合だけ1人追加する（compare-and-swap）。
	// 人数の増加・メンバー追加・満員判定を1ステップで行い、不一致なら apperror.ErrConflict。
	AdmitMember(ctx context.Context, eventID, groupID, userID string, expectedSize int) (*model.EventGroup, error)
}
