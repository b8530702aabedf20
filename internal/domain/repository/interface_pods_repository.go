package repository

import (
	"context"

	"PodMatch-App/internal/domain/model"
)

// PodsRepository Podとメンバーシップの永続化
type PodsRepository interface {
	// UpsertPod 作成またはマージ（ラベルと更新日時は後勝ち）
	UpsertPod(ctx context.Context, pod *model.Pod) error
	GetByID(ctx context.Context, id string) (*model.Pod, error)
	// GetAll 全Pod（近傍検索は全件走査）
	GetAll(ctx context.Context) ([]model.Pod, error)
	// AddMember 冪等な追加。既存の joinedAt は保持する
	AddMember(ctx context.Context, membership *model.PodMembership) error
	ListMembers(ctx context.Context, podID string) ([]model.PodMembership, error)
}
