package repository

import (
	"context"
	"fmt"
	"sync"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

// MemoryEventGroupsRepository プロセス内メモリのグループリポジトリ。
// AdmitMember はロック内で比較と更新を行う。
type MemoryEventGroupsRepository struct {
	mu     sync.Mutex
	groups map[string]map[string]*model.EventGroup // eventID -> groupID -> group
}

func NewMemoryEventGroupsRepository() repository.EventGroupsRepository {
	return &MemoryEventGroupsRepository{
		groups: make(map[string]map[string]*model.EventGroup),
	}
}

func (r *MemoryEventGroupsRepository) Create(ctx context.Context, group *model.EventGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEvent, ok := r.groups[group.EventID]
	if !ok {
		byEvent = make(map[string]*model.EventGroup)
		r.groups[group.EventID] = byEvent
	}
	if _, exists := byEvent[group.ID]; exists {
		return apperror.New(apperror.CodeAlreadyExists, fmt.Sprintf("グループ %s は既に存在します", group.ID))
	}
	byEvent[group.ID] = group.Clone()
	return nil
}

func (r *MemoryEventGroupsRepository) GetByID(ctx context.Context, eventID, groupID string) (*model.EventGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[eventID][groupID]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("グループ %s が見つかりません", groupID))
	}
	return group.Clone(), nil
}

func (r *MemoryEventGroupsRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.EventGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*model.EventGroup, 0, len(r.groups[eventID]))
	for _, g := range r.groups[eventID] {
		result = append(result, g.Clone())
	}
	model.SortGroupsByAge(result)
	return result, nil
}

func (r *MemoryEventGroupsRepository) FindByMember(ctx context.Context, eventID, userID string) (*model.EventGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []*model.EventGroup
	for _, g := range r.groups[eventID] {
		if g.HasMember(userID) {
			found = append(found, g)
		}
	}
	if len(found) == 0 {
		return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s はイベント %s のどのグループにも所属していません", userID, eventID))
	}
	model.SortGroupsByAge(found)
	return found[0].Clone(), nil
}

func (r *MemoryEventGroupsRepository) ListOpen(ctx context.Context, eventID string, sizeClass model.SizeClass) ([]*model.EventGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*model.EventGroup
	for _, g := range r.groups[eventID] {
		if g.IsFull || !sizeClass.Matches(g.SizeClass) {
			continue
		}
		result = append(result, g.Clone())
	}
	model.SortGroupsByAge(result)
	return result, nil
}

func (r *MemoryEventGroupsRepository) AdmitMember(ctx context.Context, eventID, groupID, userID string, expectedSize int) (*model.EventGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[eventID][groupID]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("グループ %s が見つかりません", groupID))
	}
	if !group.Admit(userID, expectedSize) {
		return nil, apperror.New(apperror.CodeConflict,
			fmt.Sprintf("グループ %s の人数が変わっています (expected=%d, actual=%d, full=%t)", groupID, expectedSize, group.CurrentSize, group.IsFull))
	}
	return group.Clone(), nil
}
