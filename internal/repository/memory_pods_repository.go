package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

// MemoryPodsRepository プロセス内メモリに保持するPodリポジトリ（デモ・テスト用）
type MemoryPodsRepository struct {
	mu      sync.RWMutex
	pods    map[string]model.Pod
	members map[string]map[string]model.PodMembership // podID -> userID -> membership
}

func NewMemoryPodsRepository() repository.PodsRepository {
	return &MemoryPodsRepository{
		pods:    make(map[string]model.Pod),
		members: make(map[string]map[string]model.PodMembership),
	}
}

func (r *MemoryPodsRepository) UpsertPod(ctx context.Context, pod *model.Pod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// ラベルと更新日時は後勝ち。中心座標はIDから決まるので上書きしても同じ
	r.pods[pod.ID] = *pod
	return nil
}

func (r *MemoryPodsRepository) GetByID(ctx context.Context, id string) (*model.Pod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pod, ok := r.pods[id]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("Pod %s が見つかりません", id))
	}
	return &pod, nil
}

func (r *MemoryPodsRepository) GetAll(ctx context.Context) ([]model.Pod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pods := make([]model.Pod, 0, len(r.pods))
	for _, pod := range r.pods {
		pods = append(pods, pod)
	}
	sort.Slice(pods, func(i, j int) bool { return pods[i].ID < pods[j].ID })
	return pods, nil
}

func (r *MemoryPodsRepository) AddMember(ctx context.Context, membership *model.PodMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pods[membership.PodID]; !ok {
		return apperror.NotFound(fmt.Sprintf("Pod %s が見つかりません", membership.PodID))
	}
	members, ok := r.members[membership.PodID]
	if !ok {
		members = make(map[string]model.PodMembership)
		r.members[membership.PodID] = members
	}
	if _, exists := members[membership.UserID]; exists {
		return nil
	}
	members[membership.UserID] = *membership
	return nil
}

func (r *MemoryPodsRepository) ListMembers(ctx context.Context, podID string) ([]model.PodMembership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.members[podID]
	result := make([]model.PodMembership, 0, len(members))
	for _, m := range members {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}
