package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

type participantKey struct {
	userID  string
	eventID string
}

// MemoryParticipantsRepository プロセス内メモリの参加記録リポジトリ
type MemoryParticipantsRepository struct {
	mu           sync.RWMutex
	participants map[participantKey]model.Participant
}

func NewMemoryParticipantsRepository() repository.ParticipantsRepository {
	return &MemoryParticipantsRepository{
		participants: make(map[participantKey]model.Participant),
	}
}

func (r *MemoryParticipantsRepository) Create(ctx context.Context, participant *model.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey{userID: participant.UserID, eventID: participant.EventID}
	if _, exists := r.participants[key]; exists {
		return apperror.New(apperror.CodeAlreadyExists,
			fmt.Sprintf("ユーザー %s はイベント %s に参加済みです", participant.UserID, participant.EventID))
	}
	r.participants[key] = *participant
	return nil
}

func (r *MemoryParticipantsRepository) Get(ctx context.Context, userID, eventID string) (*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[participantKey{userID: userID, eventID: eventID}]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s のイベント %s への参加記録が見つかりません", userID, eventID))
	}
	return &p, nil
}

func (r *MemoryParticipantsRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []model.Participant
	for key, p := range r.participants {
		if key.eventID == eventID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *MemoryParticipantsRepository) ListByUser(ctx context.Context, userID string) ([]model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []model.Participant
	for key, p := range r.participants {
		if key.userID == userID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *MemoryParticipantsRepository) AssignGroup(ctx context.Context, userID, eventID string, claimedAt time.Time, groupID string) (*model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey{userID: userID, eventID: eventID}
	p, ok := r.participants[key]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s のイベント %s への参加記録が見つかりません", userID, eventID))
	}
	switch {
	case p.GroupID == groupID:
		return &p, nil
	case p.Pending() && p.JoinedAt.Equal(claimedAt):
		p.GroupID = groupID
		r.participants[key] = p
		return &p, nil
	default:
		return nil, apperror.New(apperror.CodeConflict,
			fmt.Sprintf("ユーザー %s のイベント %s への参加記録は別の処理が確定・確保しています", userID, eventID))
	}
}

func (r *MemoryParticipantsRepository) ReplaceClaim(ctx context.Context, userID, eventID string, claimedAt, newClaimedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey{userID: userID, eventID: eventID}
	p, ok := r.participants[key]
	if !ok || !p.Pending() || !p.JoinedAt.Equal(claimedAt) {
		return apperror.New(apperror.CodeConflict,
			fmt.Sprintf("ユーザー %s のイベント %s の仮押さえは既に変わっています", userID, eventID))
	}
	p.JoinedAt = newClaimedAt
	r.participants[key] = p
	return nil
}

func (r *MemoryParticipantsRepository) DeleteClaim(ctx context.Context, userID, eventID string, claimedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey{userID: userID, eventID: eventID}
	if p, ok := r.participants[key]; ok && p.Pending() && p.JoinedAt.Equal(claimedAt) {
		delete(r.participants, key)
	}
	return nil
}
