package repository

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

const (
	podsCollection    = "pods"
	membersCollection = "members"
)

// FirestorePodsRepository pods/{podId} と pods/{podId}/members/{userId} に保存する
type FirestorePodsRepository struct {
	client *firestore.Client
}

func NewFirestorePodsRepository(client *firestore.Client) repository.PodsRepository {
	return &FirestorePodsRepository{
		client: client,
	}
}

func (r *FirestorePodsRepository) UpsertPod(ctx context.Context, pod *model.Pod) error {
	data := map[string]interface{}{
		"centerLatitude":  pod.CenterLat,
		"centerLongitude": pod.CenterLng,
		"neighborhood":    pod.Label,
		"updatedAt":       pod.UpdatedAt,
	}
	if _, err := r.client.Collection(podsCollection).Doc(pod.ID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("Pod %s の保存に失敗しました: %w", pod.ID, err)
	}
	return nil
}

func (r *FirestorePodsRepository) GetByID(ctx context.Context, id string) (*model.Pod, error) {
	doc, err := r.client.Collection(podsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperror.NotFound(fmt.Sprintf("Pod %s が見つかりません", id))
		}
		return nil, fmt.Errorf("Pod %s の取得に失敗しました: %w", id, err)
	}
	return podFromSnapshot(doc)
}

func (r *FirestorePodsRepository) GetAll(ctx context.Context) ([]model.Pod, error) {
	docs, err := r.client.Collection(podsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("Pod一覧の取得に失敗しました: %w", err)
	}

	pods := make([]model.Pod, 0, len(docs))
	for _, doc := range docs {
		pod, err := podFromSnapshot(doc)
		if err != nil {
			return nil, err
		}
		pods = append(pods, *pod)
	}
	sort.Slice(pods, func(i, j int) bool { return pods[i].ID < pods[j].ID })
	return pods, nil
}

func (r *FirestorePodsRepository) AddMember(ctx context.Context, membership *model.PodMembership) error {
	if _, err := r.GetByID(ctx, membership.PodID); err != nil {
		return err
	}

	ref := r.client.Collection(podsCollection).Doc(membership.PodID).Collection(membersCollection).Doc(membership.UserID)
	if _, err := ref.Create(ctx, membership); err != nil {
		// 既存メンバーの joinedAt は保持する
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("Podメンバーの保存に失敗しました: %w", err)
	}
	return nil
}

func (r *FirestorePodsRepository) ListMembers(ctx context.Context, podID string) ([]model.PodMembership, error) {
	docs, err := r.client.Collection(podsCollection).Doc(podID).Collection(membersCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("Pod %s のメンバー取得に失敗しました: %w", podID, err)
	}

	members := make([]model.PodMembership, 0, len(docs))
	for _, doc := range docs {
		var m model.PodMembership
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("Podメンバーの変換に失敗しました: %w", err)
		}
		m.PodID = podID
		m.UserID = doc.Ref.ID
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func podFromSnapshot(doc *firestore.DocumentSnapshot) (*model.Pod, error) {
	var pod model.Pod
	if err := doc.DataTo(&pod); err != nil {
		return nil, fmt.Errorf("Podデータの変換に失敗しました: %w", err)
	}
	pod.ID = doc.Ref.ID
	return &pod, nil
}
