package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

const (
	eventsCollection = "events"
	groupsCollection = "groups"
)

// FirestoreEventGroupsRepository events/{eventId}/groups/{groupId} に保存する。
// 追加はトランザクション内で読み直してから書き込む。
type FirestoreEventGroupsRepository struct {
	client *firestore.Client
}

func NewFirestoreEventGroupsRepository(client *firestore.Client) repository.EventGroupsRepository {
	return &FirestoreEventGroupsRepository{
		client: client,
	}
}

func (r *FirestoreEventGroupsRepository) groups(eventID string) *firestore.CollectionRef {
	return r.client.Collection(eventsCollection).Doc(eventID).Collection(groupsCollection)
}

func (r *FirestoreEventGroupsRepository) Create(ctx context.Context, group *model.EventGroup) error {
	if _, err := r.groups(group.EventID).Doc(group.ID).Create(ctx, group); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return apperror.New(apperror.CodeAlreadyExists, fmt.Sprintf("グループ %s は既に存在します", group.ID))
		}
		return fmt.Errorf("グループ %s の作成に失敗しました: %w", group.ID, err)
	}
	return nil
}

func (r *FirestoreEventGroupsRepository) GetByID(ctx context.Context, eventID, groupID string) (*model.EventGroup, error) {
	doc, err := r.groups(eventID).Doc(groupID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperror.NotFound(fmt.Sprintf("グループ %s が見つかりません", groupID))
		}
		return nil, fmt.Errorf("グループ %s の取得に失敗しました: %w", groupID, err)
	}
	return groupFromSnapshot(eventID, doc)
}

func (r *FirestoreEventGroupsRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.EventGroup, error) {
	docs, err := r.groups(eventID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("イベント %s のグループ取得に失敗しました: %w", eventID, err)
	}
	return groupsFromSnapshots(eventID, docs, nil)
}

func (r *FirestoreEventGroupsRepository) FindByMember(ctx context.Context, eventID, userID string) (*model.EventGroup, error) {
	docs, err := r.groups(eventID).Where("members", "array-contains", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("ユーザー %s の所属グループ取得に失敗しました: %w", userID, err)
	}
	groups, err := groupsFromSnapshots(eventID, docs, nil)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s はイベント %s のどのグループにも所属していません", userID, eventID))
	}
	return groups[0], nil
}

func (r *FirestoreEventGroupsRepository) ListOpen(ctx context.Context, eventID string, sizeClass model.SizeClass) ([]*model.EventGroup, error) {
	// サイズの絞り込みはメモリ上で行い、複合インデックスを不要にする
	docs, err := r.groups(eventID).Where("isFull", "==", false).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("イベント %s の空きグループ取得に失敗しました: %w", eventID, err)
	}
	return groupsFromSnapshots(eventID, docs, func(g *model.EventGroup) bool {
		return sizeClass.Matches(g.SizeClass)
	})
}

func (r *FirestoreEventGroupsRepository) AdmitMember(ctx context.Context, eventID, groupID, userID string, expectedSize int) (*model.EventGroup, error) {
	ref := r.groups(eventID).Doc(groupID)

	var admitted *model.EventGroup
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return apperror.NotFound(fmt.Sprintf("グループ %s が見つかりません", groupID))
			}
			return err
		}
		group, err := groupFromSnapshot(eventID, doc)
		if err != nil {
			return err
		}
		if !group.Admit(userID, expectedSize) {
			return apperror.New(apperror.CodeConflict,
				fmt.Sprintf("グループ %s の人数が変わっています (expected=%d, actual=%d)", groupID, expectedSize, group.CurrentSize))
		}
		admitted = group
		return tx.Set(ref, group)
	})
	if err != nil {
		return nil, fmt.Errorf("グループ %s へのメンバー追加に失敗しました: %w", groupID, err)
	}
	return admitted, nil
}

func groupFromSnapshot(eventID string, doc *firestore.DocumentSnapshot) (*model.EventGroup, error) {
	var group model.EventGroup
	if err := doc.DataTo(&group); err != nil {
		return nil, fmt.Errorf("グループデータの変換に失敗しました: %w", err)
	}
	group.ID = doc.Ref.ID
	group.EventID = eventID
	group.SizeClass = model.NormalizeSizeClass(group.SizeClass)
	return &group, nil
}

func groupsFromSnapshots(eventID string, docs []*firestore.DocumentSnapshot, keep func(*model.EventGroup) bool) ([]*model.EventGroup, error) {
	groups := make([]*model.EventGroup, 0, len(docs))
	for _, doc := range docs {
		group, err := groupFromSnapshot(eventID, doc)
		if err != nil {
			return nil, err
		}
		if keep != nil && !keep(group) {
			continue
		}
		groups = append(groups, group)
	}
	model.SortGroupsByAge(groups)
	return groups, nil
}
