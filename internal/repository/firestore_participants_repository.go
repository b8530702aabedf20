package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

const participantsCollection = "participants"

// firestoreParticipant コレクショングループ検索用に userId / eventId も保存する
type firestoreParticipant struct {
	UserID   string    `firestore:"userId"`
	EventID  string    `firestore:"eventId"`
	GroupID  string    `firestore:"groupId"`
	JoinedAt time.Time `firestore:"joinedAt"`
}

func (p *firestoreParticipant) toModel() model.Participant {
	return model.Participant{
		UserID:   p.UserID,
		EventID:  p.EventID,
		GroupID:  p.GroupID,
		JoinedAt: p.JoinedAt,
	}
}

// FirestoreParticipantsRepository events/{eventId}/participants/{userId} に保存する
type FirestoreParticipantsRepository struct {
	client *firestore.Client
}

func NewFirestoreParticipantsRepository(client *firestore.Client) repository.ParticipantsRepository {
	return &FirestoreParticipantsRepository{
		client: client,
	}
}

func (r *FirestoreParticipantsRepository) participants(eventID string) *firestore.CollectionRef {
	return r.client.Collection(eventsCollection).Doc(eventID).Collection(participantsCollection)
}

func (r *FirestoreParticipantsRepository) Create(ctx context.Context, participant *model.Participant) error {
	data := &firestoreParticipant{
		UserID:   participant.UserID,
		EventID:  participant.EventID,
		GroupID:  participant.GroupID,
		JoinedAt: participant.JoinedAt,
	}
	if _, err := r.participants(participant.EventID).Doc(participant.UserID).Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return apperror.New(apperror.CodeAlreadyExists,
				fmt.Sprintf("ユーザー %s はイベント %s に参加済みです", participant.UserID, participant.EventID))
		}
		return fmt.Errorf("参加記録の保存に失敗しました: %w", err)
	}
	return nil
}

func (r *FirestoreParticipantsRepository) Get(ctx context.Context, userID, eventID string) (*model.Participant, error) {
	doc, err := r.participants(eventID).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s のイベント %s への参加記録が見つかりません", userID, eventID))
		}
		return nil, fmt.Errorf("参加記録の取得に失敗しました: %w", err)
	}

	var data firestoreParticipant
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("参加記録の変換に失敗しました: %w", err)
	}
	p := data.toModel()
	return &p, nil
}

func (r *FirestoreParticipantsRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error) {
	docs, err := r.participants(eventID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("イベント %s の参加者取得に失敗しました: %w", eventID, err)
	}
	return participantsFromSnapshots(docs)
}

func (r *FirestoreParticipantsRepository) ListByUser(ctx context.Context, userID string) ([]model.Participant, error) {
	docs, err := r.client.CollectionGroup(participantsCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("ユーザー %s の参加一覧取得に失敗しました: %w", userID, err)
	}
	return participantsFromSnapshots(docs)
}

// AssignGroup トランザクション内で仮押さえを確認してからグループを書き込む
func (r *FirestoreParticipantsRepository) AssignGroup(ctx context.Context, userID, eventID string, claimedAt time.Time, groupID string) (*model.Participant, error) {
	ref := r.participants(eventID).Doc(userID)

	var assigned *model.Participant
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := r.getInTx(tx, ref, userID, eventID)
		if err != nil {
			return err
		}
		switch {
		case current.GroupID == groupID:
		case current.Pending() && current.JoinedAt.Equal(claimedAt):
			current.GroupID = groupID
			if err := tx.Update(ref, []firestore.Update{{Path: "groupId", Value: groupID}}); err != nil {
				return err
			}
		default:
			return apperror.New(apperror.CodeConflict,
				fmt.Sprintf("ユーザー %s のイベント %s への参加記録は別の処理が確定・確保しています", userID, eventID))
		}
		assigned = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("参加記録の確定に失敗しました: %w", err)
	}
	return assigned, nil
}

func (r *FirestoreParticipantsRepository) ReplaceClaim(ctx context.Context, userID, eventID string, claimedAt, newClaimedAt time.Time) error {
	ref := r.participants(eventID).Doc(userID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := r.getInTx(tx, ref, userID, eventID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.New(apperror.CodeConflict, fmt.Sprintf("ユーザー %s のイベント %s の仮押さえは既に変わっています", userID, eventID))
			}
			return err
		}
		if !current.Pending() || !current.JoinedAt.Equal(claimedAt) {
			return apperror.New(apperror.CodeConflict, fmt.Sprintf("ユーザー %s のイベント %s の仮押さえは既に変わっています", userID, eventID))
		}
		return tx.Update(ref, []firestore.Update{{Path: "joinedAt", Value: newClaimedAt}})
	})
	if err != nil {
		return fmt.Errorf("仮押さえの引き継ぎに失敗しました: %w", err)
	}
	return nil
}

func (r *FirestoreParticipantsRepository) DeleteClaim(ctx context.Context, userID, eventID string, claimedAt time.Time) error {
	ref := r.participants(eventID).Doc(userID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := r.getInTx(tx, ref, userID, eventID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil
			}
			return err
		}
		if !current.Pending() || !current.JoinedAt.Equal(claimedAt) {
			return nil
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return fmt.Errorf("仮押さえの取り消しに失敗しました: %w", err)
	}
	return nil
}

func (r *FirestoreParticipantsRepository) getInTx(tx *firestore.Transaction, ref *firestore.DocumentRef, userID, eventID string) (*model.Participant, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s のイベント %s への参加記録が見つかりません", userID, eventID))
		}
		return nil, err
	}
	var data firestoreParticipant
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("参加記録の変換に失敗しました: %w", err)
	}
	p := data.toModel()
	return &p, nil
}

func participantsFromSnapshots(docs []*firestore.DocumentSnapshot) ([]model.Participant, error) {
	participants := make([]model.Participant, 0, len(docs))
	for _, doc := range docs {
		var data firestoreParticipant
		if err := doc.DataTo(&data); err != nil {
			return nil, fmt.Errorf("参加記録の変換に失敗しました: %w", err)
		}
		participants = append(participants, data.toModel())
	}
	return participants, nil
}
