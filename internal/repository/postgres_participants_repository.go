package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/infrastructure/database"
)

type PostgresParticipantsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresParticipantsRepository(client *database.PostgreSQLClient) repository.ParticipantsRepository {
	return &PostgresParticipantsRepository{
		client: client,
	}
}

func (r *PostgresParticipantsRepository) Create(ctx context.Context, participant *model.Participant) error {
	query := `
		INSERT INTO participants (user_id, event_id, group_id, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO NOTHING`

	res, err := r.client.DB.ExecContext(ctx, query, participant.UserID, participant.EventID, participant.GroupID, participant.JoinedAt)
	if err != nil {
		return fmt.Errorf("参加記録の保存失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("参加記録の保存結果の確認失敗: %w", err)
	}
	if affected == 0 {
		return apperror.New(apperror.CodeAlreadyExists,
			fmt.Sprintf("ユーザー %s はイベント %s に参加済みです", participant.UserID, participant.EventID))
	}
	return nil
}

func (r *PostgresParticipantsRepository) Get(ctx context.Context, userID, eventID string) (*model.Participant, error) {
	query := `SELECT user_id, event_id, group_id, joined_at FROM participants WHERE user_id = $1 AND event_id = $2`

	var p model.Participant
	err := r.client.DB.QueryRowContext(ctx, query, userID, eventID).Scan(&p.UserID, &p.EventID, &p.GroupID, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s のイベント %s への参加記録が見つかりません", userID, eventID))
		}
		return nil, fmt.Errorf("参加記録の取得失敗: %w", err)
	}
	return &p, nil
}

func (r *PostgresParticipantsRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error) {
	query := `SELECT user_id, event_id, group_id, joined_at FROM participants WHERE event_id = $1 ORDER BY joined_at, user_id`
	return r.list(ctx, query, eventID)
}

func (r *PostgresParticipantsRepository) ListByUser(ctx context.Context, userID string) ([]model.Participant, error) {
	query := `SELECT user_id, event_id, group_id, joined_at FROM participants WHERE user_id = $1 ORDER BY joined_at, event_id`
	return r.list(ctx, query, userID)
}

// AssignGroup 仮押さえの行だけを条件付きUPDATEで確定する
func (r *PostgresParticipantsRepository) AssignGroup(ctx context.Context, userID, eventID string, claimedAt time.Time, groupID string) (*model.Participant, error) {
	query := `
		UPDATE participants
		SET group_id = $4
		WHERE user_id = $1 AND event_id = $2 AND group_id = '' AND joined_at = $3
		RETURNING user_id, event_id, group_id, joined_at`

	var p model.Participant
	err := r.client.DB.QueryRowContext(ctx, query, userID, eventID, claimedAt, groupID).Scan(&p.UserID, &p.EventID, &p.GroupID, &p.JoinedAt)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("参加記録の確定失敗: %w", err)
	}

	// 更新0件: 既に同じグループで確定済みなら成功として扱う
	current, getErr := r.Get(ctx, userID, eventID)
	if getErr != nil {
		return nil, getErr
	}
	if current.GroupID == groupID {
		return current, nil
	}
	return nil, apperror.New(apperror.CodeConflict,
		fmt.Sprintf("ユーザー %s のイベント %s への参加記録は別の処理が確定・確保しています", userID, eventID))
}

func (r *PostgresParticipantsRepository) ReplaceClaim(ctx context.Context, userID, eventID string, claimedAt, newClaimedAt time.Time) error {
	query := `
		UPDATE participants
		SET joined_at = $4
		WHERE user_id = $1 AND event_id = $2 AND group_id = '' AND joined_at = $3`

	res, err := r.client.DB.ExecContext(ctx, query, userID, eventID, claimedAt, newClaimedAt)
	if err != nil {
		return fmt.Errorf("仮押さえの引き継ぎ失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("仮押さえの引き継ぎ結果の確認失敗: %w", err)
	}
	if affected == 0 {
		return apperror.New(apperror.CodeConflict,
			fmt.Sprintf("ユーザー %s のイベント %s の仮押さえは既に変わっています", userID, eventID))
	}
	return nil
}

func (r *PostgresParticipantsRepository) DeleteClaim(ctx context.Context, userID, eventID string, claimedAt time.Time) error {
	query := `DELETE FROM participants WHERE user_id = $1 AND event_id = $2 AND group_id = '' AND joined_at = $3`

	if _, err := r.client.DB.ExecContext(ctx, query, userID, eventID, claimedAt); err != nil {
		return fmt.Errorf("仮押さえの取り消し失敗: %w", err)
	}
	return nil
}

func (r *PostgresParticipantsRepository) list(ctx context.Context, query string, arg string) ([]model.Participant, error) {
	rows, err := r.client.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("参加記録一覧の取得失敗: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.UserID, &p.EventID, &p.GroupID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("参加記録スキャンエラー: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("参加記録一覧の読み込みエラー: %w", err)
	}
	return participants, nil
}
