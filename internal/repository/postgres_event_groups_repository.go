package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/infrastructure/database"
)

const eventGroupColumns = `event_id, id, size_class, capacity, current_size, is_full, members, created_by, created_at`

// PostgresEventGroupsRepository イベントグループのPostgreSQL実装。
// 追加は条件付きUPDATE 1文で行うので、複数プロセスからでも定員を超えない。
type PostgresEventGroupsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresEventGroupsRepository(client *database.PostgreSQLClient) repository.EventGroupsRepository {
	return &PostgresEventGroupsRepository{
		client: client,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEventGroup(row rowScanner) (*model.EventGroup, error) {
	var g model.EventGroup
	var sizeClass string
	var members pq.StringArray
	if err := row.Scan(&g.EventID, &g.ID, &sizeClass, &g.Capacity, &g.CurrentSize, &g.IsFull, &members, &g.CreatedBy, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.SizeClass = model.NormalizeSizeClass(model.SizeClass(sizeClass))
	g.Members = []string(members)
	return &g, nil
}

func (r *PostgresEventGroupsRepository) queryGroups(ctx context.Context, query string, args ...any) ([]*model.EventGroup, error) {
	rows, err := r.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*model.EventGroup
	for rows.Next() {
		g, err := scanEventGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("グループデータスキャンエラー: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *PostgresEventGroupsRepository) Create(ctx context.Context, group *model.EventGroup) error {
	query := `INSERT INTO event_groups (` + eventGroupColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.client.DB.ExecContext(ctx, query,
		group.EventID, group.ID, string(group.SizeClass), group.Capacity, group.CurrentSize,
		group.IsFull, pq.Array(group.Members), group.CreatedBy, group.CreatedAt)
	if err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return apperror.New(apperror.CodeAlreadyExists, fmt.Sprintf("グループ %s は既に存在します", group.ID))
		}
		return fmt.Errorf("グループ %s の作成失敗: %w", group.ID, err)
	}
	return nil
}

func (r *PostgresEventGroupsRepository) GetByID(ctx context.Context, eventID, groupID string) (*model.EventGroup, error) {
	query := `SELECT ` + eventGroupColumns + ` FROM event_groups WHERE event_id = $1 AND id = $2`

	g, err := scanEventGroup(r.client.DB.QueryRowContext(ctx, query, eventID, groupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(fmt.Sprintf("グループ %s が見つかりません", groupID))
		}
		return nil, fmt.Errorf("グループデータの取得失敗: %w", err)
	}
	return g, nil
}

func (r *PostgresEventGroupsRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.EventGroup, error) {
	query := `SELECT ` + eventGroupColumns + ` FROM event_groups WHERE event_id = $1 ORDER BY created_at, id`

	groups, err := r.queryGroups(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベント %s のグループ取得失敗: %w", eventID, err)
	}
	return groups, nil
}

func (r *PostgresEventGroupsRepository) FindByMember(ctx context.Context, eventID, userID string) (*model.EventGroup, error) {
	query := `
		SELECT ` + eventGroupColumns + `
		FROM event_groups
		WHERE event_id = $1 AND $2::text = ANY(members)
		ORDER BY created_at, id
		LIMIT 1`

	g, err := scanEventGroup(r.client.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(fmt.Sprintf("ユーザー %s はイベント %s のどのグループにも所属していません", userID, eventID))
		}
		return nil, fmt.Errorf("所属グループの取得失敗: %w", err)
	}
	return g, nil
}

func (r *PostgresEventGroupsRepository) ListOpen(ctx context.Context, eventID string, sizeClass model.SizeClass) ([]*model.EventGroup, error) {
	query := `
		SELECT ` + eventGroupColumns + `
		FROM event_groups
		WHERE event_id = $1 AND NOT is_full AND ($2 = 'ANY' OR size_class = $2)
		ORDER BY created_at, id`

	groups, err := r.queryGroups(ctx, query, eventID, string(sizeClass))
	if err != nil {
		return nil, fmt.Errorf("イベント %s の空きグループ取得失敗: %w", eventID, err)
	}
	return groups, nil
}

func (r *PostgresEventGroupsRepository) AdmitMember(ctx context.Context, eventID, groupID, userID string, expectedSize int) (*model.EventGroup, error) {
	query := `
		UPDATE event_groups
		SET members = array_append(members, $3::text),
		    current_size = current_size + 1,
		    is_full = (current_size + 1 = capacity)
		WHERE event_id = $1 AND id = $2
		  AND current_size = $4
		  AND NOT is_full
		  AND current_size < capacity
		  AND NOT ($3::text = ANY(members))
		RETURNING ` + eventGroupColumns

	g, err := scanEventGroup(r.client.DB.QueryRowContext(ctx, query, eventID, groupID, userID, expectedSize))
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("グループ %s へのメンバー追加失敗: %w", groupID, err)
	}

	// 更新0件: グループがないのか、人数が変わったのかを区別する
	if _, getErr := r.GetByID(ctx, eventID, groupID); getErr != nil {
		return nil, getErr
	}
	return nil, apperror.New(apperror.CodeConflict,
		fmt.Sprintf("グループ %s の人数が変わっています (expected=%d)", groupID, expectedSize))
}
