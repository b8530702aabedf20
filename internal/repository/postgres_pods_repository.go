package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/infrastructure/database"
)

type PostgresPodsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresPodsRepository(client *database.PostgreSQLClient) repository.PodsRepository {
	return &PostgresPodsRepository{
		client: client,
	}
}

func (r *PostgresPodsRepository) UpsertPod(ctx context.Context, pod *model.Pod) error {
	// 中心座標はIDから決まるので、競合時はラベルと更新日時だけ上書きする
	query := `
		INSERT INTO pods (id, center_latitude, center_longitude, neighborhood, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET neighborhood = EXCLUDED.neighborhood, updated_at = EXCLUDED.updated_at`

	_, err := r.client.DB.ExecContext(ctx, query, pod.ID, pod.CenterLat, pod.CenterLng, pod.Label, pod.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Pod %s の保存失敗: %w", pod.ID, err)
	}
	return nil
}

func (r *PostgresPodsRepository) GetByID(ctx context.Context, id string) (*model.Pod, error) {
	query := `SELECT id, center_latitude, center_longitude, neighborhood, updated_at FROM pods WHERE id = $1`

	var pod model.Pod
	err := r.client.DB.QueryRowContext(ctx, query, id).
		Scan(&pod.ID, &pod.CenterLat, &pod.CenterLng, &pod.Label, &pod.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(fmt.Sprintf("Pod %s が見つかりません", id))
		}
		return nil, fmt.Errorf("Podデータの取得失敗: %w", err)
	}
	return &pod, nil
}

func (r *PostgresPodsRepository) GetAll(ctx context.Context) ([]model.Pod, error) {
	query := `SELECT id, center_latitude, center_longitude, neighborhood, updated_at FROM pods ORDER BY id`

	rows, err := r.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Pod一覧の取得失敗: %w", err)
	}
	defer rows.Close()

	var pods []model.Pod
	for rows.Next() {
		var pod model.Pod
		if err := rows.Scan(&pod.ID, &pod.CenterLat, &pod.CenterLng, &pod.Label, &pod.UpdatedAt); err != nil {
			return nil, fmt.Errorf("Podデータスキャンエラー: %w", err)
		}
		pods = append(pods, pod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Pod一覧の読み込みエラー: %w", err)
	}
	return pods, nil
}

func (r *PostgresPodsRepository) AddMember(ctx context.Context, membership *model.PodMembership) error {
	// 既存の joined_at を保持するため DO NOTHING
	query := `
		INSERT INTO pod_members (pod_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (pod_id, user_id) DO NOTHING`

	_, err := r.client.DB.ExecContext(ctx, query, membership.PodID, membership.UserID, membership.JoinedAt)
	if err != nil {
		if isPQCode(err, pqForeignKeyViolation) {
			return apperror.NotFound(fmt.Sprintf("Pod %s が見つかりません", membership.PodID))
		}
		return fmt.Errorf("Podメンバーの保存失敗: %w", err)
	}
	return nil
}

func (r *PostgresPodsRepository) ListMembers(ctx context.Context, podID string) ([]model.PodMembership, error) {
	query := `SELECT pod_id, user_id, joined_at FROM pod_members WHERE pod_id = $1 ORDER BY user_id`

	rows, err := r.client.DB.QueryContext(ctx, query, podID)
	if err != nil {
		return nil, fmt.Errorf("Pod %s のメンバー取得失敗: %w", podID, err)
	}
	defer rows.Close()

	var members []model.PodMembership
	for rows.Next() {
		var m model.PodMembership
		if err := rows.Scan(&m.PodID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("Podメンバースキャンエラー: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Podメンバーの読み込みエラー: %w", err)
	}
	return members, nil
}
