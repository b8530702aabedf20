package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/infrastructure/database"
)

// SupabaseEventsTable イベントカタログのテーブル名
const SupabaseEventsTable = "events"

type SupabaseEventsRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseEventsRepository(client *database.SupabaseClient) repository.EventsRepository {
	return &SupabaseEventsRepository{
		client: client,
	}
}

func (r *SupabaseEventsRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	data, _, err := r.client.GetClient().From(SupabaseEventsTable).Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("イベントデータの取得失敗: %w", err)
	}

	events, err := decodeEventRows(data)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperror.NotFound(fmt.Sprintf("イベント %s が見つかりません", id))
	}
	return &events[0], nil
}

func (r *SupabaseEventsRepository) GetAll(ctx context.Context) ([]model.Event, error) {
	data, _, err := r.client.GetClient().From(SupabaseEventsTable).Select("*", "exact", false).Execute()
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得失敗: %w", err)
	}
	return decodeEventRows(data)
}

func decodeEventRows(data []byte) ([]model.Event, error) {
	var rows []EventRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("イベントデータのJSONアンマーシャル失敗: %w", err)
	}

	events := make([]model.Event, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].ToEvent())
	}
	return events, nil
}

// Timestamp PostgRESTが返す timestamptz / timestamp / date のいずれも受け付ける
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("日時の形式が不正です: %s", s)
}
