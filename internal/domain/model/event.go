package model

import "time"

// カテゴリ定数
const (
	CategoryLearn   = "Learn"
	CategoryConnect = "Connect"
	CategoryFix     = "Fix"
)

// IsValidCategory カテゴリが既知の値かチェック
func IsValidCategory(category string) bool {
	switch category {
	case CategoryLearn, CategoryConnect, CategoryFix:
		return true
	}
	return false
}

// Event イベントカタログのレコード（このサービスからは読み取り専用）
type Event struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Category    string     `json:"category" db:"category"` // Learn / Connect / Fix
	Venue       string     `json:"location" db:"location"` // 会場名
	Coordinate  Coordinate `json:"coordinate" db:"-"`
	StartsAt    time.Time  `json:"date" db:"date"`
	EndsAt      *time.Time `json:"end_date,omitempty" db:"end_date"`
	Source      string     `json:"source,omitempty" db:"source"`
	ImageURL    string     `json:"image_url,omitempty" db:"image_url"`
	URL         string     `json:"url,omitempty" db:"url"`
	Tags        []string   `json:"tags" db:"tags"`
	Price       *float64   `json:"price,omitempty" db:"price"`
}

// IsOpen 開始日時が過去でなければ参加受付中とみなす（日時未設定も受付中）
func (e *Event) IsOpen(now time.Time) bool {
	return e.StartsAt.IsZero() || !e.StartsAt.Before(now)
}

// EventFilter イベント一覧の絞り込み条件
type EventFilter struct {
	Category string      // 空なら全カテゴリ
	Near     *Coordinate // nil なら距離で絞り込まない
	RadiusKm float64     // 0 以下ならデフォルト半径
}
