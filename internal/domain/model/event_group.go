package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SizeClass グループサイズの希望
type SizeClass string

const (
	SizeSmall  SizeClass = "SMALL"
	SizeMedium SizeClass = "MEDIUM"
	SizeLarge  SizeClass = "LARGE"
	SizeAny    SizeClass = "ANY"
)

// 定員テーブル（ANY で新規作成する場合は MEDIUM と同じ）
var sizeCapacity = map[SizeClass]int{
	SizeSmall:  4,
	SizeMedium: 10,
	SizeLarge:  30,
	SizeAny:    10,
}

// ParseSizeClass 文字列から SizeClass を取得（大文字小文字は区別しない）
func ParseSizeClass(s string) (SizeClass, error) {
	sc := SizeClass(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := sizeCapacity[sc]; !ok {
		return "", fmt.Errorf("unknown size class %q", s)
	}
	return sc, nil
}

// NormalizeSizeClass 保存済みの値を正規化する（旧データは小文字 small / medium）。
// 不明な値はそのまま返す。
func NormalizeSizeClass(s SizeClass) SizeClass {
	if sc, err := ParseSizeClass(string(s)); err == nil {
		return sc
	}
	return s
}

// Capacity 新規グループ作成時の定員
func (s SizeClass) Capacity() int {
	return sizeCapacity[s]
}

// Matches 検索時にこのサイズ希望でグループに入れるか（ANY はすべてに一致）
func (s SizeClass) Matches(groupClass SizeClass) bool {
	return s == SizeAny || s == groupClass
}

// EventGroup 定員付きのイベント参加グループ
type EventGroup struct {
	ID          string    `json:"id" db:"id" firestore:"-"`
	EventID     string    `json:"event_id" db:"event_id" firestore:"-"`
	SizeClass   SizeClass `json:"size_class" db:"size_class" firestore:"size"`
	Capacity    int       `json:"capacity" db:"capacity" firestore:"capacity"`
	CurrentSize int       `json:"current_size" db:"current_size" firestore:"currentSize"`
	IsFull      bool      `json:"is_full" db:"is_full" firestore:"isFull"`
	Members     []string  `json:"members" db:"members" firestore:"members"`
	CreatedBy   string    `json:"created_by" db:"created_by" firestore:"createdBy"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" firestore:"createdAt"`
}

// NewEventGroup 作成者1人だけのグループを作成
func NewEventGroup(id, eventID string, sizeClass SizeClass, userID string, now time.Time) *EventGroup {
	capacity := sizeClass.Capacity()
	return &EventGroup{
		ID:          id,
		EventID:     eventID,
		SizeClass:   sizeClass,
		Capacity:    capacity,
		CurrentSize: 1,
		IsFull:      capacity == 1,
		Members:     []string{userID},
		CreatedBy:   userID,
		CreatedAt:   now,
	}
}

// HasMember メンバーに含まれるかチェック
func (g *EventGroup) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Admit 1人追加する。expectedSize と現在の人数が一致しない、または満員なら false。
// 追加後に定員に達したら IsFull を立てる（戻らない）。
func (g *EventGroup) Admit(userID string, expectedSize int) bool {
	if g.IsFull || g.CurrentSize != expectedSize || g.CurrentSize >= g.Capacity || g.HasMember(userID) {
		return false
	}
	g.Members = append(g.Members, userID)
	g.CurrentSize++
	g.IsFull = g.CurrentSize == g.Capacity
	return true
}

// Clone ディープコピー
func (g *EventGroup) Clone() *EventGroup {
	c := *g
	c.Members = append([]string(nil), g.Members...)
	return &c
}

// SortGroupsByAge 作成順（同時刻ならID順）に並べる
func SortGroupsByAge(groups []*EventGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].CreatedAt.Before(groups[j].CreatedAt)
	})
}

// JoinRequest イベント参加リクエスト
type JoinRequest struct {
	UserID    string
	EventID   string
	SizeClass string
}

// JoinResult 参加結果
type JoinResult struct {
	GroupID       string `json:"group_id"`
	AlreadyJoined bool   `json:"already_joined"`
}
