package model

import "time"

// Participant ユーザー・イベント・グループの対応（ユーザー×イベントで1件のみ）
type Participant struct {
	UserID   string    `json:"user_id" db:"user_id" firestore:"-"`
	EventID  string    `json:"event_id" db:"event_id" firestore:"-"`
	GroupID  string    `json:"group_id" db:"group_id" firestore:"groupId"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at" firestore:"joinedAt"`
}

// Pending グループ確定前の仮押さえかどうか。
// 仮押さえでは JoinedAt が押さえた時刻で、後続の確定・引き継ぎの照合に使う。
func (p *Participant) Pending() bool {
	return p.GroupID == ""
}

// UserEvent ユーザーが参加しているイベントと所属グループ
type UserEvent struct {
	Event    Event     `json:"event"`
	GroupID  string    `json:"group_id"`
	JoinedAt time.Time `json:"joined_at"`
}
