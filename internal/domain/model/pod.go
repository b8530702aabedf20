package model

import "time"

// Pod 丸めた座標で決まる近隣クラスタ
type Pod struct {
	ID        string    `json:"id" db:"id" firestore:"-"`                             // バケットID（pod_<lat>_<lng>）
	CenterLat float64   `json:"center_lat" db:"center_lat" firestore:"centerLatitude"` // 中心緯度
	CenterLng float64   `json:"center_lng" db:"center_lng" firestore:"centerLongitude"` // 中心経度
	Label     string    `json:"neighborhood" db:"label" firestore:"neighborhood"`      // 表示用のエリア名（後勝ち）
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" firestore:"updatedAt"`
}

// Center 中心座標を取得
func (p *Pod) Center() Coordinate {
	return Coordinate{Latitude: p.CenterLat, Longitude: p.CenterLng}
}

// PodMembership ユーザーとPodの関連（追記のみ）
type PodMembership struct {
	PodID    string    `json:"pod_id" db:"pod_id" firestore:"-"`
	UserID   string    `json:"user_id" db:"user_id" firestore:"-"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at" firestore:"joinedAt"`
}

// LocationUpdate 位置情報更新の結果
type LocationUpdate struct {
	PodID        string `json:"pod_id"`
	Neighborhood string `json:"neighborhood"`
}
