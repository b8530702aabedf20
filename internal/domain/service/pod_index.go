package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
	"PodMatch-App/internal/infrastructure/metrics"
)

const (
	// podIDPrefix PodIDの接頭辞
	podIDPrefix = "pod_"
	// bucketScale 0.1度単位で丸める。
	// 元実装のコメントは「約1km」としているが、0.1度は赤道で約11km。丸め幅はそのまま維持している。
	bucketScale = 10.0
	// kmPerDegreeLat 緯度1度あたりのkm（赤道基準の平面近似）
	kmPerDegreeLat = 111.32
)

// PodIndex 座標を決定的にPodへ振り分け、近傍Podを検索する
type PodIndex interface {
	BucketID(coord model.Coordinate) string
	UpsertPod(ctx context.Context, coord model.Coordinate, label string) (string, error)
	FindNearbyPods(ctx context.Context, coord model.Coordinate, radiusKm float64) ([]string, error)
	GetPod(ctx context.Context, podID string) (*model.Pod, error)
}

type podIndex struct {
	podsRepo repository.PodsRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewPodIndex PodIndexを作成
func NewPodIndex(podsRepo repository.PodsRepository, logger *zap.Logger) PodIndex {
	return &podIndex{
		podsRepo: podsRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// roundHalfUp 0.1度単位で四捨五入（.5 は常に正の方向へ）
func roundHalfUp(v float64) float64 {
	r := math.Floor(v*bucketScale+0.5) / bucketScale
	if r == 0 {
		return 0 // -0 を正規化
	}
	return r
}

// BucketCenter 座標が属するバケットの中心
func BucketCenter(coord model.Coordinate) model.Coordinate {
	return model.Coordinate{
		Latitude:  roundHalfUp(coord.Latitude),
		Longitude: roundHalfUp(coord.Longitude),
	}
}

// BucketID 座標からPodIDを計算する。I/Oなしの純粋関数。
func BucketID(coord model.Coordinate) string {
	center := BucketCenter(coord)
	return podIDPrefix +
		strconv.FormatFloat(center.Latitude, 'f', -1, 64) + "_" +
		strconv.FormatFloat(center.Longitude, 'f', -1, 64)
}

// SearchBound 半径kmを緯度差・緯度補正した経度差に変換した境界ボックス
func SearchBound(coord model.Coordinate, radiusKm float64) orb.Bound {
	latDelta := radiusKm / kmPerDegreeLat
	lngDelta := radiusKm / (kmPerDegreeLat * math.Cos(coord.Latitude*math.Pi/180))
	return orb.Bound{
		Min: orb.Point{coord.Longitude - lngDelta, coord.Latitude - latDelta},
		Max: orb.Point{coord.Longitude + lngDelta, coord.Latitude + latDelta},
	}
}

func (s *podIndex) BucketID(coord model.Coordinate) string {
	return BucketID(coord)
}

// UpsertPod バケットのPodを作成またはマージする。IDの計算に事前読み込みは不要。
func (s *podIndex) UpsertPod(ctx context.Context, coord model.Coordinate, label string) (string, error) {
	if !coord.IsValid() {
		return "", apperror.InvalidArgument(fmt.Sprintf("座標が有効範囲外です (%.6f, %.6f)", coord.Latitude, coord.Longitude))
	}

	center := BucketCenter(coord)
	pod := &model.Pod{
		ID:        BucketID(coord),
		CenterLat: center.Latitude,
		CenterLng: center.Longitude,
		Label:     label,
		UpdatedAt: s.now(),
	}

	if err := s.podsRepo.UpsertPod(ctx, pod); err != nil {
		return "", fmt.Errorf("Podの保存に失敗: %w", err)
	}
	metrics.PodUpserts.Inc()

	s.logger.Debug("📍 Pod更新", zap.String("pod_id", pod.ID), zap.String("neighborhood", label))
	return pod.ID, nil
}

// FindNearbyPods 境界ボックス内に中心があるPodを返す。
// 全Podを走査するO(P)の実装で、数千Pod程度までを想定している。
// 座標自身のバケットのPodは存在すれば常に含める（半径0ならそれだけになる）。
func (s *podIndex) FindNearbyPods(ctx context.Context, coord model.Coordinate, radiusKm float64) ([]string, error) {
	if !coord.IsValid() {
		return nil, apperror.InvalidArgument(fmt.Sprintf("座標が有効範囲外です (%.6f, %.6f)", coord.Latitude, coord.Longitude))
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm < 0 {
		return nil, apperror.InvalidArgument(fmt.Sprintf("半径が不正です: %v", radiusKm))
	}

	pods, err := s.podsRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("Pod一覧の取得に失敗: %w", err)
	}

	bound := SearchBound(coord, radiusKm)
	ownID := BucketID(coord)
	origin := coord.Point()

	type candidate struct {
		id       string
		distance float64
	}
	var nearby []candidate
	for _, pod := range pods {
		center := pod.Center().Point()
		if pod.ID != ownID && !bound.Contains(center) {
			continue
		}
		nearby = append(nearby, candidate{id: pod.ID, distance: geo.DistanceHaversine(origin, center)})
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].distance == nearby[j].distance {
			return nearby[i].id < nearby[j].id
		}
		return nearby[i].distance < nearby[j].distance
	})

	ids := make([]string, len(nearby))
	for i, c := range nearby {
		ids[i] = c.id
	}

	s.logger.Debug("🔍 近傍Pod検索",
		zap.String("bbox", wkt.MarshalString(bound.ToPolygon())),
		zap.Int("scanned", len(pods)),
		zap.Int("matched", len(ids)))
	return ids, nil
}

func (s *podIndex) GetPod(ctx context.Context, podID string) (*model.Pod, error) {
	pod, err := s.podsRepo.GetByID(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("Pod %s の取得に失敗: %w", podID, err)
	}
	return pod, nil
}
