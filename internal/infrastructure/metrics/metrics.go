// Package metrics はPodとグループ割り当ての Prometheus メトリクスを定義する。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 参加結果のラベル
const (
	OutcomeJoined        = "joined"
	OutcomeAlreadyJoined = "already_joined"
	OutcomeRaceLost      = "race_lost"
	OutcomeError         = "error"
)

var (
	PodUpserts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "podmatch",
		Name:      "pod_upserts_total",
		Help:      "Number of pod create-or-merge operations",
	})

	LabelFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "podmatch",
		Name:      "neighborhood_fallbacks_total",
		Help:      "Number of location lookups that degraded to the fallback label",
	})

	EventJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "podmatch",
		Name:      "event_joins_total",
		Help:      "Event join requests by outcome",
	}, []string{"outcome"})

	GroupsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "podmatch",
		Name:      "event_groups_created_total",
		Help:      "Event groups spawned by size class",
	}, []string{"size_class"})

	GroupsFilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "podmatch",
		Name:      "event_groups_filled_total",
		Help:      "Event groups that transitioned to FULL by size class",
	}, []string{"size_class"})

	JoinRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "podmatch",
		Name:      "event_join_retries_total",
		Help:      "Internal retries after losing a group serialization race",
	})

	JoinDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "podmatch",
		Name:      "event_join_duration_seconds",
		Help:      "Latency of event join requests",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)
