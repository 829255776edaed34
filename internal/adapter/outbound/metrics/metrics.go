// Package metrics wires the runtime's Prometheus counters, mirroring the
// teacher's internal/adapter/inbound/http/metrics.go promauto.With(reg)
// construction style (SPEC_FULL.md §3).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the runtime records. Pass to
// components that need to observe evaluation, compilation, and cache
// behavior.
type Metrics struct {
	EvaluationsTotal          *prometheus.CounterVec
	CompilationsTotal         prometheus.Counter
	RuleCacheHitsTotal        prometheus.Counter
	EntrypointResolutionTotal *prometheus.CounterVec
	EvaluationDuration        prometheus.Histogram
}

// NewMetrics creates and registers every metric with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "evaluations_total",
				Help:      "Total policy evaluations, by verdict",
			},
			[]string{"result"}, // result=allow/deny
		),
		CompilationsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "compilations_total",
				Help:      "Total rule text compilations (cache misses only)",
			},
		),
		RuleCacheHitsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "rule_cache_hits_total",
				Help:      "Total rule() calls served from the per-evaluation cache",
			},
		),
		EntrypointResolutionTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aegis",
				Name:      "entrypoint_resolutions_total",
				Help:      "Total entrypoint resolution attempts, by outcome",
			},
			[]string{"outcome"}, // outcome=hit/miss
		),
		EvaluationDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "aegis",
				Name:      "evaluation_duration_seconds",
				Help:      "Policy.Evaluate wall-clock duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}
