package metrics

import "github.com/prometheus/client_golang/prometheus"

// Similarity outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeSeedNotFound = "seed_not_found"
	OutcomeDegraded     = "degraded"
	OutcomeUnavailable  = "unavailable"
	OutcomeError        = "error"
)

// Similarity retrieval metrics.
var (
	SimilarityRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "similarity_requests_total",
			Help:      "Similarity calls by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	SimilarityDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "similarity_duration_seconds",
			Help:      "End-to-end similarity call duration (seed resolution plus query)",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	SimilarityHitsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "similarity_hits_returned",
			Help:      "Number of hits returned per similarity call",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"strategy"},
	)

	SimilarityCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "similarity_cache_total",
			Help:      "Similarity page cache hits and misses",
		},
		[]string{"result"},
	)
)

var simMetricsRegistered bool

// RegisterSimilarityMetrics registers similarity metrics. Must be called once from main.
func RegisterSimilarityMetrics() {
	if simMetricsRegistered {
		return
	}
	prometheus.MustRegister(SimilarityRequestsTotal)
	prometheus.MustRegister(SimilarityDuration)
	prometheus.MustRegister(SimilarityHitsReturned)
	prometheus.MustRegister(SimilarityCacheTotal)
	simMetricsRegistered = true
}
