package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion metrics.
var (
	IngestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_rows_total",
			Help:      "Company rows handled by the ingestion job",
		},
		[]string{"outcome"}, // indexed / failed / skipped
	)

	IngestRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of completed ingestion runs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	IngestState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "ingest_state",
			Help:      "1 for the current ingestion job state, 0 otherwise",
		},
		[]string{"state"},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRowsTotal)
	prometheus.MustRegister(IngestRunDuration)
	prometheus.MustRegister(IngestState)
	ingestMetricsRegistered = true
}
