package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(exportsProcessedTotal, exportDurationSeconds, exportArtifactBytes) }

var exportsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "exports_processed_total",
		Help: "Total number of export workflows finished, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var exportDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "export_duration_seconds",
		Help:    "End-to-end export workflow duration distribution.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	},
)

var exportArtifactBytes = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "export_artifact_bytes",
		Help:    "Size distribution of completed export artifacts.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	},
)

func IncExport(status string) {
	exportsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveExportDuration(seconds float64) {
	exportDurationSeconds.Observe(seconds)
}

func ObserveArtifactSize(bytes int) {
	exportArtifactBytes.Observe(float64(bytes))
}
