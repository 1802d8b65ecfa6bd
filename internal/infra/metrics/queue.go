package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(queueSubmissionsTotal, staleRunsResumedTotal) }

var queueSubmissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "export_queue_submissions_total",
		Help: "Export submissions accepted by the queue, labeled by result.",
	},
	[]string{"result"}, // 'enqueued', 'deduped'
)

var staleRunsResumedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "export_stale_runs_resumed_total",
		Help: "Abandoned non-terminal runs re-enqueued by the reconciler.",
	},
)

func IncSubmission(result string) {
	queueSubmissionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncStaleResumed(n int) {
	staleRunsResumedTotal.Add(float64(n))
}
