package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	quotaDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repurposer",
			Subsystem: "quota",
			Name:      "decisions_total",
			Help:      "Free-tier quota decisions by outcome.",
		},
		[]string{"decision"},
	)

	quotaResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "repurposer",
			Subsystem: "quota",
			Name:      "resets_total",
			Help:      "Number of global quota window resets.",
		},
	)

	authFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repurposer",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected authentication or authorization attempts.",
		},
		[]string{"reason"},
	)

	generationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repurposer",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Calls to the text generation provider.",
		},
		[]string{"status"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "repurposer",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Latency of text generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
		},
	)

	storeOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "repurposer",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Record store loads and saves by result.",
		},
		[]string{"op", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		quotaDecisions,
		quotaResets,
		authFailures,
		generationRequests,
		generationDuration,
		storeOperations,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordQuotaDecision(allowed bool) {
	if allowed {
		quotaDecisions.WithLabelValues("allow").Inc()
		return
	}
	quotaDecisions.WithLabelValues("deny").Inc()
}

func RecordQuotaReset() {
	quotaResets.Inc()
}

func RecordAuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}

func RecordGeneration(status string, elapsed time.Duration) {
	generationRequests.WithLabelValues(status).Inc()
	generationDuration.Observe(elapsed.Seconds())
}

func RecordStoreOperation(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOperations.WithLabelValues(op, status).Inc()
}
