package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whale_dashboard"

// Outcome labels shared by backend and view metrics.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation_error"
	OutcomeDomain     = "domain_error"
	OutcomeTransport  = "transport_error"
)

var (
	backendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the analytics backend",
		},
		[]string{"endpoint", "outcome"},
	)

	backendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Analytics backend round-trip time in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	viewRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_refresh_total",
			Help:      "View refreshes by terminal outcome",
		},
		[]string{"view", "outcome"},
	)

	staleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_stale_responses_total",
			Help:      "Responses dropped because a newer request was issued for the same view",
		},
		[]string{"view"},
	)

	tableSorts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_sorts_total",
			Help:      "Header clicks that re-ordered a table",
		},
		[]string{"table"},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Browser sessions currently held in memory",
		},
	)
)

func ObserveBackend(endpoint, outcome string, elapsed time.Duration) {
	backendRequests.WithLabelValues(endpoint, outcome).Inc()
	backendDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func RecordRefresh(view, outcome string) {
	viewRefreshes.WithLabelValues(view, outcome).Inc()
}

func RecordStale(view string) {
	staleResponses.WithLabelValues(view).Inc()
}

func RecordSort(table string) {
	tableSorts.WithLabelValues(table).Inc()
}

func SetSessions(n int) {
	sessionsActive.Set(float64(n))
}
