package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database Metrics
var DBQueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "db_query_duration_seconds",
	Help:    "Duration of database queries in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"query_type", "repository", "status"})

var DBQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "db_query_errors_total",
	Help: "Total number of failed database queries.",
}, []string{"query_type", "repository"})

// ObserveQuery starts timing a repository call. The returned func records the
// duration under the status *status holds when it runs, so callers defer it
// and flip status to "error" on failure.
func ObserveQuery(queryType, repository string, status *string) func() {
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		DBQueryDurationSeconds.WithLabelValues(queryType, repository, *status).Observe(v)
	}))
	return func() { timer.ObserveDuration() }
}

// QueryFailed counts a failed repository call.
func QueryFailed(queryType, repository string, status *string) {
	*status = "error"
	DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
}
