package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the query-side Prometheus metrics.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryResults  *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// New registers query metrics with reg; nil leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "activitylog_query_duration_seconds",
			Help:    "Time spent answering activity log queries, by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		QueryResults: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "activitylog_query_results",
			Help:    "Number of events returned per query, by operation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"operation"}),
		QueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activitylog_query_errors_total",
			Help: "Total number of failed activity log queries, by operation",
		}, []string{"operation"}),
	}
}

// ObserveQuery records the outcome of one query.
func (m *Metrics) ObserveQuery(operation string, start time.Time, results int, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.QueryErrors.WithLabelValues(operation).Inc()
		return
	}
	m.QueryResults.WithLabelValues(operation).Observe(float64(results))
}
