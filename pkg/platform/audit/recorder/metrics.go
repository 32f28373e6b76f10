package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the write path.
type Metrics struct {
	Recorded              *prometheus.CounterVec
	RecordFailures        prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	BufferDropped         prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
	AppendDuration        prometheus.Histogram
}

// NewMetrics registers recorder metrics with reg. A nil reg yields
// unregistered collectors, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Recorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activitylog_events_recorded_total",
			Help: "Total number of activity events persisted, by action and status",
		}, []string{"action", "status"}),
		RecordFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "activitylog_record_failures_total",
			Help: "Total number of activity events that failed to persist",
		}),
		CircuitBreakerDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "activitylog_circuit_breaker_dropped_total",
			Help: "Total number of activity events dropped while the circuit breaker was open",
		}),
		BufferDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "activitylog_buffer_dropped_total",
			Help: "Total number of activity events dropped because the async buffer was full",
		}),
		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "activitylog_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
		AppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "activitylog_append_duration_seconds",
			Help:    "Time spent appending an activity event to the store",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) incRecorded(action, status string) {
	if m == nil {
		return
	}
	m.Recorded.WithLabelValues(action, status).Inc()
}

func (m *Metrics) incRecordFailures() {
	if m == nil {
		return
	}
	m.RecordFailures.Inc()
}

func (m *Metrics) incCircuitBreakerDropped() {
	if m == nil {
		return
	}
	m.CircuitBreakerDropped.Inc()
}

func (m *Metrics) incBufferDropped() {
	if m == nil {
		return
	}
	m.BufferDropped.Inc()
}

func (m *Metrics) setCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}

func (m *Metrics) observeAppend(seconds float64) {
	if m == nil {
		return
	}
	m.AppendDuration.Observe(seconds)
}
