// Package stream mirrors the activity log onto a Kafka topic and ingests
// events that other services publish there.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"activitylog/internal/platform/kafka/producer"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/buffer"
)

// HeaderOrigin names the instance that produced a record so the ingestor can
// skip its own events.
const HeaderOrigin = "activitylog-origin"

const publishBatchSize = 100

// Publisher is the subset of producer.Producer the mirror needs.
type Publisher interface {
	Publish(ctx context.Context, msg producer.Message) error
}

// Metrics counts mirror outcomes.
type Metrics struct {
	Published     prometheus.Counter
	PublishErrors prometheus.Counter
	Dropped       prometheus.Counter
	Ingested      prometheus.Counter
	Skipped       *prometheus.CounterVec
}

// NewMetrics registers stream metrics with reg; nil leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "activitylog_stream_published_total",
			Help: "Total number of activity events published to the stream",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "activitylog_stream_publish_errors_total",
			Help: "Total number of activity events that failed to publish",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "activitylog_stream_dropped_total",
			Help: "Total number of activity events dropped because the mirror buffer was full",
		}),
		Ingested: factory.NewCounter(prometheus.CounterOpts{
			Name: "activitylog_stream_ingested_total",
			Help: "Total number of remote activity events appended to the store",
		}),
		Skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "activitylog_stream_skipped_total",
			Help: "Total number of stream records skipped by the ingestor, by reason",
		}, []string{"reason"}),
	}
}

// Mirror publishes stored events to a topic. Publish only enqueues; Run
// drains the queue so the write path never waits on the broker.
type Mirror struct {
	publisher Publisher
	topic     string
	origin    string
	queue     *buffer.Ring[audit.Event]
	notify    chan struct{}
	logger    *slog.Logger
	metrics   *Metrics
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithMirrorLogger sets the logger.
func WithMirrorLogger(logger *slog.Logger) MirrorOption {
	return func(m *Mirror) {
		m.logger = logger
	}
}

// WithMirrorMetrics sets the metrics collector.
func WithMirrorMetrics(metrics *Metrics) MirrorOption {
	return func(m *Mirror) {
		m.metrics = metrics
	}
}

// WithBufferSize bounds the number of events waiting to be published.
func WithBufferSize(n int) MirrorOption {
	return func(m *Mirror) {
		m.queue = buffer.NewRing[audit.Event](n)
	}
}

// NewMirror creates a mirror publishing to topic. origin identifies this
// instance in record headers.
func NewMirror(publisher Publisher, topic, origin string, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		publisher: publisher,
		topic:     topic,
		origin:    origin,
		notify:    make(chan struct{}, 1),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.queue == nil {
		m.queue = buffer.NewRing[audit.Event](buffer.DefaultCapacity)
	}
	return m
}

// Publish queues a stored event for publication. When the queue is full the
// oldest pending event is dropped.
func (m *Mirror) Publish(ctx context.Context, event audit.Event) {
	if m.queue.Enqueue(event) {
		if m.metrics != nil {
			m.metrics.Dropped.Inc()
		}
		m.logger.WarnContext(ctx, "stream mirror buffer full, dropped oldest event")
	}
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// left with a bounded grace period.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-m.notify:
			m.flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			m.flush(flushCtx)
			cancel()
			return nil
		}
	}
}

// Pending returns the number of queued events.
func (m *Mirror) Pending() int {
	return m.queue.Len()
}

func (m *Mirror) flush(ctx context.Context) {
	for {
		batch := m.queue.DequeueBatch(publishBatchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			m.publish(ctx, event)
		}
	}
}

func (m *Mirror) publish(ctx context.Context, event audit.Event) {
	value, err := json.Marshal(event)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to encode activity event", "id", event.ID, "error", err)
		return
	}

	err = m.publisher.Publish(ctx, producer.Message{
		Topic:   m.topic,
		Key:     []byte(strconv.FormatInt(event.ID, 10)),
		Value:   value,
		Headers: map[string]string{HeaderOrigin: m.origin},
	})
	if err != nil {
		if m.metrics != nil {
			m.metrics.PublishErrors.Inc()
		}
		m.logger.ErrorContext(ctx, "failed to publish activity event",
			"id", event.ID,
			"action", event.Action,
			"error", err,
		)
		return
	}
	if m.metrics != nil {
		m.metrics.Published.Inc()
	}
}
