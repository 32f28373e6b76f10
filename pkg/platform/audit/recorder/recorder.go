// Package recorder is the write-side facade collaborators use to log
// activity. Recording is fail-open: a store outage is logged and counted but
// never surfaces to the login or domain operation that triggered it.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/buffer"
	"activitylog/pkg/platform/sentinel"
	"activitylog/pkg/requestcontext"
)

// Sink receives every event after it has been stored.
type Sink interface {
	Publish(ctx context.Context, event audit.Event)
}

// Actor is the identity recorded when the request context carries none.
type Actor struct {
	Email string
	Name  string
	Role  string
}

// DefaultFallbackActor matches the administrator account domain operations
// were historically attributed to.
var DefaultFallbackActor = Actor{Email: "admin@rwtool.com", Name: "Admin", Role: "Admin"}

const drainBatchSize = 64

// Recorder builds activity events and appends them to the store.
type Recorder struct {
	store    audit.Store
	logger   *slog.Logger
	metrics  *Metrics
	breaker  *CircuitBreaker
	sink     Sink
	fallback Actor

	// async mode
	queue     *buffer.Ring[audit.Event]
	notify    chan struct{}
	done      chan struct{}
	drained   chan struct{}
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithCircuitBreaker guards store appends with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(r *Recorder) {
		r.breaker = cb
	}
}

// WithSink forwards stored events to s.
func WithSink(s Sink) Option {
	return func(r *Recorder) {
		r.sink = s
	}
}

// WithFallbackActor overrides DefaultFallbackActor.
func WithFallbackActor(a Actor) Option {
	return func(r *Recorder) {
		r.fallback = a
	}
}

// WithAsyncBuffer makes Record enqueue events and return immediately. A
// background goroutine appends them; Close drains what is left.
//
// This trades durability for latency: Record returns an event with ID 0
// before it is stored, events still queued are lost if the process dies
// before Close, and a full buffer drops the oldest pending event (counted in
// activitylog_buffer_dropped_total). Leave it off when callers need
// the event stored by the time Record returns.
func WithAsyncBuffer(capacity int) Option {
	return func(r *Recorder) {
		r.queue = buffer.NewRing[audit.Event](capacity)
	}
}

// New creates a Recorder.
func New(store audit.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:    store,
		logger:   slog.Default(),
		fallback: DefaultFallbackActor,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.queue != nil {
		r.notify = make(chan struct{}, 1)
		r.done = make(chan struct{})
		r.drained = make(chan struct{})
		go r.run()
	}
	return r
}

// Record stores one activity event stamped with the request time and client
// address from ctx. It returns the stored event; an event with a zero ID was
// not persisted (store failure, open circuit, or async mode).
func (r *Recorder) Record(ctx context.Context, actorEmail, actorName, actorRole, action, details string, status audit.Status) audit.Event {
	event := audit.Event{
		Timestamp:     requestcontext.Now(ctx),
		ActorEmail:    actorEmail,
		ActorName:     actorName,
		ActorRole:     actorRole,
		Action:        action,
		Details:       details,
		Status:        status,
		SourceAddress: requestcontext.ClientIP(ctx),
	}

	if r.queue != nil && r.enqueue(ctx, event) {
		return event
	}

	if stored, err := r.persist(ctx, event); err == nil {
		return stored
	}
	return event
}

// enqueue hands event to the async worker. It returns false once Close has
// begun; late events are then written inline.
func (r *Recorder) enqueue(ctx context.Context, event audit.Event) bool {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return false
	}

	if r.queue.Enqueue(event) {
		r.metrics.incBufferDropped()
		r.logger.WarnContext(ctx, "activity buffer full, dropped oldest event",
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return true
}

// RecordSuccess records an event with status success.
func (r *Recorder) RecordSuccess(ctx context.Context, actorEmail, actorName, actorRole, action, details string) audit.Event {
	return r.Record(ctx, actorEmail, actorName, actorRole, action, details, audit.StatusSuccess)
}

// RecordFailure records an event with status failed.
func (r *Recorder) RecordFailure(ctx context.Context, actorEmail, actorName, actorRole, action, details string) audit.Event {
	return r.Record(ctx, actorEmail, actorName, actorRole, action, details, audit.StatusFailed)
}

// persist appends event and forwards it to the sink. Errors are already
// logged and counted when returned.
func (r *Recorder) persist(ctx context.Context, event audit.Event) (audit.Event, error) {
	if r.breaker != nil && !r.breaker.Allow() {
		r.metrics.incCircuitBreakerDropped()
		r.logger.WarnContext(ctx, "activity store circuit open, event dropped",
			"action", event.Action,
			"actor_email", event.ActorEmail,
			"error", sentinel.ErrUnavailable,
		)
		return audit.Event{}, sentinel.ErrUnavailable
	}

	start := time.Now()
	stored, err := r.store.Append(ctx, event)
	r.metrics.observeAppend(time.Since(start).Seconds())
	if err != nil {
		// validation failures say nothing about store health
		if r.breaker != nil && audit.IsStorageError(err) {
			r.breaker.RecordFailure()
			r.metrics.setCircuitBreakerState(r.breaker.IsOpen())
		}
		r.metrics.incRecordFailures()
		r.logger.ErrorContext(ctx, "failed to record activity",
			"action", event.Action,
			"actor_email", event.ActorEmail,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return audit.Event{}, err
	}

	if r.breaker != nil {
		r.breaker.RecordSuccess()
		r.metrics.setCircuitBreakerState(false)
	}
	r.metrics.incRecorded(stored.Action, string(stored.Status))
	if r.sink != nil {
		r.sink.Publish(ctx, stored)
	}
	return stored, nil
}

func (r *Recorder) run() {
	defer close(r.drained)
	ctx := context.Background()
	for {
		select {
		case <-r.notify:
			r.drain(ctx)
		case <-r.done:
			r.drain(ctx)
			return
		}
	}
}

func (r *Recorder) drain(ctx context.Context) {
	for {
		batch := r.queue.DequeueBatch(drainBatchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			_, _ = r.persist(ctx, event)
		}
	}
}

// Close stops the async worker after draining buffered events, or returns
// when ctx expires. It is a no-op for a synchronous recorder.
func (r *Recorder) Close(ctx context.Context) error {
	if r.queue == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.closeMu.Lock()
		r.closed = true
		r.closeMu.Unlock()
		close(r.done)
	})
	select {
	case <-r.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of events waiting in the async buffer.
func (r *Recorder) Pending() int {
	if r.queue == nil {
		return 0
	}
	return r.queue.Len()
}
