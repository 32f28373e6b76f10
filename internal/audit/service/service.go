// Package service answers operator queries over the activity log: by actor,
// action, role, relative time window, compound filter, and free-text search.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"activitylog/internal/platform/metrics"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/timerange"
	"activitylog/pkg/requestcontext"
)

var tracer = otel.Tracer("activitylog/internal/audit/service")

// Filter values that mean "do not filter on this field".
const (
	AllUsers   = "All Users"
	AllActions = "All Actions"
	AllStatus  = "All Status"
)

// Filters is a compound query. Empty fields and the All* sentinels are
// ignored; DateRange falls back to the default window when empty or unknown.
type Filters struct {
	Role      string
	Action    string
	Status    string
	DateRange string
}

// Service executes read queries against the event store.
type Service struct {
	store            audit.Store
	logger           *slog.Logger
	metrics          *metrics.Metrics
	blankSearchLimit int
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBlankSearchLimit caps the result of a search with a blank term. Zero
// or less means every event is returned.
func WithBlankSearchLimit(n int) Option {
	return func(s *Service) {
		s.blankSearchLimit = n
	}
}

func New(store audit.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllLogs returns every event, most recent first.
func (s *Service) AllLogs(ctx context.Context) ([]audit.Event, error) {
	return s.run(ctx, "all", nil, func(ctx context.Context) ([]audit.Event, error) {
		return s.store.All(ctx)
	})
}

// RecentLogs returns the limit most recent events. A non-positive limit
// yields an empty result.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]audit.Event, error) {
	attrs := []attribute.KeyValue{attribute.Int("audit.limit", limit)}
	return s.run(ctx, "recent", attrs, func(ctx context.Context) ([]audit.Event, error) {
		return s.recent(ctx, limit)
	})
}

func (s *Service) recent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		return []audit.Event{}, nil
	}
	if rl, ok := s.store.(audit.RecentLister); ok {
		return rl.Recent(ctx, limit)
	}
	events, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// LogsByUser returns events whose actor email equals email exactly.
func (s *Service) LogsByUser(ctx context.Context, email string) ([]audit.Event, error) {
	return s.findBy(ctx, "by_user", audit.Eq(audit.FieldActorEmail, email),
		attribute.String("audit.actor_email", email))
}

// LogsByAction returns events with the given action code.
func (s *Service) LogsByAction(ctx context.Context, action string) ([]audit.Event, error) {
	return s.findBy(ctx, "by_action", audit.Eq(audit.FieldAction, action),
		attribute.String("audit.action", action))
}

// LogsByRole returns events whose actor role equals role exactly.
func (s *Service) LogsByRole(ctx context.Context, role string) ([]audit.Event, error) {
	return s.findBy(ctx, "by_role", audit.Eq(audit.FieldActorRole, role),
		attribute.String("audit.actor_role", role))
}

// LogsByDateRange returns events inside the window named by token, resolved
// against the request time.
func (s *Service) LogsByDateRange(ctx context.Context, token string) ([]audit.Event, error) {
	start, end := timerange.Resolve(token, requestcontext.Now(ctx))
	return s.findBy(ctx, "by_date_range", audit.Between(start, end),
		attribute.String("audit.date_range", token))
}

// LogsWithFilters AND-combines the set fields of f with the date window.
func (s *Service) LogsWithFilters(ctx context.Context, f Filters) ([]audit.Event, error) {
	return s.findBy(ctx, "with_filters", s.filterPredicate(ctx, f),
		attribute.String("audit.actor_role", f.Role),
		attribute.String("audit.action", f.Action),
		attribute.String("audit.status", f.Status),
		attribute.String("audit.date_range", f.DateRange),
	)
}

func (s *Service) filterPredicate(ctx context.Context, f Filters) audit.Predicate {
	start, end := timerange.Resolve(f.DateRange, requestcontext.Now(ctx))
	parts := []audit.Predicate{audit.Between(start, end)}

	if role, ok := selected(f.Role, AllUsers); ok {
		parts = append(parts, audit.Eq(audit.FieldActorRole, role))
	}
	if action, ok := selected(f.Action, AllActions); ok {
		parts = append(parts, audit.Eq(audit.FieldAction, action))
	}
	if status, ok := selected(f.Status, AllStatus); ok {
		if parsed, valid := audit.ParseStatus(status); valid {
			status = string(parsed)
		}
		parts = append(parts, audit.Eq(audit.FieldStatus, status))
	}
	return audit.And(parts...)
}

func selected(value, sentinel string) (string, bool) {
	if value == "" || value == sentinel {
		return "", false
	}
	return value, true
}

// SearchLogs matches term case-insensitively against actor email, actor
// name, action and details. A blank term returns the unfiltered log, capped
// by the blank search limit when one is configured.
func (s *Service) SearchLogs(ctx context.Context, term string) ([]audit.Event, error) {
	term = strings.TrimSpace(term)
	attrs := []attribute.KeyValue{attribute.String("audit.search_term", term)}

	if term == "" {
		return s.run(ctx, "search", attrs, func(ctx context.Context) ([]audit.Event, error) {
			if s.blankSearchLimit > 0 {
				return s.recent(ctx, s.blankSearchLimit)
			}
			return s.store.All(ctx)
		})
	}

	return s.findBy(ctx, "search", SearchPredicate(term), attrs...)
}

// SearchPredicate ORs a case-insensitive substring match of term over the
// searchable fields.
func SearchPredicate(term string) audit.Predicate {
	parts := make([]audit.Predicate, 0, len(audit.SearchFields))
	for _, f := range audit.SearchFields {
		parts = append(parts, audit.ContainsFold(f, term))
	}
	return audit.Or(parts...)
}

func (s *Service) findBy(ctx context.Context, op string, p audit.Predicate, attrs ...attribute.KeyValue) ([]audit.Event, error) {
	return s.run(ctx, op, attrs, func(ctx context.Context) ([]audit.Event, error) {
		return s.store.FindBy(ctx, p)
	})
}

// run wraps a store query with a span, metrics and error logging.
func (s *Service) run(ctx context.Context, op string, attrs []attribute.KeyValue, query func(context.Context) ([]audit.Event, error)) ([]audit.Event, error) {
	ctx, span := tracer.Start(ctx, "audit."+op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	events, err := query(ctx)
	s.metrics.ObserveQuery(op, start, len(events), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		s.logger.ErrorContext(ctx, "activity log query failed",
			"operation", op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, err
	}
	if events == nil {
		events = []audit.Event{}
	}
	span.SetAttributes(attribute.Int("audit.results", len(events)))
	return events, nil
}
