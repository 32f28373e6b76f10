package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	audit "activitylog/pkg/platform/audit"
)

// InMemoryStore keeps events in insertion order. Ids come from a counter
// guarded by the same lock as the slice, so concurrent appends never collide.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	nextID int64
	now    func() time.Time
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithClock overrides the clock used to stamp events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) (audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepared, err := audit.Prepare(event, s.now())
	if err != nil {
		return audit.Event{}, err
	}
	s.nextID++
	prepared.ID = s.nextID
	s.events = append(s.events, prepared)
	return prepared, nil
}

// All returns every event, most recent first.
func (s *InMemoryStore) All(_ context.Context) ([]audit.Event, error) {
	return s.snapshot(audit.True(), 0), nil
}

func (s *InMemoryStore) FindBy(_ context.Context, p audit.Predicate) ([]audit.Event, error) {
	return s.snapshot(p, 0), nil
}

// Recent returns the limit most recent events.
func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		return []audit.Event{}, nil
	}
	return s.snapshot(audit.True(), limit), nil
}

func (s *InMemoryStore) snapshot(p audit.Predicate, limit int) []audit.Event {
	s.mu.RLock()
	out := audit.Filter(s.events, p)
	s.mu.RUnlock()

	audit.SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = slices.Clip(out[:limit])
	}
	return out
}

// Len reports the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
