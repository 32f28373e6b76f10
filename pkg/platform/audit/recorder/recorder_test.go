package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/store/memory"
	"activitylog/pkg/requestcontext"
)

type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStore) Append(context.Context, audit.Event) (audit.Event, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return audit.Event{}, audit.NewStorageError("append", errors.New("connection refused"))
}

func (s *failingStore) All(context.Context) ([]audit.Event, error) { return nil, nil }

func (s *failingStore) FindBy(context.Context, audit.Predicate) ([]audit.Event, error) {
	return nil, nil
}

func (s *failingStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Publish(_ context.Context, e audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// gatedStore blocks each Append until release is closed, signalling entered
// on the first call.
type gatedStore struct {
	*memory.InMemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		InMemoryStore: memory.NewInMemoryStore(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (s *gatedStore) Append(ctx context.Context, e audit.Event) (audit.Event, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.InMemoryStore.Append(ctx, e)
}

func requestCtx(t time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), t)
	return requestcontext.WithClientMetadata(ctx, "203.0.113.7", "test-agent")
}

func TestRecorder_RecordStampsRequestMetadata(t *testing.T) {
	store := memory.NewInMemoryStore()
	rec := New(store)
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	stored := rec.RecordSuccess(requestCtx(at), "alice@example.com", "Alice", "Subscriber", audit.ActionUserLogin, "ok")

	assert.Equal(t, int64(1), stored.ID)
	assert.Equal(t, at, stored.Timestamp)
	assert.Equal(t, "203.0.113.7", stored.SourceAddress)
	assert.Equal(t, audit.StatusSuccess, stored.Status)

	all, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, stored, all[0])
}

func TestRecorder_RecordFailureStatus(t *testing.T) {
	store := memory.NewInMemoryStore()
	rec := New(store)

	stored := rec.RecordFailure(context.Background(), "bob@example.com", "Bob", "Admin", audit.ActionLoginFailed, "bad password")
	assert.Equal(t, audit.StatusFailed, stored.Status)
}

func TestRecorder_SwallowsStoreFailures(t *testing.T) {
	store := &failingStore{}
	metrics := NewMetrics(nil)
	rec := New(store, WithMetrics(metrics))

	stored := rec.RecordSuccess(context.Background(), "alice@example.com", "Alice", "Subscriber", audit.ActionUserLogin, "")

	assert.Zero(t, stored.ID)
	assert.Equal(t, audit.ActionUserLogin, stored.Action)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RecordFailures))
}

func TestRecorder_SwallowsValidationFailures(t *testing.T) {
	store := memory.NewInMemoryStore()
	cb := NewCircuitBreaker(1, time.Minute)
	rec := New(store, WithCircuitBreaker(cb))

	stored := rec.RecordSuccess(context.Background(), "", "Alice", "Subscriber", audit.ActionUserLogin, "")

	assert.Zero(t, stored.ID)
	assert.Equal(t, 0, store.Len())
	assert.False(t, cb.IsOpen(), "validation errors must not trip the breaker")
}

func TestRecorder_CircuitBreakerStopsCallingStore(t *testing.T) {
	store := &failingStore{}
	metrics := NewMetrics(nil)
	rec := New(store, WithCircuitBreaker(NewCircuitBreaker(2, time.Hour)), WithMetrics(metrics))

	for range 5 {
		rec.RecordSuccess(context.Background(), "alice@example.com", "Alice", "Subscriber", audit.ActionUserLogin, "")
	}

	assert.Equal(t, 2, store.Calls())
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.CircuitBreakerDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CircuitBreakerState))
}

func TestRecorder_SinkReceivesStoredEvents(t *testing.T) {
	sink := &recordingSink{}
	rec := New(memory.NewInMemoryStore(), WithSink(sink))

	rec.RecordSuccess(context.Background(), "alice@example.com", "Alice", "Subscriber", audit.ActionUserSignup, "")
	rec.RecordSuccess(context.Background(), "", "Alice", "Subscriber", audit.ActionUserSignup, "") // invalid

	require.Len(t, sink.events, 1)
	assert.Equal(t, int64(1), sink.events[0].ID)
}

func TestRecorder_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	rec := New(store, WithAsyncBuffer(100))

	for range 10 {
		stored := rec.RecordSuccess(context.Background(), "alice@example.com", "Alice", "Subscriber", audit.ActionUserLogin, "")
		assert.Zero(t, stored.ID)
	}

	require.NoError(t, rec.Close(context.Background()))
	assert.Equal(t, 10, store.Len())
	assert.Equal(t, 0, rec.Pending())

	// second close is harmless
	require.NoError(t, rec.Close(context.Background()))
}

func TestRecorder_AsyncFullBufferDropsOldestPending(t *testing.T) {
	store := newGatedStore()
	metrics := NewMetrics(nil)
	rec := New(store, WithAsyncBuffer(2), WithMetrics(metrics))
	ctx := context.Background()

	rec.RecordSuccess(ctx, "alice@example.com", "Alice", "Subscriber", "FIRST", "")
	<-store.entered // worker is now stuck appending FIRST

	for _, action := range []string{"SECOND", "THIRD", "FOURTH"} {
		queued := rec.RecordSuccess(ctx, "alice@example.com", "Alice", "Subscriber", action, "")
		assert.Zero(t, queued.ID, "queued events are not stored yet")
	}
	assert.Equal(t, 2, rec.Pending())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.BufferDropped))
	assert.Equal(t, 0, store.Len())

	close(store.release)
	require.NoError(t, rec.Close(ctx))

	all, err := store.All(ctx)
	require.NoError(t, err)
	var actions []string
	for _, e := range all {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{"FIRST", "THIRD", "FOURTH"}, actions)
}

func TestRecorder_AsyncPreservesRequestTime(t *testing.T) {
	store := memory.NewInMemoryStore()
	rec := New(store, WithAsyncBuffer(10))
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	rec.RecordSuccess(requestCtx(at), "alice@example.com", "Alice", "Subscriber", audit.ActionUserLogin, "")
	require.NoError(t, rec.Close(context.Background()))

	all, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, at, all[0].Timestamp)
	assert.Equal(t, "203.0.113.7", all[0].SourceAddress)
}

func TestRecorder_RecordAfterCloseWritesInline(t *testing.T) {
	store := memory.NewInMemoryStore()
	rec := New(store, WithAsyncBuffer(10))
	require.NoError(t, rec.Close(context.Background()))

	stored := rec.RecordSuccess(context.Background(), "alice@example.com", "Alice", "Subscriber", audit.ActionUserLogin, "")
	assert.Equal(t, int64(1), stored.ID)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, rec.Pending())
}

func TestRecorder_SyncCloseIsNoop(t *testing.T) {
	rec := New(memory.NewInMemoryStore())
	assert.NoError(t, rec.Close(context.Background()))
	assert.Equal(t, 0, rec.Pending())
}
