// Package redis stores the event log in Redis: a hash of JSON-encoded events
// keyed by id and a sorted set indexing ids by timestamp.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	audit "activitylog/pkg/platform/audit"
)

// DefaultPrefix uses a hash tag so all keys land in one cluster slot, which
// the append script needs.
const DefaultPrefix = "{audit}"

// appendScript assigns the next id and writes both keys in one atomic step.
//
// KEYS[1] sequence, KEYS[2] events hash, KEYS[3] timeline zset
// ARGV[1] JSON payload, ARGV[2] score (unix micros)
var appendScript = redis.NewScript(`
local id = redis.call('INCR', KEYS[1])
redis.call('HSET', KEYS[2], id, ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[2], id)
return id
`)

// Store implements audit.Store on Redis.
type Store struct {
	client      redis.UniversalClient
	seqKey      string
	eventsKey   string
	timelineKey string
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix changes the key prefix; keep a {hash tag} for cluster mode.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.setPrefix(prefix)
	}
}

// New creates a Redis-backed event store.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, now: time.Now}
	s.setPrefix(DefaultPrefix)
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) setPrefix(prefix string) {
	s.seqKey = prefix + ":seq"
	s.eventsKey = prefix + ":events"
	s.timelineKey = prefix + ":timeline"
}

func (s *Store) Append(ctx context.Context, event audit.Event) (audit.Event, error) {
	prepared, err := audit.Prepare(event, s.now())
	if err != nil {
		return audit.Event{}, err
	}

	payload, err := json.Marshal(prepared)
	if err != nil {
		return audit.Event{}, audit.NewStorageError("append", fmt.Errorf("marshal event: %w", err))
	}
	score := strconv.FormatInt(prepared.Timestamp.UnixMicro(), 10)

	id, err := appendScript.Run(ctx, s.client,
		[]string{s.seqKey, s.eventsKey, s.timelineKey},
		payload, score,
	).Int64()
	if err != nil {
		return audit.Event{}, audit.NewStorageError("append", fmt.Errorf("run append script: %w", err))
	}
	prepared.ID = id
	return prepared, nil
}

func (s *Store) All(ctx context.Context) ([]audit.Event, error) {
	raw, err := s.client.HGetAll(ctx, s.eventsKey).Result()
	if err != nil {
		return nil, audit.NewStorageError("all", fmt.Errorf("read events: %w", err))
	}
	events := make([]audit.Event, 0, len(raw))
	for field, payload := range raw {
		e, err := decode(field, payload)
		if err != nil {
			return nil, audit.NewStorageError("all", err)
		}
		events = append(events, e)
	}
	audit.SortNewestFirst(events)
	return events, nil
}

// FindBy narrows candidates with the timeline index when p bounds time, then
// evaluates p on the decoded events.
func (s *Store) FindBy(ctx context.Context, p audit.Predicate) ([]audit.Event, error) {
	start, end, bounded := audit.TimeBounds(p)
	if !bounded {
		all, err := s.All(ctx)
		if err != nil {
			return nil, audit.NewStorageError("find", err)
		}
		return audit.Filter(all, p), nil
	}

	ids, err := s.client.ZRangeByScore(ctx, s.timelineKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixMicro(), 10),
		Max: strconv.FormatInt(end.UnixMicro()+1, 10),
	}).Result()
	if err != nil {
		return nil, audit.NewStorageError("find", fmt.Errorf("range timeline: %w", err))
	}
	events, err := s.load(ctx, ids)
	if err != nil {
		return nil, audit.NewStorageError("find", err)
	}
	out := audit.Filter(events, p)
	audit.SortNewestFirst(out)
	return out, nil
}

// Recent returns the limit most recent events. Members sharing the boundary
// score are fetched too so ties resolve by id rather than by Redis' lexical
// member order.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		return []audit.Event{}, nil
	}
	top, err := s.client.ZRevRangeWithScores(ctx, s.timelineKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, audit.NewStorageError("recent", fmt.Errorf("range timeline: %w", err))
	}
	if len(top) == 0 {
		return []audit.Event{}, nil
	}

	boundary := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
	ids, err := s.client.ZRangeByScore(ctx, s.timelineKey, &redis.ZRangeBy{Min: boundary, Max: "+inf"}).Result()
	if err != nil {
		return nil, audit.NewStorageError("recent", fmt.Errorf("range timeline: %w", err))
	}
	events, err := s.load(ctx, ids)
	if err != nil {
		return nil, audit.NewStorageError("recent", err)
	}
	audit.SortNewestFirst(events)
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *Store) load(ctx context.Context, ids []string) ([]audit.Event, error) {
	if len(ids) == 0 {
		return []audit.Event{}, nil
	}
	values, err := s.client.HMGet(ctx, s.eventsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	events := make([]audit.Event, 0, len(values))
	for i, v := range values {
		payload, ok := v.(string)
		if !ok {
			// timeline entry without a body; the script writes both, so
			// this only happens if someone edits keys by hand
			continue
		}
		e, err := decode(ids[i], payload)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func decode(field, payload string) (audit.Event, error) {
	var e audit.Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return audit.Event{}, fmt.Errorf("decode event %s: %w", field, err)
	}
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse event id %q: %w", field, err)
	}
	e.ID = id
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
