package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Handler processes one message. A returned error is retried with backoff
// and the offset is not committed until Handle succeeds, so delivery is
// at-least-once. Handlers return nil for messages that can never succeed.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Backoff bounds the delay between attempts at a failing message.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff is used when Config.Retry is zero.
var DefaultBackoff = Backoff{Initial: 200 * time.Millisecond, Max: 30 * time.Second}

// Config configures a group consumer.
type Config struct {
	Brokers []string
	Group   string
	Topics  []string
	Retry   Backoff
}

// Consumer polls a consumer group and hands records to a Handler.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	retry   Backoff
	logger  *slog.Logger
}

// New joins the consumer group described by cfg.
func New(cfg Config, handler Handler, logger *slog.Logger, opts ...kgo.Opt) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if cfg.Group == "" {
		return nil, fmt.Errorf("kafka consumer requires a group")
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	}, opts...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	retry := cfg.Retry
	if retry.Initial <= 0 {
		retry.Initial = DefaultBackoff.Initial
	}
	if retry.Max < retry.Initial {
		retry.Max = max(DefaultBackoff.Max, retry.Initial)
	}
	return &Consumer{client: client, handler: handler, retry: retry, logger: logger}, nil
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		handled := true
		fetches.EachRecord(func(r *kgo.Record) {
			if handled {
				handled = deliver(ctx, c.handler, fromRecord(r), c.retry, c.logger)
			}
		})
		if !handled {
			// Shutting down mid-batch: leave the rest uncommitted for the
			// next member of the group.
			return nil
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
		}
	}
}

// deliver hands msg to h until it succeeds or ctx ends, doubling the delay
// between attempts up to b.Max. It reports whether msg was handled.
func deliver(ctx context.Context, h Handler, msg *Message, b Backoff, logger *slog.Logger) bool {
	delay := b.Initial
	for attempt := 1; ; attempt++ {
		err := h.Handle(ctx, msg)
		if err == nil {
			return true
		}
		logger.ErrorContext(ctx, "kafka handler failed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = min(delay*2, b.Max)
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func fromRecord(r *kgo.Record) *Message {
	msg := &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
	}
	if len(r.Headers) > 0 {
		msg.Headers = make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}
