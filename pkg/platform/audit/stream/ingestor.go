package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"activitylog/internal/platform/kafka/consumer"
	dErrors "activitylog/pkg/domain-errors"
	audit "activitylog/pkg/platform/audit"
)

// Ingestor appends activity events published by other services to the local
// store. Ids are reassigned by the store; timestamps are kept.
type Ingestor struct {
	store   audit.Store
	origin  string
	logger  *slog.Logger
	metrics *Metrics
}

// NewIngestor creates an ingestor. Records whose origin header equals origin
// were mirrored by this instance and are skipped.
func NewIngestor(store audit.Store, origin string, logger *slog.Logger, metrics *Metrics) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:   store,
		origin:  origin,
		logger:  logger,
		metrics: metrics,
	}
}

// Handle decodes and stores one event. Malformed or invalid records are
// logged and skipped. Store failures are returned so the consumer retries the
// record instead of committing past it; an append whose commit is lost is
// redelivered and stored again.
func (h *Ingestor) Handle(ctx context.Context, msg *consumer.Message) error {
	if h.origin != "" && msg.Headers[HeaderOrigin] == h.origin {
		h.skip("own_event")
		return nil
	}

	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.WarnContext(ctx, "failed to unmarshal activity event",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		h.skip("malformed")
		return nil
	}
	event.ID = 0

	stored, err := h.store.Append(ctx, event)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.WarnContext(ctx, "skipping invalid activity event",
				"key", string(msg.Key),
				"action", event.Action,
				"error", err,
			)
			h.skip("invalid")
			return nil
		}
		h.logger.ErrorContext(ctx, "failed to store remote activity event",
			"key", string(msg.Key),
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store activity event: %w", err)
	}

	if h.metrics != nil {
		h.metrics.Ingested.Inc()
	}
	h.logger.DebugContext(ctx, "ingested remote activity event",
		"id", stored.ID,
		"action", stored.Action,
	)
	return nil
}

func (h *Ingestor) skip(reason string) {
	if h.metrics != nil {
		h.metrics.Skipped.WithLabelValues(reason).Inc()
	}
}
