// Package relay drains the outbox to the event stream. It runs outside the
// request path: publish failures here never surface to API callers, they are
// retried until delivery or escalated past the alert threshold.
package relay

import (
	"context"
	"log/slog"
	"time"

	"patientflow/internal/outbox"
	"patientflow/internal/outbox/metrics"
	"patientflow/internal/platform/config"
)

// Producer is the event-stream sink. Records with the same key preserve
// relative order.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Relay polls the outbox and forwards pending entries.
type Relay struct {
	store    outbox.Store
	producer Producer
	breaker  *CircuitBreaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      config.OutboxConfig
}

func New(store outbox.Store, producer Producer, cfg config.OutboxConfig, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		store:    store,
		producer: producer,
		breaker:  NewCircuitBreaker(5, 30*time.Second),
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
	}
}

// Run drains the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce forwards one batch. A failed entry stops the batch early so
// entries sharing a partition key cannot overtake each other.
func (r *Relay) drainOnce(ctx context.Context) {
	if !r.breaker.Allow() {
		return
	}

	entries, err := r.store.NextBatch(ctx, r.cfg.BatchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "outbox batch read failed", "error", err.Error())
		return
	}

	for _, entry := range entries {
		if err := r.producer.Produce(ctx, []byte(entry.Key), entry.Payload); err != nil {
			r.breaker.RecordFailure()
			r.incDeliveryFailures()
			if markErr := r.store.MarkFailed(ctx, entry.ID); markErr != nil {
				r.logger.ErrorContext(ctx, "outbox mark failed errored",
					"entry_id", entry.ID.String(),
					"error", markErr.Error(),
				)
			}
			if entry.Attempts+1 >= r.cfg.AlertThreshold {
				// Operator-visible escalation: the event is still queued and
				// retried, but somebody needs to look at the stream.
				r.incDeliveryEscalated()
				r.logger.ErrorContext(ctx, "outbox entry exceeded retry ceiling",
					"entry_id", entry.ID.String(),
					"event_type", entry.EventType,
					"key", entry.Key,
					"attempts", entry.Attempts+1,
					"error", err.Error(),
				)
			} else {
				r.logger.WarnContext(ctx, "outbox delivery failed, will retry",
					"entry_id", entry.ID.String(),
					"event_type", entry.EventType,
					"attempts", entry.Attempts+1,
					"error", err.Error(),
				)
			}
			break
		}

		r.breaker.RecordSuccess()
		r.incEventsDelivered()
		if err := r.store.MarkSent(ctx, entry.ID); err != nil {
			// The event went out but the mark failed; the next cycle will
			// resend it. At-least-once, downstream consumers are idempotent.
			r.logger.ErrorContext(ctx, "outbox mark sent errored",
				"entry_id", entry.ID.String(),
				"error", err.Error(),
			)
			break
		}
	}

	if depth, err := r.store.PendingCount(ctx); err == nil {
		r.setPendingDepth(depth)
	}
}

func (r *Relay) incDeliveryFailures() {
	if r.metrics != nil {
		r.metrics.DeliveryFailures.Inc()
	}
}

func (r *Relay) incDeliveryEscalated() {
	if r.metrics != nil {
		r.metrics.DeliveryEscalated.Inc()
	}
}

func (r *Relay) incEventsDelivered() {
	if r.metrics != nil {
		r.metrics.EventsDelivered.Inc()
	}
}

func (r *Relay) setPendingDepth(depth int) {
	if r.metrics != nil {
		r.metrics.PendingDepth.Set(float64(depth))
	}
}
