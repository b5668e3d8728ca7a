package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"patientflow/internal/outbox/metrics"
	"patientflow/internal/patient/models"
)

// Publisher satisfies the event-publishing contract: each call is durably
// queued or reports failure. Success here means "queued locally", not
// "delivered"; the relay owns delivery.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewPublisher(store Store, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{store: store, logger: logger, metrics: m}
}

// Publish queues one patient lifecycle event. An error means the event is NOT
// durably queued and the caller must handle the loss; a nil return is the Ack.
func (p *Publisher) Publish(ctx context.Context, event models.PatientEvent) error {
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal patient event: %w", err)
	}

	entry := Entry{
		ID:        uuid.New(),
		Key:       event.PatientID.String(),
		EventType: string(event.Type),
		Payload:   payload,
		CreatedAt: event.EmittedAt,
	}
	if err := p.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("queue patient event: %w", err)
	}

	if p.metrics != nil {
		p.metrics.EventsQueued.Inc()
	}
	p.logger.DebugContext(ctx, "patient event queued",
		"event_type", entry.EventType,
		"patient_id", entry.Key,
	)
	return nil
}
