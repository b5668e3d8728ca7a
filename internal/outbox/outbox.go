// Package outbox implements the durable local retry queue for outgoing
// events. Publish appends to the outbox and returns; the relay worker drains
// it to the event stream independently of the caller, giving at-least-once
// delivery without blocking the request path.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one queued event. Key is the partition key on the stream (the
// patient id) so per-patient ordering is preserved end to end.
type Entry struct {
	ID        uuid.UUID
	Key       string
	EventType string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

// Store is the durable queue behind the publisher and the relay.
//
// Append must be durable before returning: once it succeeds the event can no
// longer be silently lost. NextBatch returns unsent entries oldest first so
// entries sharing a key drain in order.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	NextBatch(ctx context.Context, limit int) ([]Entry, error)
	MarkSent(ctx context.Context, entryID uuid.UUID) error
	// MarkFailed increments the attempt counter and requeues the entry.
	MarkFailed(ctx context.Context, entryID uuid.UUID) error
	PendingCount(ctx context.Context) (int, error)
}
