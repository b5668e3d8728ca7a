package outbox

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"patientflow/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded outbox for tests and local development. It is
// durable only for the process lifetime; production runs use Postgres.
type InMemory struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*Entry
	seq     map[uuid.UUID]int
	next    int
}

func NewInMemory() *InMemory {
	return &InMemory{
		pending: make(map[uuid.UUID]*Entry),
		seq:     make(map[uuid.UUID]int),
	}
}

func (s *InMemory) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := entry
	s.pending[entry.ID] = &clone
	s.seq[entry.ID] = s.next
	s.next++
	return nil
}

func (s *InMemory) NextBatch(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, *e)
	}
	// Append order, not timestamp order, so same-key entries stay FIFO even
	// with equal timestamps.
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) MarkSent(ctx context.Context, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[entryID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.pending, entryID)
	delete(s.seq, entryID)
	return nil
}

func (s *InMemory) MarkFailed(ctx context.Context, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Attempts++
	return nil
}

func (s *InMemory) PendingCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), nil
}
