// Package attempt tracks billing provisioning dispatches per patient id.
// Memory and Redis implementations share the same semantics; Redis survives
// process restarts so attempt ceilings hold across deploys.
package attempt

import (
	"context"
	"sync"

	id "patientflow/pkg/domain"
)

// InMemory is a mutex-guarded attempt counter for tests and local runs.
type InMemory struct {
	mu     sync.Mutex
	counts map[id.PatientID]int
}

func NewInMemory() *InMemory {
	return &InMemory{counts: make(map[id.PatientID]int)}
}

func (s *InMemory) Incr(ctx context.Context, patientID id.PatientID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[patientID]++
	return s.counts[patientID], nil
}

func (s *InMemory) Get(ctx context.Context, patientID id.PatientID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[patientID], nil
}

func (s *InMemory) Reset(ctx context.Context, patientID id.PatientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, patientID)
	return nil
}
