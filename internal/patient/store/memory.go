package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
	"patientflow/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded patient store for tests and local development.
// Uniqueness semantics match the Postgres store: the email index is checked
// and the row written under one lock, so concurrent creates with the same
// email admit exactly one.
type InMemory struct {
	mu       sync.RWMutex
	patients map[id.PatientID]*models.Patient
	byEmail  map[string]id.PatientID
}

func NewInMemory() *InMemory {
	return &InMemory{
		patients: make(map[id.PatientID]*models.Patient),
		byEmail:  make(map[string]id.PatientID),
	}
}

func (s *InMemory) Create(ctx context.Context, patient *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(patient.Email)
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrAlreadyUsed
	}

	clone := *patient
	s.patients[patient.ID] = &clone
	s.byEmail[email] = patient.ID
	return nil
}

func (s *InMemory) Update(ctx context.Context, patient *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.patients[patient.ID]
	if !ok {
		return sentinel.ErrNotFound
	}

	email := strings.ToLower(patient.Email)
	if owner, taken := s.byEmail[email]; taken && owner != patient.ID {
		return sentinel.ErrAlreadyUsed
	}

	delete(s.byEmail, strings.ToLower(existing.Email))
	clone := *patient
	s.patients[patient.ID] = &clone
	s.byEmail[email] = patient.ID
	return nil
}

func (s *InMemory) Delete(ctx context.Context, patientID id.PatientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.patients[patientID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(existing.Email))
	delete(s.patients, patientID)
	return nil
}

func (s *InMemory) Get(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.patients[patientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *existing
	return &clone, nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) SetBillingStatus(ctx context.Context, patientID id.PatientID, status models.BillingStatus, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.patients[patientID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.BillingStatus = status
	existing.BillingAccountID = accountID
	return nil
}

func (s *InMemory) ListBillingPending(ctx context.Context, limit int) ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Patient
	for _, p := range s.patients {
		if p.BillingStatus == models.BillingStatusPending {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
