package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
	"patientflow/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newPatient(email string) *models.Patient {
	now := time.Now()
	p, err := models.NewPatient(id.NewPatientID(), models.PatientData{
		Name:           "Ann Example",
		Email:          email,
		Address:        "12 Main St",
		DateOfBirth:    time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		RegisteredDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, now)
	s.Require().NoError(err)
	return p
}

func (s *MemoryStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds patient by ID", func() {
		p := s.newPatient("ann@x.com")
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.Email, found.Email)
		s.Equal(models.BillingStatusPending, found.BillingStatus)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.Get(s.ctx, id.NewPatientID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("lists patients in creation order", func() {
		first := s.newPatient("first@x.com")
		second := s.newPatient("second@x.com")
		second.CreatedAt = first.CreatedAt.Add(time.Second)
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))

		all, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 3) // includes patient from first subtest
	})
}

func (s *MemoryStoreSuite) TestEmailUniqueness() {
	s.Run("rejects duplicate email", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newPatient("dup@x.com")))

		err := s.store.Create(s.ctx, s.newPatient("dup@x.com"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("enforces case-insensitive uniqueness", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newPatient("case@x.com")))

		dup := s.newPatient("other@x.com")
		dup.Email = "CASE@x.com"
		err := s.store.Create(s.ctx, dup)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("concurrent creates with same email admit exactly one", func() {
		const goroutines = 20
		var wg sync.WaitGroup
		var successes, conflicts atomic.Int32

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.store.Create(s.ctx, s.newPatient("race@x.com"))
				switch {
				case err == nil:
					successes.Add(1)
				default:
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		s.Equal(int32(1), successes.Load())
		s.Equal(int32(goroutines-1), conflicts.Load())
	})
}

func (s *MemoryStoreSuite) TestUpdate() {
	s.Run("update keeping own email does not conflict with itself", func() {
		p := s.newPatient("keep@x.com")
		s.Require().NoError(s.store.Create(s.ctx, p))

		s.Require().NoError(p.ApplyUpdate(models.PatientData{
			Name:        "Ann Renamed",
			Email:       "keep@x.com",
			Address:     "34 Side St",
			DateOfBirth: p.DateOfBirth,
		}, time.Now()))
		s.Require().NoError(s.store.Update(s.ctx, p))

		found, err := s.store.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal("Ann Renamed", found.Name)
	})

	s.Run("update to another patient's email conflicts", func() {
		a := s.newPatient("a@x.com")
		b := s.newPatient("b@x.com")
		s.Require().NoError(s.store.Create(s.ctx, a))
		s.Require().NoError(s.store.Create(s.ctx, b))

		b.Email = "a@x.com"
		s.Require().ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrAlreadyUsed)
	})

	s.Run("update of missing patient returns ErrNotFound", func() {
		ghost := s.newPatient("ghost@x.com")
		s.Require().ErrorIs(s.store.Update(s.ctx, ghost), sentinel.ErrNotFound)
	})

	s.Run("email change frees the previous email", func() {
		p := s.newPatient("old@x.com")
		s.Require().NoError(s.store.Create(s.ctx, p))

		p.Email = "new@x.com"
		s.Require().NoError(s.store.Update(s.ctx, p))

		s.Require().NoError(s.store.Create(s.ctx, s.newPatient("old@x.com")))
	})
}

func (s *MemoryStoreSuite) TestDelete() {
	s.Run("delete removes record and frees email", func() {
		p := s.newPatient("gone@x.com")
		s.Require().NoError(s.store.Create(s.ctx, p))
		s.Require().NoError(s.store.Delete(s.ctx, p.ID))

		_, err := s.store.Get(s.ctx, p.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.store.Create(s.ctx, s.newPatient("gone@x.com")))
	})

	s.Run("delete of missing patient returns ErrNotFound", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, id.NewPatientID()), sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestBillingStatus() {
	s.Run("pending patients are listed oldest first", func() {
		older := s.newPatient("older@x.com")
		newer := s.newPatient("newer@x.com")
		newer.CreatedAt = older.CreatedAt.Add(time.Minute)
		s.Require().NoError(s.store.Create(s.ctx, newer))
		s.Require().NoError(s.store.Create(s.ctx, older))

		pending, err := s.store.ListBillingPending(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(pending, 2)
		s.Equal(older.ID, pending[0].ID)
	})

	s.Run("confirmed patients leave the pending list", func() {
		p := s.newPatient("confirmed@x.com")
		s.Require().NoError(s.store.Create(s.ctx, p))
		s.Require().NoError(s.store.SetBillingStatus(s.ctx, p.ID, models.BillingStatusActive, "acct-1"))

		pending, err := s.store.ListBillingPending(s.ctx, 10)
		s.Require().NoError(err)
		for _, candidate := range pending {
			s.NotEqual(p.ID, candidate.ID)
		}

		found, err := s.store.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.BillingStatusActive, found.BillingStatus)
		s.Equal(id.AccountID("acct-1"), found.BillingAccountID)
	})

	s.Run("set billing status on missing patient returns ErrNotFound", func() {
		err := s.store.SetBillingStatus(s.ctx, id.NewPatientID(), models.BillingStatusActive, "acct-x")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
