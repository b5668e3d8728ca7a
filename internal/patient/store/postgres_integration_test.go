//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
	"patientflow/pkg/platform/sentinel"
	"patientflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite

	pg    *containers.PostgresContainer
	store *Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) newPatient(email string) *models.Patient {
	now := time.Now().UTC().Truncate(time.Microsecond)
	patient, err := models.NewPatient(id.NewPatientID(), models.PatientData{
		Name:           "Jordan Wells",
		Email:          email,
		Address:        "12 Harbour St",
		DateOfBirth:    time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
		RegisteredDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}, now)
	s.Require().NoError(err)
	return patient
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	patient := s.newPatient("jordan@example.com")
	s.Require().NoError(s.store.Create(context.Background(), patient))

	got, err := s.store.Get(context.Background(), patient.ID)
	s.Require().NoError(err)
	s.Equal(patient.ID, got.ID)
	s.Equal("jordan@example.com", got.Email)
	s.Equal(models.BillingStatusPending, got.BillingStatus)
}

func (s *PostgresStoreSuite) TestCreateDuplicateEmailCaseInsensitive() {
	s.Require().NoError(s.store.Create(context.Background(), s.newPatient("dup@example.com")))

	dup := s.newPatient("other@example.com")
	dup.Email = "DUP@example.com"
	s.ErrorIs(s.store.Create(context.Background(), dup), sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestConcurrentCreatesSameEmailOneWins() {
	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.Create(context.Background(), s.newPatient("race@example.com"))
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
			conflicts++
		}
	}
	s.Equal(1, successes)
	s.Equal(workers-1, conflicts)
}

func (s *PostgresStoreSuite) TestUpdateMissingPatientNotFound() {
	patient := s.newPatient("ghost@example.com")
	s.ErrorIs(s.store.Update(context.Background(), patient), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeleteFreesEmail() {
	patient := s.newPatient("reuse@example.com")
	s.Require().NoError(s.store.Create(context.Background(), patient))
	s.Require().NoError(s.store.Delete(context.Background(), patient.ID))

	s.NoError(s.store.Create(context.Background(), s.newPatient("reuse@example.com")))
}

func (s *PostgresStoreSuite) TestSetBillingStatusClearsPendingList() {
	patient := s.newPatient("pending@example.com")
	s.Require().NoError(s.store.Create(context.Background(), patient))

	pending, err := s.store.ListBillingPending(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)

	s.Require().NoError(s.store.SetBillingStatus(context.Background(), patient.ID, models.BillingStatusActive, "acct-42"))

	pending, err = s.store.ListBillingPending(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(pending)

	got, err := s.store.Get(context.Background(), patient.ID)
	s.Require().NoError(err)
	s.Equal(models.BillingStatusActive, got.BillingStatus)
	s.Equal(id.AccountID("acct-42"), got.BillingAccountID)
}

func (s *PostgresStoreSuite) TestListBillingPendingOrdersOldestFirst() {
	first := s.newPatient("a@example.com")
	s.Require().NoError(s.store.Create(context.Background(), first))

	second := s.newPatient("b@example.com")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	s.Require().NoError(s.store.Create(context.Background(), second))

	pending, err := s.store.ListBillingPending(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(first.ID, pending[0].ID)
	s.Equal(second.ID, pending[1].ID)
}
