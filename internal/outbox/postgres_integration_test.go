//go:build integration

package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"patientflow/pkg/platform/sentinel"
	"patientflow/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite

	pg    *containers.PostgresContainer
	store *Postgres
}

func TestPostgresOutboxSuite(t *testing.T) {
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresOutboxSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func (s *PostgresOutboxSuite) newEntry(key string, createdAt time.Time) Entry {
	return Entry{
		ID:        uuid.New(),
		Key:       key,
		EventType: "patient_created",
		Payload:   []byte(`{"event_type":"patient_created"}`),
		CreatedAt: createdAt,
	}
}

func (s *PostgresOutboxSuite) TestAppendAndDrain() {
	now := time.Now().UTC()
	entry := s.newEntry("patient-1", now)
	s.Require().NoError(s.store.Append(context.Background(), entry))

	batch, err := s.store.NextBatch(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.Equal(entry.ID, batch[0].ID)
	s.JSONEq(`{"event_type":"patient_created"}`, string(batch[0].Payload))

	s.Require().NoError(s.store.MarkSent(context.Background(), entry.ID))

	count, err := s.store.PendingCount(context.Background())
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *PostgresOutboxSuite) TestBatchOrdersByCreation() {
	base := time.Now().UTC()
	second := s.newEntry("patient-1", base.Add(time.Second))
	first := s.newEntry("patient-1", base)
	s.Require().NoError(s.store.Append(context.Background(), second))
	s.Require().NoError(s.store.Append(context.Background(), first))

	batch, err := s.store.NextBatch(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 2)
	s.Equal(first.ID, batch[0].ID)
	s.Equal(second.ID, batch[1].ID)
}

func (s *PostgresOutboxSuite) TestMarkFailedRequeuesWithAttempts() {
	entry := s.newEntry("patient-1", time.Now().UTC())
	s.Require().NoError(s.store.Append(context.Background(), entry))

	s.Require().NoError(s.store.MarkFailed(context.Background(), entry.ID))
	s.Require().NoError(s.store.MarkFailed(context.Background(), entry.ID))

	batch, err := s.store.NextBatch(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.Equal(2, batch[0].Attempts)
}

func (s *PostgresOutboxSuite) TestSentEntriesCannotBeMarkedAgain() {
	entry := s.newEntry("patient-1", time.Now().UTC())
	s.Require().NoError(s.store.Append(context.Background(), entry))
	s.Require().NoError(s.store.MarkSent(context.Background(), entry.ID))

	s.ErrorIs(s.store.MarkSent(context.Background(), entry.ID), sentinel.ErrNotFound)
	s.ErrorIs(s.store.MarkFailed(context.Background(), entry.ID), sentinel.ErrNotFound)
}
