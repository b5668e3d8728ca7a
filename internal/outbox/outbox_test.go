package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
	"patientflow/pkg/platform/sentinel"
)

type OutboxSuite struct {
	suite.Suite

	store     *InMemory
	publisher *Publisher
}

func TestOutboxSuite(t *testing.T) {
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupTest() {
	s.store = NewInMemory()
	s.publisher = NewPublisher(s.store, slog.New(slog.DiscardHandler), nil)
}

func (s *OutboxSuite) TestPublishQueuesDurably() {
	patientID := id.NewPatientID()
	event := models.PatientEvent{
		Type:          models.EventPatientCreated,
		PatientID:     patientID,
		Name:          "Jordan Wells",
		Email:         "jordan@example.com",
		SchemaVersion: models.EventSchemaVersion,
		EmittedAt:     time.Now(),
	}

	s.Require().NoError(s.publisher.Publish(context.Background(), event))

	batch, err := s.store.NextBatch(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.Equal(patientID.String(), batch[0].Key)
	s.Equal(string(models.EventPatientCreated), batch[0].EventType)

	var decoded models.PatientEvent
	s.Require().NoError(json.Unmarshal(batch[0].Payload, &decoded))
	s.Equal(event.Type, decoded.Type)
	s.Equal(event.PatientID, decoded.PatientID)
	s.Equal(event.Email, decoded.Email)
}

func (s *OutboxSuite) TestSameKeyEntriesDrainInPublishOrder() {
	patientID := id.NewPatientID()
	now := time.Now()
	for _, eventType := range []models.EventType{
		models.EventPatientCreated,
		models.EventPatientUpdated,
		models.EventPatientDeleted,
	} {
		s.Require().NoError(s.publisher.Publish(context.Background(), models.PatientEvent{
			Type:      eventType,
			PatientID: patientID,
			EmittedAt: now, // identical timestamps must not reorder
		}))
	}

	batch, err := s.store.NextBatch(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 3)
	s.Equal(string(models.EventPatientCreated), batch[0].EventType)
	s.Equal(string(models.EventPatientUpdated), batch[1].EventType)
	s.Equal(string(models.EventPatientDeleted), batch[2].EventType)
}

func (s *OutboxSuite) TestMarkSentRemovesEntry() {
	s.Require().NoError(s.publisher.Publish(context.Background(), models.PatientEvent{
		Type:      models.EventPatientCreated,
		PatientID: id.NewPatientID(),
	}))

	batch, err := s.store.NextBatch(context.Background(), 1)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)

	s.Require().NoError(s.store.MarkSent(context.Background(), batch[0].ID))

	count, err := s.store.PendingCount(context.Background())
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *OutboxSuite) TestMarkFailedIncrementsAttemptsAndRequeues() {
	s.Require().NoError(s.publisher.Publish(context.Background(), models.PatientEvent{
		Type:      models.EventPatientCreated,
		PatientID: id.NewPatientID(),
	}))

	batch, _ := s.store.NextBatch(context.Background(), 1)
	s.Require().NoError(s.store.MarkFailed(context.Background(), batch[0].ID))
	s.Require().NoError(s.store.MarkFailed(context.Background(), batch[0].ID))

	batch, _ = s.store.NextBatch(context.Background(), 1)
	s.Require().Len(batch, 1)
	s.Equal(2, batch[0].Attempts)
}

func (s *OutboxSuite) TestMarkUnknownEntryNotFound() {
	s.ErrorIs(s.store.MarkSent(context.Background(), uuid.New()), sentinel.ErrNotFound)
	s.ErrorIs(s.store.MarkFailed(context.Background(), uuid.New()), sentinel.ErrNotFound)
}

func (s *OutboxSuite) TestNextBatchHonorsLimit() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.publisher.Publish(context.Background(), models.PatientEvent{
			Type:      models.EventPatientCreated,
			PatientID: id.NewPatientID(),
		}))
	}

	batch, err := s.store.NextBatch(context.Background(), 3)
	s.Require().NoError(err)
	s.Len(batch, 3)
}
