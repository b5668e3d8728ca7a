package models

import (
	"time"

	id "patientflow/pkg/domain"
)

// EventType classifies a patient lifecycle transition.
type EventType string

const (
	EventPatientCreated EventType = "patient_created"
	EventPatientUpdated EventType = "patient_updated"
	EventPatientDeleted EventType = "patient_deleted"
)

// EventSchemaVersion is stamped on every emitted event so downstream
// consumers can handle shape changes.
const EventSchemaVersion = 1

// PatientEvent is the immutable fact emitted once per successful lifecycle
// transition. Consumers key on PatientID; the transport partitions by it so
// per-patient ordering holds.
type PatientEvent struct {
	Type          EventType    `json:"event_type"`
	PatientID     id.PatientID `json:"patient_id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	SchemaVersion int          `json:"schema_version"`
	EmittedAt     time.Time    `json:"emitted_at"`
}

// NewPatientEvent builds an event from the current record state.
func NewPatientEvent(eventType EventType, p *Patient, now time.Time) PatientEvent {
	return PatientEvent{
		Type:          eventType,
		PatientID:     p.ID,
		Name:          p.Name,
		Email:         p.Email,
		SchemaVersion: EventSchemaVersion,
		EmittedAt:     now,
	}
}
