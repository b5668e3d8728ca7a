// Package domain defines typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a PatientID can never be passed where an AccountID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "patientflow/pkg/domainerrors"
)

// PatientID identifies a patient record. Assigned at creation, immutable.
type PatientID uuid.UUID

// AccountID identifies a billing account held by the external provisioner.
type AccountID string

// NewPatientID returns a fresh random patient ID.
func NewPatientID() PatientID {
	return PatientID(uuid.New())
}

// ParsePatientID validates and returns a PatientID.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParsePatientID(s string) (PatientID, error) {
	if s == "" {
		return PatientID{}, dErrors.New(dErrors.CodeBadRequest, "patient id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return PatientID{}, dErrors.New(dErrors.CodeBadRequest, "patient id must be a valid UUID")
	}
	if u == uuid.Nil {
		return PatientID{}, dErrors.New(dErrors.CodeBadRequest, "patient id must not be nil")
	}
	return PatientID(u), nil
}

// String returns the canonical UUID string form.
func (id PatientID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero value.
func (id PatientID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText encodes the ID as its UUID string so JSON payloads carry the
// canonical form rather than a byte array.
func (id PatientID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID string form.
func (id *PatientID) UnmarshalText(text []byte) error {
	parsed, err := ParsePatientID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
