// Package store persists patient records. Implementations enforce email
// uniqueness atomically at the storage layer; callers must treat
// sentinel.ErrAlreadyUsed from Create/Update as authoritative even when an
// earlier pre-check passed.
package store

import (
	"context"

	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
)

// Store is the patient persistence contract.
//
// Create and Update return sentinel.ErrAlreadyUsed when the email collides
// with a different record, and sentinel.ErrNotFound when the target id is
// absent. The uniqueness check on Update excludes the record being updated.
type Store interface {
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, patientID id.PatientID) error
	Get(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	List(ctx context.Context) ([]*models.Patient, error)

	// SetBillingStatus durably records the billing outcome for a patient.
	// Used by the saga after provisioning and by the reconciler.
	SetBillingStatus(ctx context.Context, patientID id.PatientID, status models.BillingStatus, accountID id.AccountID) error

	// ListBillingPending returns up to limit patients awaiting billing
	// provisioning, oldest first.
	ListBillingPending(ctx context.Context, limit int) ([]*models.Patient, error)
}
