package service

import (
	"context"

	"patientflow/internal/billing"
	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
)

// Store is the patient persistence contract consumed by the saga. See
// internal/patient/store for the sentinel error semantics.
type Store interface {
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, patientID id.PatientID) error
	Get(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	List(ctx context.Context) ([]*models.Patient, error)
	SetBillingStatus(ctx context.Context, patientID id.PatientID, status models.BillingStatus, accountID id.AccountID) error
}

// Provisioner converts a patient identity into a billing-account handle.
// Implementations retry internally; an error means the retry budget is spent.
type Provisioner interface {
	Provision(ctx context.Context, patientID id.PatientID, name, email string) (*billing.Account, error)
}

// Publisher durably queues lifecycle events. A nil return is the Ack that the
// event can no longer be lost.
type Publisher interface {
	Publish(ctx context.Context, event models.PatientEvent) error
}
