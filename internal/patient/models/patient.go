// Package models holds the patient entity and its lifecycle facts. The
// entity owns its own validation so stores and services cannot persist an
// invalid record.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "patientflow/pkg/domainerrors"
	id "patientflow/pkg/domain"
)

// BillingStatus marks whether the external billing account for a patient has
// been confirmed. Pending records are picked up by the reconciler.
type BillingStatus string

const (
	BillingStatusPending BillingStatus = "pending"
	BillingStatusActive  BillingStatus = "active"
)

// Patient is the authoritative patient record. Owned exclusively by the
// patient store; everything else handles it by value.
type Patient struct {
	ID             id.PatientID
	Name           string
	Email          string
	Address        string
	DateOfBirth    time.Time
	RegisteredDate time.Time

	BillingStatus    BillingStatus
	BillingAccountID id.AccountID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PatientData is the validated mutable attribute set used for create and
// update. RegisteredDate is only honored at creation.
type PatientData struct {
	Name           string
	Email          string
	Address        string
	DateOfBirth    time.Time
	RegisteredDate time.Time
}

const maxNameLength = 100

// Validate enforces the field invariants shared by create and update.
func (d PatientData) Validate(requireRegisteredDate bool) error {
	if strings.TrimSpace(d.Name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if len(d.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeBadRequest, "name must not exceed 100 characters")
	}
	if !govalidator.IsEmail(d.Email) {
		return dErrors.New(dErrors.CodeBadRequest, "email must be a valid address")
	}
	if strings.TrimSpace(d.Address) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "address is required")
	}
	if d.DateOfBirth.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "date of birth is required")
	}
	if requireRegisteredDate && d.RegisteredDate.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "registered date is required")
	}
	return nil
}

// NewPatient builds a patient from validated creation data. Billing starts
// pending until the provisioner confirms an account.
func NewPatient(patientID id.PatientID, data PatientData, now time.Time) (*Patient, error) {
	if err := data.Validate(true); err != nil {
		return nil, err
	}
	return &Patient{
		ID:             patientID,
		Name:           data.Name,
		Email:          strings.ToLower(data.Email),
		Address:        data.Address,
		DateOfBirth:    data.DateOfBirth,
		RegisteredDate: data.RegisteredDate,
		BillingStatus:  BillingStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ApplyUpdate mutates the record in place from validated update data.
// RegisteredDate is immutable after creation.
func (p *Patient) ApplyUpdate(data PatientData, now time.Time) error {
	if err := data.Validate(false); err != nil {
		return err
	}
	p.Name = data.Name
	p.Email = strings.ToLower(data.Email)
	p.Address = data.Address
	p.DateOfBirth = data.DateOfBirth
	p.UpdatedAt = now
	return nil
}

// ConfirmBilling records the provisioned account handle.
func (p *Patient) ConfirmBilling(accountID id.AccountID, now time.Time) {
	p.BillingStatus = BillingStatusActive
	p.BillingAccountID = accountID
	p.UpdatedAt = now
}
