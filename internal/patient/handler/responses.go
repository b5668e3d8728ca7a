package handler

import (
	"time"

	"patientflow/internal/patient/models"
)

// PatientResponse is the HTTP representation of a patient record.
type PatientResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	DateOfBirth      string `json:"date_of_birth"`
	RegisteredDate   string `json:"registered_date"`
	BillingStatus    string `json:"billing_status"`
	BillingAccountID string `json:"billing_account_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromPatient converts a domain patient to its HTTP representation.
func FromPatient(p *models.Patient) *PatientResponse {
	return &PatientResponse{
		ID:               p.ID.String(),
		Name:             p.Name,
		Email:            p.Email,
		Address:          p.Address,
		DateOfBirth:      p.DateOfBirth.Format(dateLayout),
		RegisteredDate:   p.RegisteredDate.Format(dateLayout),
		BillingStatus:    string(p.BillingStatus),
		BillingAccountID: string(p.BillingAccountID),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// FromPatients converts a patient list.
func FromPatients(patients []*models.Patient) []*PatientResponse {
	out := make([]*PatientResponse, 0, len(patients))
	for _, p := range patients {
		out = append(out, FromPatient(p))
	}
	return out
}
