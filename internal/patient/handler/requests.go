package handler

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"patientflow/internal/patient/models"
	dErrors "patientflow/pkg/domainerrors"
)

const dateLayout = "2006-01-02"

// CreatePatientRequest is the HTTP request body for POST /patients.
type CreatePatientRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	DateOfBirth    string `json:"date_of_birth"`
	RegisteredDate string `json:"registered_date"`

	// Parsed values (populated by Validate)
	parsed models.PatientData
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreatePatientRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	data, err := parsePatientFields(r.Name, r.Email, r.Address, r.DateOfBirth)
	if err != nil {
		return err
	}

	if strings.TrimSpace(r.RegisteredDate) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "registered_date is required")
	}
	registered, err := time.Parse(dateLayout, r.RegisteredDate)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "registered_date must be formatted YYYY-MM-DD")
	}
	data.RegisteredDate = registered

	r.parsed = data
	return nil
}

// ParsedData returns the validated patient data.
func (r *CreatePatientRequest) ParsedData() models.PatientData {
	return r.parsed
}

// UpdatePatientRequest is the HTTP request body for PUT /patients/{id}.
// Registered date is immutable and therefore not accepted here.
type UpdatePatientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`

	parsed models.PatientData
}

// Validate validates and parses the request.
func (r *UpdatePatientRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	data, err := parsePatientFields(r.Name, r.Email, r.Address, r.DateOfBirth)
	if err != nil {
		return err
	}

	r.parsed = data
	return nil
}

// ParsedData returns the validated patient data.
func (r *UpdatePatientRequest) ParsedData() models.PatientData {
	return r.parsed
}

func parsePatientFields(name, email, address, dateOfBirth string) (models.PatientData, error) {
	var data models.PatientData

	name = strings.TrimSpace(name)
	if name == "" {
		return data, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}

	email = strings.TrimSpace(email)
	if !govalidator.IsEmail(email) {
		return data, dErrors.New(dErrors.CodeBadRequest, "email must be a valid address")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return data, dErrors.New(dErrors.CodeBadRequest, "address is required")
	}

	if strings.TrimSpace(dateOfBirth) == "" {
		return data, dErrors.New(dErrors.CodeBadRequest, "date_of_birth is required")
	}
	dob, err := time.Parse(dateLayout, dateOfBirth)
	if err != nil {
		return data, dErrors.New(dErrors.CodeBadRequest, "date_of_birth must be formatted YYYY-MM-DD")
	}

	data.Name = name
	data.Email = email
	data.Address = address
	data.DateOfBirth = dob
	return data, nil
}
