package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
	"patientflow/pkg/platform/sentinel"
)

// Postgres persists patients in PostgreSQL. The unique index on
// lower(email) is the single source of truth for email uniqueness; this store
// never does a check-then-insert.
//
// Schema:
//
//	CREATE TABLE patients (
//	    id                 UUID PRIMARY KEY,
//	    name               TEXT NOT NULL,
//	    email              TEXT NOT NULL,
//	    address            TEXT NOT NULL,
//	    date_of_birth      DATE NOT NULL,
//	    registered_date    DATE NOT NULL,
//	    billing_status     TEXT NOT NULL DEFAULT 'pending',
//	    billing_account_id TEXT NOT NULL DEFAULT '',
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX patients_email_unique ON patients (lower(email));
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is the unique index rejecting a
// duplicate email.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Postgres) Create(ctx context.Context, patient *models.Patient) error {
	query := `
		INSERT INTO patients (id, name, email, address, date_of_birth, registered_date,
			billing_status, billing_account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(patient.ID),
		patient.Name,
		patient.Email,
		patient.Address,
		patient.DateOfBirth,
		patient.RegisteredDate,
		string(patient.BillingStatus),
		string(patient.BillingAccountID),
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, patient *models.Patient) error {
	query := `
		UPDATE patients
		SET name = $2, email = $3, address = $4, date_of_birth = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(patient.ID),
		patient.Name,
		patient.Email,
		patient.Address,
		patient.DateOfBirth,
		patient.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update patient: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update patient rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, patientID id.PatientID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, uuid.UUID(patientID))
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete patient rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const patientColumns = `id, name, email, address, date_of_birth, registered_date,
	billing_status, billing_account_id, created_at, updated_at`

func (s *Postgres) Get(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	patient, err := scanPatient(s.db.QueryRowContext(ctx, query, uuid.UUID(patientID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return patient, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()
	return scanPatients(rows)
}

func (s *Postgres) SetBillingStatus(ctx context.Context, patientID id.PatientID, status models.BillingStatus, accountID id.AccountID) error {
	query := `
		UPDATE patients
		SET billing_status = $2, billing_account_id = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(patientID), string(status), string(accountID))
	if err != nil {
		return fmt.Errorf("set billing status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set billing status rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListBillingPending(ctx context.Context, limit int) ([]*models.Patient, error) {
	query := `SELECT ` + patientColumns + `
		FROM patients
		WHERE billing_status = 'pending'
		ORDER BY created_at
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list billing pending: %w", err)
	}
	defer rows.Close()
	return scanPatients(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*models.Patient, error) {
	var (
		p         models.Patient
		patientID uuid.UUID
		status    string
		accountID string
	)
	err := row.Scan(
		&patientID,
		&p.Name,
		&p.Email,
		&p.Address,
		&p.DateOfBirth,
		&p.RegisteredDate,
		&status,
		&accountID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ID = id.PatientID(patientID)
	p.BillingStatus = models.BillingStatus(status)
	p.BillingAccountID = id.AccountID(accountID)
	return &p, nil
}

func scanPatients(rows *sql.Rows) ([]*models.Patient, error) {
	var patients []*models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}
