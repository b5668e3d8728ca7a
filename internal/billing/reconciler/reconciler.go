// Package reconciler recovers patients whose billing provisioning failed
// during onboarding. The saga leaves them durably marked pending; this worker
// re-provisions them in the background until success or the attempt ceiling.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"patientflow/internal/billing"
	"patientflow/internal/patient/metrics"
	"patientflow/internal/patient/models"
	"patientflow/internal/platform/config"
	id "patientflow/pkg/domain"
)

// Store is the slice of the patient store the reconciler needs.
type Store interface {
	ListBillingPending(ctx context.Context, limit int) ([]*models.Patient, error)
	SetBillingStatus(ctx context.Context, patientID id.PatientID, status models.BillingStatus, accountID id.AccountID) error
}

// Provisioner matches the billing client.
type Provisioner interface {
	Provision(ctx context.Context, patientID id.PatientID, name, email string) (*billing.Account, error)
}

// Reconciler periodically re-provisions billing-pending patients.
type Reconciler struct {
	store       Store
	provisioner Provisioner
	attempts    billing.AttemptStore
	logger      *slog.Logger
	metrics     *metrics.Metrics
	cfg         config.ReconcilerConfig
}

func New(store Store, provisioner Provisioner, attempts billing.AttemptStore, cfg config.ReconcilerConfig, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:       store,
		provisioner: provisioner,
		attempts:    attempts,
		logger:      logger,
		metrics:     m,
		cfg:         cfg,
	}
}

// Run reconciles until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reconcileOnce(ctx)
		}
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) {
	pending, err := r.store.ListBillingPending(ctx, r.cfg.BatchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "billing pending scan failed", "error", err.Error())
		return
	}

	for _, patient := range pending {
		attempts, err := r.attempts.Get(ctx, patient.ID)
		if err != nil {
			r.logger.WarnContext(ctx, "billing attempt read failed",
				"patient_id", patient.ID.String(),
				"error", err.Error(),
			)
		}
		if attempts >= r.cfg.MaxAttempts {
			// Past the ceiling the patient needs an operator, not another
			// automatic retry.
			r.logger.ErrorContext(ctx, "billing provisioning exhausted, manual intervention required",
				"patient_id", patient.ID.String(),
				"attempts", attempts,
			)
			continue
		}

		account, err := r.provisioner.Provision(ctx, patient.ID, patient.Name, patient.Email)
		if err != nil {
			r.logger.WarnContext(ctx, "billing re-provision failed, will retry",
				"patient_id", patient.ID.String(),
				"attempts", attempts+1,
				"error", err.Error(),
			)
			continue
		}

		if err := r.store.SetBillingStatus(ctx, patient.ID, models.BillingStatusActive, account.AccountID); err != nil {
			r.logger.ErrorContext(ctx, "billing confirmation write failed",
				"patient_id", patient.ID.String(),
				"error", err.Error(),
			)
			continue
		}

		if r.metrics != nil {
			r.metrics.BillingReconciled.Inc()
		}
		r.logger.InfoContext(ctx, "billing account reconciled",
			"patient_id", patient.ID.String(),
			"account_id", string(account.AccountID),
		)
	}
}
