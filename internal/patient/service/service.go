// Package service contains the onboarding saga: the sequence that keeps the
// patient store, the remote billing provisioner, and the event stream in an
// acceptable consistency state when any of them fails independently.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"patientflow/internal/billing"
	"patientflow/internal/patient/metrics"
	"patientflow/internal/patient/models"
	id "patientflow/pkg/domain"
	dErrors "patientflow/pkg/domainerrors"
	"patientflow/pkg/platform/sentinel"
	"patientflow/pkg/requestcontext"
)

// BillingFailurePolicy decides what happens when provisioning exhausts its
// retry budget during create. The choice is explicit, not accidental.
type BillingFailurePolicy int

const (
	// PolicyDeferred keeps the stored patient, leaves its billing status
	// pending, and lets the reconciler re-provision in the background. The
	// caller still sees success. This is the default: rolling back destroys
	// data the caller may already believe exists.
	PolicyDeferred BillingFailurePolicy = iota
	// PolicyCompensate deletes the just-created patient and surfaces the
	// provisioning error (strict consistency at the cost of availability).
	PolicyCompensate
)

// PatientService orchestrates patient lifecycle operations across the store,
// the billing provisioner, and the event publisher.
type PatientService struct {
	store   Store
	billing Provisioner
	events  Publisher

	policy        BillingFailurePolicy
	billingBudget time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
	locks         *keyedMutex
	tracer        trace.Tracer
}

// Option configures the PatientService.
type Option func(*PatientService)

// WithLogger sets a logger for saga progress and escalations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *PatientService) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PatientService) { s.metrics = m }
}

// WithBillingFailurePolicy overrides the billing failure policy.
func WithBillingFailurePolicy(policy BillingFailurePolicy) Option {
	return func(s *PatientService) { s.policy = policy }
}

// WithBillingBudget bounds the total wall time granted to the provisioning
// call including its internal retries.
func WithBillingBudget(budget time.Duration) Option {
	return func(s *PatientService) { s.billingBudget = budget }
}

func New(store Store, billing Provisioner, events Publisher, opts ...Option) *PatientService {
	s := &PatientService{
		store:         store,
		billing:       billing,
		events:        events,
		policy:        PolicyDeferred,
		billingBudget: 30 * time.Second,
		logger:        slog.New(slog.DiscardHandler),
		locks:         newKeyedMutex(),
		tracer:        otel.Tracer("patientflow/patient"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create runs the onboarding saga:
//
//	PENDING → STORED → {BILLING_CONFIRMED | BILLING_FAILED} → {EVENT_PUBLISHED | EVENT_FAILED}
//
// A duplicate email terminates in PENDING with a conflict; no billing call is
// made and no event is published. Billing failure after retries follows the
// configured policy. Event-publish failure never fails the caller.
func (s *PatientService) Create(ctx context.Context, data models.PatientData) (*models.Patient, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "patient.create")
	defer span.End()

	patient, err := models.NewPatient(id.NewPatientID(), data, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("patient.id", patient.ID.String()))

	unlock := s.locks.Lock(patient.ID)
	defer unlock()

	state := StatePending

	// The unique index is the correctness mechanism; a constraint violation
	// here is authoritative regardless of any earlier pre-check.
	if err := s.store.Create(ctx, patient); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "a patient with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create patient")
	}
	s.transition(ctx, patient.ID, &state, StateStored)

	account, billingErr := s.provision(ctx, patient)
	if billingErr != nil {
		s.transition(ctx, patient.ID, &state, StateBillingFailed)

		if s.policy == PolicyCompensate {
			s.transition(ctx, patient.ID, &state, StateCompensated)
			if delErr := s.store.Delete(ctx, patient.ID); delErr != nil {
				s.logger.ErrorContext(ctx, "compensation delete failed",
					"patient_id", patient.ID.String(),
					"error", delErr.Error(),
				)
			}
			return nil, dErrors.Wrap(billingErr, dErrors.CodeUnavailable, "billing provisioning failed")
		}

		// Policy deferred: the row keeps billing_status=pending, which is the
		// durable marker the reconciler scans for. The caller still succeeds.
		s.incBillingDeferred()
		s.logger.WarnContext(ctx, "billing provisioning deferred to reconciler",
			"patient_id", patient.ID.String(),
			"error", billingErr.Error(),
		)
	} else {
		s.transition(ctx, patient.ID, &state, StateBillingConfirmed)
		s.incBillingConfirmed()
		patient.ConfirmBilling(account.AccountID, requestcontext.Now(ctx))
		// Record the confirmation on a context that outlives the caller: the
		// outcome of a dispatched provisioning call must land durably.
		if err := s.store.SetBillingStatus(context.WithoutCancel(ctx), patient.ID, models.BillingStatusActive, account.AccountID); err != nil {
			// The reconciler will re-provision; the remote side de-duplicates.
			s.logger.ErrorContext(ctx, "billing confirmation write failed",
				"patient_id", patient.ID.String(),
				"error", err.Error(),
			)
		}
	}

	if s.publishEvent(ctx, models.NewPatientEvent(models.EventPatientCreated, patient, requestcontext.Now(ctx))) {
		s.transition(ctx, patient.ID, &state, StateEventPublished)
	} else {
		s.transition(ctx, patient.ID, &state, StateEventFailed)
	}

	s.incPatientsCreated()
	s.observeOnboarding(start)
	return patient, nil
}

// provision runs the billing call on a context detached from the caller, so a
// client disconnect cannot abandon an in-flight call; it runs to completion
// or timeout and its result still advances the state machine.
func (s *PatientService) provision(ctx context.Context, patient *models.Patient) (*billing.Account, error) {
	billingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.billingBudget)
	defer cancel()

	return s.billing.Provision(billingCtx, patient.ID, patient.Name, patient.Email)
}

// Update mutates the patient in place and publishes an updated event. Billing
// is not re-provisioned on update.
func (s *PatientService) Update(ctx context.Context, patientID id.PatientID, data models.PatientData) (*models.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "patient.update")
	defer span.End()
	span.SetAttributes(attribute.String("patient.id", patientID.String()))

	unlock := s.locks.Lock(patientID)
	defer unlock()

	patient, err := s.store.Get(ctx, patientID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	if err := patient.ApplyUpdate(data, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	// The uniqueness re-check excludes the record being updated; keeping the
	// same email never conflicts with itself.
	if err := s.store.Update(ctx, patient); err != nil {
		return nil, wrapStoreErr(err)
	}

	s.publishEvent(ctx, models.NewPatientEvent(models.EventPatientUpdated, patient, requestcontext.Now(ctx)))

	s.incPatientsUpdated()
	return patient, nil
}

// Delete removes the patient and publishes a deleted event. Billing teardown
// is a downstream reconciliation concern, never a synchronous step.
func (s *PatientService) Delete(ctx context.Context, patientID id.PatientID) error {
	ctx, span := s.tracer.Start(ctx, "patient.delete")
	defer span.End()
	span.SetAttributes(attribute.String("patient.id", patientID.String()))

	unlock := s.locks.Lock(patientID)
	defer unlock()

	patient, err := s.store.Get(ctx, patientID)
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := s.store.Delete(ctx, patientID); err != nil {
		return wrapStoreErr(err)
	}

	s.publishEvent(ctx, models.NewPatientEvent(models.EventPatientDeleted, patient, requestcontext.Now(ctx)))

	s.incPatientsDeleted()
	return nil
}

// Get returns one patient by id.
func (s *PatientService) Get(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	patient, err := s.store.Get(ctx, patientID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return patient, nil
}

// List returns all patients.
func (s *PatientService) List(ctx context.Context) ([]*models.Patient, error) {
	patients, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list patients")
	}
	return patients, nil
}

// publishEvent queues a lifecycle event and reports whether it was durably
// queued. Failure is non-fatal to the caller but escalates to an
// operator-visible log line for reconciliation.
func (s *PatientService) publishEvent(ctx context.Context, event models.PatientEvent) bool {
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.ErrorContext(ctx, "lifecycle event not queued, manual reconciliation needed",
			"patient_id", event.PatientID.String(),
			"event_type", string(event.Type),
			"error", err.Error(),
		)
		return false
	}
	return true
}

func (s *PatientService) transition(ctx context.Context, patientID id.PatientID, state *State, next State) {
	if !state.CanTransition(next) {
		s.logger.ErrorContext(ctx, "illegal saga transition",
			"patient_id", patientID.String(),
			"from", string(*state),
			"to", string(next),
		)
		return
	}
	s.logger.DebugContext(ctx, "saga transition",
		"patient_id", patientID.String(),
		"from", string(*state),
		"to", string(next),
	)
	*state = next
}

func wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "patient not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "a patient with this email already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "patient store failure")
	}
}

func (s *PatientService) incPatientsCreated() {
	if s.metrics != nil {
		s.metrics.PatientsCreated.Inc()
	}
}

func (s *PatientService) incPatientsUpdated() {
	if s.metrics != nil {
		s.metrics.PatientsUpdated.Inc()
	}
}

func (s *PatientService) incPatientsDeleted() {
	if s.metrics != nil {
		s.metrics.PatientsDeleted.Inc()
	}
}

func (s *PatientService) incBillingConfirmed() {
	if s.metrics != nil {
		s.metrics.BillingConfirmed.Inc()
	}
}

func (s *PatientService) incBillingDeferred() {
	if s.metrics != nil {
		s.metrics.BillingDeferred.Inc()
	}
}

func (s *PatientService) observeOnboarding(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOnboarding(start)
	}
}
