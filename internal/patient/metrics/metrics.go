// Package metrics provides observability for the patient module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks patient lifecycle operations and the billing saga outcomes.
type Metrics struct {
	PatientsCreated    prometheus.Counter
	PatientsUpdated    prometheus.Counter
	PatientsDeleted    prometheus.Counter
	BillingConfirmed   prometheus.Counter
	BillingDeferred    prometheus.Counter
	BillingReconciled  prometheus.Counter
	OnboardingDuration prometheus.Histogram
}

// New creates a Metrics instance with all patient module metrics registered.
func New() *Metrics {
	return &Metrics{
		PatientsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_patients_created_total",
			Help: "Total number of patients created",
		}),
		PatientsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_patients_updated_total",
			Help: "Total number of patients updated",
		}),
		PatientsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_patients_deleted_total",
			Help: "Total number of patients deleted",
		}),
		BillingConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_billing_confirmed_total",
			Help: "Billing accounts confirmed during onboarding",
		}),
		BillingDeferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_billing_deferred_total",
			Help: "Onboardings that degraded to pending billing after retry exhaustion",
		}),
		BillingReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_billing_reconciled_total",
			Help: "Pending billing accounts recovered by the reconciler",
		}),
		OnboardingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "patientflow_onboarding_duration_seconds",
			Help:    "Duration of the create-patient saga (store + billing + queue)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveOnboarding records the duration of a create saga.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOnboarding(start time.Time) {
	m.OnboardingDuration.Observe(time.Since(start).Seconds())
}
