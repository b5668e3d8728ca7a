// Package metrics provides observability for the event outbox and relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks queueing and delivery on the event pipeline.
type Metrics struct {
	EventsQueued      prometheus.Counter
	EventsDelivered   prometheus.Counter
	DeliveryFailures  prometheus.Counter
	DeliveryEscalated prometheus.Counter
	PendingDepth      prometheus.Gauge
}

// New creates a Metrics instance with all outbox metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_outbox_events_queued_total",
			Help: "Total events durably queued in the outbox",
		}),
		EventsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_outbox_events_delivered_total",
			Help: "Total events delivered to the event stream",
		}),
		DeliveryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_outbox_delivery_failures_total",
			Help: "Total failed delivery attempts (entries are retried)",
		}),
		DeliveryEscalated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "patientflow_outbox_delivery_escalated_total",
			Help: "Entries whose attempts exceeded the alert threshold",
		}),
		PendingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "patientflow_outbox_pending_depth",
			Help: "Entries currently waiting in the outbox",
		}),
	}
}
