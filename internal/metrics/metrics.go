package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AllocationMetrics holds the Prometheus collectors for the allocation
// engine. Registered against an explicit registry so tests can build
// isolated instances.
type AllocationMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	ClaimRetriesTotal prometheus.Counter
	EventsQueuedTotal prometheus.Counter
}

// NewAllocationMetrics initializes and registers the collectors.
func NewAllocationMetrics(reg prometheus.Registerer) *AllocationMetrics {
	factory := promauto.With(reg)
	return &AllocationMetrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgstay",
			Subsystem: "allocation",
			Name:      "operations_total",
			Help:      "Allocation engine operations by name and outcome.",
		}, []string{"op", "outcome"}), // outcome: ok, validation, conflict, capacity, precondition, not_found, concurrency, error
		ClaimRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pgstay",
			Subsystem: "allocation",
			Name:      "claim_retries_total",
			Help:      "Bed slot claims retried after losing a race.",
		}),
		EventsQueuedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pgstay",
			Subsystem: "allocation",
			Name:      "events_queued_total",
			Help:      "Occupancy events handed to the outbound sink.",
		}),
	}
}

// RecordOperation counts one engine operation with its outcome label.
func (m *AllocationMetrics) RecordOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordClaimRetry counts one lost claim race.
func (m *AllocationMetrics) RecordClaimRetry() {
	if m == nil {
		return
	}
	m.ClaimRetriesTotal.Inc()
}

// RecordEventQueued counts one event handed to the sink.
func (m *AllocationMetrics) RecordEventQueued() {
	if m == nil {
		return
	}
	m.EventsQueuedTotal.Inc()
}
