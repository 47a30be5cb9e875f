package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics records orchestrator outcomes.
type EscrowMetrics struct {
	duration      *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewEscrowMetrics registers the escrow metrics on the provided registerer.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	if reg == nil {
		return &EscrowMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escrow_operation_duration_seconds",
		Help:    "Duration of escrow operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_operations_total",
		Help: "Escrow operations by outcome code.",
	}, []string{"operation", "outcome"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_compensations_total",
		Help: "Compensating wallet adjustments by result.",
	}, []string{"operation", "result"})
	reg.MustRegister(duration, outcomes, compensations)
	return &EscrowMetrics{
		duration:      duration,
		outcomes:      outcomes,
		compensations: compensations,
	}
}

// Observe records one finished operation. An empty outcome counts as "ok".
func (m *EscrowMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	operation = normalizeLabel(operation)
	if outcome == "" {
		outcome = "ok"
	}
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

// IncCompensation counts a compensating adjustment; ok=false means it failed too.
func (m *EscrowMetrics) IncCompensation(operation string, ok bool) {
	if m == nil || m.compensations == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.compensations.WithLabelValues(normalizeLabel(operation), result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
