package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics counts payment reconciliation outcomes per path.
type ReconcileMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation counter on reg.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconcile_total",
		Help: "Payment reconciliation attempts by source and outcome.",
	}, []string{"source", "outcome"})
	reg.MustRegister(outcomes)
	return &ReconcileMetrics{outcomes: outcomes}
}

// Observe records one reconciliation attempt.
func (m *ReconcileMetrics) Observe(source, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}
