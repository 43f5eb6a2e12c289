package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors, registered on a private registry
// so tests can build isolated instances. All record methods are nil-safe.
type Metrics struct {
	Registry *prometheus.Registry

	InteractionsTotal *prometheus.CounterVec
	TransitionsTotal  *prometheus.CounterVec
	CallbacksTotal    *prometheus.CounterVec
	SweptApprovals    prometheus.Counter
}

// NewMetrics creates a Metrics with all collectors registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		InteractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunbeam",
			Subsystem: "slack",
			Name:      "interactions_total",
			Help:      "Inbound Slack interactivity requests.",
		}, []string{"kind", "result"}),

		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunbeam",
			Subsystem: "approvals",
			Name:      "transitions_total",
			Help:      "Committed approval status transitions.",
		}, []string{"resource_type", "status"}),

		CallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunbeam",
			Subsystem: "callbacks",
			Name:      "dispatches_total",
			Help:      "Outcome callback dispatch attempts.",
		}, []string{"type", "status"}),

		SweptApprovals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sunbeam",
			Subsystem: "approvals",
			Name:      "swept_total",
			Help:      "Pending approvals flipped to expired by the sweeper.",
		}),
	}

	reg.MustRegister(m.InteractionsTotal, m.TransitionsTotal, m.CallbacksTotal, m.SweptApprovals)
	return m
}

// RecordInteraction counts one inbound interaction by kind and result.
func (m *Metrics) RecordInteraction(kind, result string) {
	if m == nil {
		return
	}
	m.InteractionsTotal.WithLabelValues(kind, result).Inc()
}

// RecordTransition counts one committed status transition.
func (m *Metrics) RecordTransition(resourceType, status string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(resourceType, status).Inc()
}

// RecordCallback counts one callback dispatch attempt.
func (m *Metrics) RecordCallback(callbackType, status string) {
	if m == nil {
		return
	}
	if callbackType == "" {
		callbackType = "none"
	}
	m.CallbacksTotal.WithLabelValues(callbackType, status).Inc()
}

// RecordSwept counts approvals expired by the background sweeper.
func (m *Metrics) RecordSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptApprovals.Add(float64(n))
}
