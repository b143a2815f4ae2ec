package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics counts workflow outcomes such as logins, approvals and event
// registrations.
type WorkflowMetrics struct {
	operations *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow counter on reg. A nil registerer
// uses the default Prometheus registry.
func NewWorkflowMetrics(reg prometheus.Registerer, namespace string) (*WorkflowMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "society"
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "operations_total",
		Help:      "Workflow operations partitioned by workflow and outcome.",
	}, []string{"workflow", "outcome"})

	if err := reg.Register(operations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			operations = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &WorkflowMetrics{operations: operations}, nil
}

// RecordOutcome increments the counter for one workflow call.
func (m *WorkflowMetrics) RecordOutcome(workflow, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(workflow, outcome).Inc()
}

// Operations exposes the underlying counter for tests.
func (m *WorkflowMetrics) Operations() *prometheus.CounterVec {
	return m.operations
}
