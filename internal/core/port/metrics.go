package port

// WorkflowMetrics records the outcome of workflow calls.
type WorkflowMetrics interface {
	RecordOutcome(workflow, outcome string)
}
