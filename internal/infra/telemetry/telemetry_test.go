package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"

	"github.com/greenvalley/society-portal/internal/infra/config"
)

func TestWorkflowMetricsRecordOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()

	metrics, err := NewWorkflowMetrics(reg, "test")
	if err != nil {
		t.Fatalf("NewWorkflowMetrics returned error: %v", err)
	}

	metrics.RecordOutcome("approval", "success")
	metrics.RecordOutcome("approval", "success")
	metrics.RecordOutcome("approval", "conflict")

	if got := testutil.ToFloat64(metrics.Operations().WithLabelValues("approval", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.Operations().WithLabelValues("approval", "conflict")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}

	again, err := NewWorkflowMetrics(reg, "test")
	if err != nil {
		t.Fatalf("re-registration should reuse the collector: %v", err)
	}
	again.RecordOutcome("approval", "success")
	if got := testutil.ToFloat64(metrics.Operations().WithLabelValues("approval", "success")); got != 3 {
		t.Fatalf("expected shared counter, got %v", got)
	}
}

func TestWorkflowMetricsNilSafe(t *testing.T) {
	var metrics *WorkflowMetrics
	metrics.RecordOutcome("login", "success")
}

func TestTracerProviderWithoutExport(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, config.TelemetrySettings{
		ServiceName:  "society-portal",
		SamplingRate: 1,
	}, "test", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTracerProvider returned error: %v", err)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	spanCtx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	if !trace.SpanContextFromContext(spanCtx).IsValid() {
		t.Fatalf("expected a valid span context")
	}
}
