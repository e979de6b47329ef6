package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("kind", "bulk"),
		attribute.String("priest_id", "456"),
		attribute.String("transition", "pause"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "priest_id" {
			t.Fatalf("expected priest_id to be dropped")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordCelebration(context.Background(), "bulk")
	m.RecordBulkTransition(context.Background(), "pause")
	m.RecordNotification(context.Background(), "warning", "high")
	m.RecordLoginDenied(context.Background(), "rate_limited")

	NewNoop().RecordCelebration(context.Background(), "personal")
}
