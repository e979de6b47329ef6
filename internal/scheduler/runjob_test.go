package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/masstrack/internal/clock"
	obsmetrics "github.com/smallbiznis/masstrack/internal/observability/metrics"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T, registry *prometheus.Registry) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Scheduler{
		log:     zap.NewNop(),
		cfg:     DefaultConfig(),
		genID:   node,
		clock:   clock.NewFakeClock(time.Time{}),
		metrics: obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{ServiceName: "masstrack", Environment: "test"}),
	}
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := newTestScheduler(t, registry)

	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "masstrack",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "masstrack_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "masstrack",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "masstrack_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunJobWrapsFailuresAndCountsProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := newTestScheduler(t, registry)
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "failing_job", 10, time.Second, func(ctx context.Context) error {
		jobRunFromContext(ctx).AddProcessed(2)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}

	labels := map[string]string{"service": "masstrack", "env": "test", "job": "failing_job"}
	if got := getCounterValue(t, registry, "masstrack_scheduler_job_runs_total", labels); got != 1 {
		t.Fatalf("expected run count 1, got %v", got)
	}
	if got := getCounterValue(t, registry, "masstrack_scheduler_items_processed_total", labels); got != 2 {
		t.Fatalf("expected processed count 2, got %v", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{JobTimeout: 10 * time.Minute}.withDefaults()
	if cfg.RunInterval != time.Hour {
		t.Fatalf("expected hourly interval, got %v", cfg.RunInterval)
	}
	if cfg.LockTTL != 10*time.Minute {
		t.Fatalf("expected lock ttl to cover the job timeout, got %v", cfg.LockTTL)
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
