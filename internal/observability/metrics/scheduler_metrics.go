package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smallbiznis/masstrack/pkg/db"
)

// Error reasons and skip reasons used as the "reason" label.
const (
	SchedulerJobReasonDeadlineExceeded     = "deadline_exceeded"
	SchedulerJobReasonDBLockTimeout        = "db_lock_timeout"
	SchedulerJobReasonSerializationFailure = "serialization_failure"
	SchedulerJobReasonUniqueViolation      = "unique_violation"
	SchedulerJobReasonUnknown              = "unknown"

	SchedulerSkipReasonLockHeld = "lock_held"
)

var jobLatencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// SchedulerMetrics are the prometheus collectors for reminder and cleanup
// jobs. A nil *SchedulerMetrics records nothing.
type SchedulerMetrics struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	timeouts  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	processed *prometheus.CounterVec
	lag       prometheus.Histogram
}

var (
	defaultSchedulerOnce sync.Once
	defaultScheduler     *SchedulerMetrics
)

// Scheduler returns the process-wide collectors with unlabelled service info.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig registers the process-wide collectors on the default
// registerer the first time it is called.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	defaultSchedulerOnce.Do(func() {
		defaultScheduler = NewSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return defaultScheduler
}

// NewSchedulerMetrics registers a fresh set of collectors on registerer.
func NewSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	f := promauto.With(registerer)
	labels := constLabelsFor(cfg)
	counter := func(name, help string, keys ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Name: "masstrack_scheduler_" + name, Help: help, ConstLabels: labels,
		}, keys)
	}

	return &SchedulerMetrics{
		runs:      counter("job_runs_total", "Scheduler job runs by name.", "job"),
		timeouts:  counter("job_timeouts_total", "Scheduler jobs that hit their timeout.", "job"),
		errors:    counter("job_errors_total", "Scheduler job failures by reason.", "job", "reason"),
		skipped:   counter("job_skipped_total", "Scheduler runs skipped because another replica held the lock.", "job", "reason"),
		processed: counter("items_processed_total", "Reminders sent and notifications purged by scheduler jobs.", "job"),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "masstrack_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     jobLatencyBuckets,
			ConstLabels: labels,
		}, []string{"job"}),
		lag: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "masstrack_scheduler_runloop_lag_seconds",
			Help:        "Delay between a scheduled tick and the run starting.",
			Buckets:     jobLatencyBuckets,
			ConstLabels: labels,
		}),
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m != nil {
		m.runs.WithLabelValues(job).Inc()
	}
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m != nil {
		m.duration.WithLabelValues(job).Observe(d.Seconds())
	}
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m != nil {
		m.timeouts.WithLabelValues(job).Inc()
	}
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m != nil && err != nil {
		m.errors.WithLabelValues(job, ClassifySchedulerJobReason(err)).Inc()
	}
}

func (m *SchedulerMetrics) IncJobSkipped(job, reason string) {
	if m != nil {
		m.skipped.WithLabelValues(job, reason).Inc()
	}
}

func (m *SchedulerMetrics) AddItemsProcessed(job string, count int) {
	if m != nil && count > 0 {
		m.processed.WithLabelValues(job).Add(float64(count))
	}
}

// ObserveRunLoopLag clamps negative lag to zero.
func (m *SchedulerMetrics) ObserveRunLoopLag(d time.Duration) {
	if m != nil {
		m.lag.Observe(max(d, 0).Seconds())
	}
}

// ClassifySchedulerJobReason maps a job error to a reason label.
func ClassifySchedulerJobReason(err error) string {
	switch {
	case err == nil:
		return SchedulerJobReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SchedulerJobReasonDeadlineExceeded
	case db.IsLockTimeout(err):
		return SchedulerJobReasonDBLockTimeout
	case db.IsSerializationFailure(err):
		return SchedulerJobReasonSerializationFailure
	case db.IsDuplicateKeyErr(err):
		return SchedulerJobReasonUniqueViolation
	default:
		return SchedulerJobReasonUnknown
	}
}
