package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	obslogger "github.com/smallbiznis/masstrack/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"go.uber.org/zap"
)

// jobRun tallies one execution of a job. Nested jobs share their caller's run.
type jobRun struct {
	job       string
	id        string
	batchSize int
	started   time.Time
	processed int
	failed    int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(n int) {
	if r != nil && n > 0 {
		r.processed += n
	}
}

func (r *jobRun) IncError() {
	if r != nil {
		r.failed++
	}
}

func (r *jobRun) fields() []zap.Field {
	return []zap.Field{zap.String("job", r.job), zap.String("run_id", r.id)}
}

// ensureJobRun returns the run already on ctx, or starts a new one. owner is
// true when the caller started the run and must log its start and finish.
func (s *Scheduler) ensureJobRun(ctx context.Context, job string, batchSize int) (_ context.Context, run *jobRun, owner bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if run = jobRunFromContext(ctx); run != nil {
		return ctx, run, false
	}
	run = &jobRun{
		job:       job,
		id:        s.genID.Generate().String(),
		batchSize: batchSize,
		started:   s.clock.Now(),
	}
	return context.WithValue(ctx, jobRunKey{}, run), run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

// asPriest acts as priestID so the priest-scoped services accept the call.
func asPriest(ctx context.Context, priestID snowflake.ID) context.Context {
	ctx = priestcontext.WithPriestID(ctx, priestID)
	return priestcontext.WithRole(ctx, string(authdomain.RolePriest))
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Info("scheduler.job.start", append(run.fields(), zap.Int("batch_size", run.batchSize))...)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := append(run.fields(),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.started).Milliseconds()),
		zap.Int("processed_count", run.processed),
		zap.Int("error_count", run.failed),
	)
	if run.failed > 0 {
		s.logger(ctx).Warn("scheduler.job.finish", fields...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

// logSchedulerError records a per-priest failure and counts it against run.
// Jobs keep going after these.
func (s *Scheduler) logSchedulerError(ctx context.Context, run *jobRun, msg string, job string, priestID snowflake.ID, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	run.IncError()
	if priestID != 0 {
		ctx = asPriest(ctx, priestID)
	}
	s.logger(ctx).Error(msg, append([]zap.Field{
		zap.String("job", job),
		zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Error(err),
	}, fields...)...)
}

func (s *Scheduler) logReminderSent(ctx context.Context, job string, priestID, entityID snowflake.ID) {
	s.logger(asPriest(ctx, priestID)).Info("scheduler.reminder.sent",
		zap.String("job", job),
		zap.Stringer("entity_id", entityID),
	)
}
