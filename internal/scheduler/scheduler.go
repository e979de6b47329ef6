package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	obsmetrics "github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMonthlyReminders    = "monthly_reminders"
	JobFixedDateReminders  = "fixed_date_reminders"
	JobNotificationCleanup = "notification_cleanup"

	lockPrefix = "scheduler:"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	AppConfig   config.Config
	Thresholds  *config.ThresholdHolder
	Users       authdomain.Repository
	Obligations obligationdomain.Tracker
	Intentions  intentiondomain.Service
	Notifier    notificationdomain.Emitter
	Locker      *ratelimit.Locker            `optional:"true"`
	Metrics     *obsmetrics.SchedulerMetrics `optional:"true"`
	Config      Config                       `optional:"true"`
}

type Scheduler struct {
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	thresholds  *config.ThresholdHolder
	retention   int
	users       authdomain.Repository
	obligations obligationdomain.Tracker
	intentions  intentiondomain.Service
	notifier    notificationdomain.Emitter
	locker      *ratelimit.Locker
	metrics     *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Thresholds == nil || p.Users == nil || p.Obligations == nil || p.Intentions == nil || p.Notifier == nil {
		return nil, ErrInvalidConfig
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       p.Clock,
		thresholds:  p.Thresholds,
		retention:   p.AppConfig.Masses.NotificationRetention,
		users:       p.Users,
		obligations: p.Obligations,
		intentions:  p.Intentions,
		notifier:    p.Notifier,
		locker:      p.Locker,
		metrics:     m,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	log := s.logger(ctx).With(run.fields()...)

	err := s.locker.RunExclusive(ctx, lockPrefix+name, s.cfg.LockTTL, func(ctx context.Context) error {
		s.metrics.IncJobRun(name)
		if owner {
			s.logJobStart(ctx, run)
		}
		err := fn(ctx)
		s.metrics.ObserveJobDuration(name, time.Since(start))
		s.metrics.AddItemsProcessed(name, run.processed)
		if owner {
			if err != nil && run.failed == 0 {
				run.IncError()
			}
			s.logJobFinish(ctx, run)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ratelimit.ErrLockHeld) {
		s.metrics.IncJobSkipped(name, obsmetrics.SchedulerSkipReasonLockHeld)
		log.Debug("job skipped, lock held elsewhere")
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobMonthlyReminders, s.MonthlyRemindersJob},
		{JobFixedDateReminders, s.FixedDateRemindersJob},
		{JobNotificationCleanup, s.NotificationCleanupJob},
	}

	for _, job := range jobs {
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now()

	for {
		if runLag := time.Since(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// forEachPriest pages through active priests until fn has seen all of them.
func (s *Scheduler) forEachPriest(ctx context.Context, fn func(ctx context.Context, user authdomain.User) error) error {
	active := true
	var jobErr error
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}
		users, _, err := s.users.List(ctx, &active, "", paginationFor(page, s.cfg.BatchSize))
		if err != nil {
			return errors.Join(jobErr, err)
		}
		for _, user := range users {
			if user.Role != authdomain.RolePriest {
				continue
			}
			jobErr = errors.Join(jobErr, fn(asPriest(ctx, user.ID), user))
		}
		if len(users) < s.cfg.BatchSize {
			return jobErr
		}
	}
}
