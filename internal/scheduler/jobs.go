package scheduler

import (
	"context"
	"time"

	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/clock"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"go.uber.org/zap"
)

// MonthlyRemindersJob nudges priests who are behind on their personal masses.
// Each obligation is reminded at most once per month.
func (s *Scheduler) MonthlyRemindersJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobMonthlyReminders, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	today := clock.Today(s.clock)
	if today.Day() < s.thresholds.Get().ReminderDayOfMonth {
		return nil
	}
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	return s.forEachPriest(ctx, func(ctx context.Context, user authdomain.User) error {
		obligation, err := s.obligations.GetOrCreate(ctx, user.ID, today.Year(), int(today.Month()))
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.obligation.failed", JobMonthlyReminders, user.ID, err)
			return err
		}
		if obligation.Remaining() <= 0 {
			return nil
		}
		sent, err := s.notifier.HasReminderSince(ctx, user.ID, notificationdomain.EntityMonthlyObligation, obligation.ID, monthStart)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.reminder.lookup.failed", JobMonthlyReminders, user.ID, err)
			return err
		}
		if sent {
			return nil
		}
		if _, err := s.notifier.MonthlyReminder(ctx, user.ID, obligation.ID, obligation.CompletedCount, obligation.TargetCount, today.Month()); err != nil {
			s.logSchedulerError(ctx, run, "scheduler.reminder.failed", JobMonthlyReminders, user.ID, err)
			return err
		}
		run.AddProcessed(1)
		s.logReminderSent(ctx, JobMonthlyReminders, user.ID, obligation.ID)
		return nil
	})
}

// FixedDateRemindersJob warns about fixed-date intentions falling within the
// lead window that are still waiting to be celebrated.
func (s *Scheduler) FixedDateRemindersJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobFixedDateReminders, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	lead := s.thresholds.Get().FixedDateLeadDays
	today := clock.Today(s.clock)
	until := today.AddDate(0, 0, lead)

	return s.forEachPriest(ctx, func(ctx context.Context, user authdomain.User) error {
		due, err := s.intentions.FixedDatesBetween(ctx, today, until)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.fixed_dates.failed", JobFixedDateReminders, user.ID, err)
			return err
		}
		for _, intention := range due {
			if intention.FixedDate == nil {
				continue
			}
			date := clock.DateOf(*intention.FixedDate)
			if _, err := s.intentions.CheckCelebration(ctx, intention.ID, date); err != nil {
				s.logger(ctx).Debug("fixed date intention not eligible",
					zap.String("intention_id", intention.ID.String()),
					zap.Error(err),
				)
				continue
			}
			sent, err := s.notifier.HasReminderSince(ctx, user.ID, notificationdomain.EntityMassIntention, intention.ID, date.AddDate(0, 0, -lead))
			if err != nil {
				s.logSchedulerError(ctx, run, "scheduler.reminder.lookup.failed", JobFixedDateReminders, user.ID, err)
				return err
			}
			if sent {
				continue
			}
			if _, err := s.notifier.FixedDateReminder(ctx, user.ID, intention.ID, intention.Title, date); err != nil {
				s.logSchedulerError(ctx, run, "scheduler.reminder.failed", JobFixedDateReminders, user.ID, err)
				return err
			}
			run.AddProcessed(1)
			s.logReminderSent(ctx, JobFixedDateReminders, user.ID, intention.ID)
		}
		return nil
	})
}

// NotificationCleanupJob drops read notifications past the retention window.
func (s *Scheduler) NotificationCleanupJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobNotificationCleanup, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	deleted, err := s.notifier.DeleteOlderThan(ctx, s.retention)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.cleanup.failed", JobNotificationCleanup, 0, err)
		return err
	}
	run.AddProcessed(int(deleted))
	return nil
}

func paginationFor(page, size int) pagination.Pagination {
	return pagination.Pagination{Page: page, PerPage: size}
}
