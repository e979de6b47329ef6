package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/dashboard/domain"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	upcomingDays       = 30
	alertLookaheadDays = 7
	overdueMonthsBack  = 3
	recentDays         = 7
	recentLimit        = 5
	urgentBulkCount    = 2
	monthEndAlertDays  = 7
	monthEndHighDays   = 3
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	Thresholds    *config.ThresholdHolder
	Bulk          bulkdomain.Service
	Celebrations  celebrationdomain.Service
	Intentions    intentiondomain.Service
	Obligations   obligationdomain.Service
	Notifications notificationdomain.Service
}

type Service struct {
	log           *zap.Logger
	clock         clock.Clock
	thresholds    *config.ThresholdHolder
	bulk          bulkdomain.Service
	celebrations  celebrationdomain.Service
	intentions    intentiondomain.Service
	obligations   obligationdomain.Service
	notifications notificationdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		log:           p.Log.Named("dashboard.service"),
		clock:         p.Clock,
		thresholds:    p.Thresholds,
		bulk:          p.Bulk,
		celebrations:  p.Celebrations,
		intentions:    p.Intentions,
		obligations:   p.Obligations,
		notifications: p.Notifications,
	}
}

func (s *Service) Summary(ctx context.Context) (*domain.Summary, error) {
	today := clock.Today(s.clock)
	out := &domain.Summary{}

	var err error
	if out.TodayCelebrations, err = s.celebrations.Today(ctx); err != nil {
		return nil, fmt.Errorf("today celebrations: %w", err)
	}

	weekStart := today.AddDate(0, 0, -mondayOffset(today))
	weekEnd := weekStart.AddDate(0, 0, 6)
	week, err := s.celebrations.Between(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("week celebrations: %w", err)
	}
	out.ThisWeek = domain.Week{TotalMasses: len(week), StartDate: weekStart, EndDate: weekEnd}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	month, err := s.celebrations.Between(ctx, monthStart, today)
	if err != nil {
		return nil, fmt.Errorf("month celebrations: %w", err)
	}
	out.MonthMasses = len(month)

	if out.BulkIntentions, err = s.bulk.ActiveSummaries(ctx); err != nil {
		return nil, fmt.Errorf("bulk intentions: %w", err)
	}
	lowCount, err := s.bulk.LowCount(ctx, s.thresholds.Get().BulkWarning)
	if err != nil {
		return nil, fmt.Errorf("low count bulk intentions: %w", err)
	}
	out.LowCountBulkIntentions = lowCount.Items
	for _, b := range out.BulkIntentions {
		if b.IsPaused {
			out.BulkCounts.Paused++
		} else {
			out.BulkCounts.Active++
		}
	}
	out.BulkCounts.LowCount = len(out.LowCountBulkIntentions)

	if out.CurrentObligation, err = s.obligations.Current(ctx); err != nil {
		return nil, fmt.Errorf("current obligation: %w", err)
	}
	if out.UnreadNotifications, err = s.notifications.UnreadCount(ctx); err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}
	if out.UrgentNotifications, err = s.notifications.Urgent(ctx); err != nil {
		return nil, fmt.Errorf("urgent notifications: %w", err)
	}
	if out.UpcomingFixedDates, err = s.intentions.UpcomingFixedDates(ctx, upcomingDays); err != nil {
		return nil, fmt.Errorf("upcoming fixed dates: %w", err)
	}

	recent, err := s.celebrations.Between(ctx, today.AddDate(0, 0, -recentDays), today)
	if err != nil {
		return nil, fmt.Errorf("recent celebrations: %w", err)
	}
	out.RecentCelebrations = latest(recent, recentLimit)
	return out, nil
}

func (s *Service) Alerts(ctx context.Context) (*domain.AlertsResponse, error) {
	today := clock.Today(s.clock)
	thresholds := s.thresholds.Get()
	var alerts []domain.Alert

	incomplete, err := s.obligations.Incomplete(ctx, overdueMonthsBack)
	if err != nil {
		return nil, fmt.Errorf("incomplete obligations: %w", err)
	}
	for _, o := range incomplete {
		if !o.IsOverdue {
			continue
		}
		alerts = append(alerts, domain.Alert{
			Type:     notificationdomain.TypeWarning,
			Category: domain.CategoryMonthlyObligation,
			Title:    "Overdue Monthly Obligation",
			Message: fmt.Sprintf("You have %d personal masses remaining for %s %d",
				o.RemainingCount, o.MonthName, o.Year),
			Priority: notificationdomain.PriorityHigh,
			EntityID: o.ID,
		})
	}

	low, err := s.bulk.LowCount(ctx, thresholds.BulkCritical)
	if err != nil {
		return nil, fmt.Errorf("low count bulk intentions: %w", err)
	}
	for _, b := range low.Items {
		priority := notificationdomain.PriorityHigh
		if b.CurrentCount <= urgentBulkCount {
			priority = notificationdomain.PriorityUrgent
		}
		alerts = append(alerts, domain.Alert{
			Type:     notificationdomain.TypeWarning,
			Category: domain.CategoryBulkIntention,
			Title:    "Low Bulk Intention Count",
			Message: fmt.Sprintf("Bulk intention %q has only %d masses remaining",
				titleOr(b.IntentionTitle), b.CurrentCount),
			Priority: priority,
			EntityID: b.ID,
		})
	}

	upcoming, err := s.intentions.UpcomingFixedDates(ctx, alertLookaheadDays)
	if err != nil {
		return nil, fmt.Errorf("upcoming fixed dates: %w", err)
	}
	for _, in := range upcoming {
		if in.FixedDate == nil {
			continue
		}
		daysUntil := int(clock.DateOf(*in.FixedDate).Sub(today).Hours() / 24)
		if daysUntil > thresholds.FixedDateLeadDays {
			continue
		}
		priority := notificationdomain.PriorityHigh
		if daysUntil <= 1 {
			priority = notificationdomain.PriorityUrgent
		}
		alerts = append(alerts, domain.Alert{
			Type:     notificationdomain.TypeReminder,
			Category: domain.CategoryFixedDate,
			Title:    "Upcoming Fixed Date Mass",
			Message: fmt.Sprintf("%q is scheduled for %s (%d days)",
				in.Title, in.FixedDate.Format(time.DateOnly), daysUntil),
			Priority: priority,
			EntityID: in.ID,
		})
	}

	current, err := s.obligations.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("current obligation: %w", err)
	}
	daysRemaining := obligationdomain.DaysLeftInMonth(today) + 1
	if !current.IsCompleted && current.RemainingCount > 0 && daysRemaining <= monthEndAlertDays {
		priority := notificationdomain.PriorityNormal
		if daysRemaining <= monthEndHighDays {
			priority = notificationdomain.PriorityHigh
		}
		alerts = append(alerts, domain.Alert{
			Type:     notificationdomain.TypeReminder,
			Category: domain.CategoryMonthlyProgress,
			Title:    "Monthly Personal Masses Due Soon",
			Message: fmt.Sprintf("You have %d personal masses remaining with %d days left in the month",
				current.RemainingCount, daysRemaining),
			Priority: priority,
			EntityID: current.ID,
		})
	}

	urgent, err := s.notifications.Urgent(ctx)
	if err != nil {
		return nil, fmt.Errorf("urgent notifications: %w", err)
	}
	for _, n := range urgent {
		alerts = append(alerts, domain.Alert{
			Type:     n.NotificationType,
			Category: domain.CategoryNotification,
			Title:    n.Title,
			Message:  n.Message,
			Priority: n.Priority,
			EntityID: n.ID,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority.Rank() < alerts[j].Priority.Rank()
	})

	out := &domain.AlertsResponse{Alerts: alerts, TotalCount: len(alerts)}
	if out.Alerts == nil {
		out.Alerts = []domain.Alert{}
	}
	for _, a := range alerts {
		switch a.Priority {
		case notificationdomain.PriorityUrgent:
			out.UrgentCount++
		case notificationdomain.PriorityHigh:
			out.HighCount++
		}
	}
	return out, nil
}

func (s *Service) Calendar(ctx context.Context, year, month int) (*domain.Calendar, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	celebrations, err := s.celebrations.Between(ctx, start, end)
	if err != nil {
		return nil, err
	}
	days := make(map[string][]domain.CalendarEntry)
	celebrated := make(map[snowflake.ID]bool)
	for _, c := range celebrations {
		key := c.CelebrationDate.Format(time.DateOnly)
		id := c.ID
		days[key] = append(days[key], domain.CalendarEntry{
			Kind:            domain.EntryCelebration,
			CelebrationID:   &id,
			MassTime:        c.MassTime,
			Location:        c.Location,
			CelebrationType: c.CelebrationType,
			IsBulkMass:      c.IsBulkMass,
			IsPersonalMass:  c.IsPersonalMass,
			SerialNumber:    c.SerialNumber,
			IntentionID:     c.IntentionID,
		})
		if c.IntentionID != nil {
			celebrated[*c.IntentionID] = true
		}
	}

	fixed, err := s.intentions.FixedDatesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	for _, in := range fixed {
		if in.FixedDate == nil || celebrated[in.ID] {
			continue
		}
		key := in.FixedDate.Format(time.DateOnly)
		id := in.ID
		days[key] = append(days[key], domain.CalendarEntry{
			Kind:          domain.EntryFixedDate,
			IntentionID:   &id,
			Title:         in.Title,
			IntentionType: string(in.IntentionType),
		})
	}

	withMasses := 0
	for _, entries := range days {
		for _, e := range entries {
			if e.Kind == domain.EntryCelebration {
				withMasses++
				break
			}
		}
	}
	return &domain.Calendar{
		Year:                year,
		Month:               month,
		MonthName:           time.Month(month).String(),
		Days:                days,
		TotalDaysWithMasses: withMasses,
	}, nil
}

func (s *Service) Statistics(ctx context.Context, year int, month *int) (*domain.Statistics, error) {
	if year == 0 {
		year = clock.Today(s.clock).Year()
	}
	if month != nil {
		return s.monthly(ctx, year, *month)
	}
	if err := validatePeriod(year, 1); err != nil {
		return nil, err
	}

	summary, err := s.obligations.YearlySummary(ctx, year)
	if err != nil {
		return nil, err
	}
	out := &domain.Statistics{
		Type:             domain.StatisticsYearly,
		Year:             year,
		Summary:          summary,
		MonthlyBreakdown: make([]domain.MonthBreakdown, 0, 12),
	}
	for m := 1; m <= 12; m++ {
		ms, err := s.celebrations.MonthlySummary(ctx, year, m)
		if err != nil {
			return nil, err
		}
		out.TotalMasses += ms.TotalMasses
		out.MonthlyBreakdown = append(out.MonthlyBreakdown, domain.MonthBreakdown{
			Month:          m,
			MonthName:      time.Month(m).String(),
			TotalMasses:    ms.TotalMasses,
			PersonalMasses: ms.PersonalMasses,
			BulkMasses:     ms.BulkMasses,
		})
	}
	return out, nil
}

func (s *Service) monthly(ctx context.Context, year, month int) (*domain.Statistics, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	ms, err := s.celebrations.MonthlySummary(ctx, year, month)
	if err != nil {
		return nil, err
	}
	out := &domain.Statistics{
		Type:         domain.StatisticsMonthly,
		Year:         year,
		Month:        &month,
		Celebrations: ms,
		TotalMasses:  ms.TotalMasses,
	}
	obligation, err := s.obligations.Get(ctx, year, month)
	switch {
	case errors.Is(err, obligationdomain.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		out.Obligation = obligation
	}
	return out, nil
}

func validatePeriod(year, month int) error {
	if year < 1900 || year > 9999 {
		return domain.ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return domain.ErrInvalidMonth
	}
	return nil
}

// mondayOffset is the number of days since the most recent Monday.
func mondayOffset(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// latest returns up to n items, newest first. items are in chronological order.
func latest(items []celebrationdomain.View, n int) []celebrationdomain.View {
	out := make([]celebrationdomain.View, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}

func titleOr(title string) string {
	if title == "" {
		return "Unknown"
	}
	return title
}
