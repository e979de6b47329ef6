package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	authrepo "github.com/smallbiznis/masstrack/internal/auth/repository"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/scheduler"
	"github.com/smallbiznis/masstrack/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T, h *testkit.Harness) *scheduler.Scheduler {
	t.Helper()
	users, _ := authrepo.New(h.DB)
	s, err := scheduler.New(scheduler.Params{
		Log:         h.Log,
		GenID:       h.Node,
		Clock:       h.Clock,
		AppConfig:   h.Config,
		Thresholds:  h.Thresholds,
		Users:       users,
		Obligations: h.Obligations,
		Intentions:  h.Intentions,
		Notifier:    h.Notifications,
		Metrics:     obsmetrics.NewSchedulerMetrics(prometheus.NewRegistry(), obsmetrics.Config{}),
		Config:      scheduler.Config{BatchSize: 1},
	})
	require.NoError(t, err)
	return s
}

func reminders(t *testing.T, h *testkit.Harness, priestID snowflake.ID, entityType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.DB.Model(&notificationdomain.Notification{}).
		Where("priest_id = ? AND related_entity_type = ?", priestID, entityType).
		Count(&count).Error)
	return count
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := scheduler.New(scheduler.Params{})
	assert.ErrorIs(t, err, scheduler.ErrInvalidConfig)
}

func TestMonthlyRemindersWaitForReminderDay(t *testing.T) {
	h := testkit.New(t)
	priest, _ := h.Priest(t, "anselm")
	h.Admin(t)
	s := newScheduler(t, h)

	require.NoError(t, s.MonthlyRemindersJob(context.Background()))
	assert.Zero(t, reminders(t, h, priest.ID, notificationdomain.EntityMonthlyObligation))

	h.Clock.Set(time.Date(2024, 3, 21, 8, 0, 0, 0, time.UTC))
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int64(1), reminders(t, h, priest.ID, notificationdomain.EntityMonthlyObligation))

	h.Clock.Advance(24 * time.Hour)
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int64(1), reminders(t, h, priest.ID, notificationdomain.EntityMonthlyObligation), "one reminder per month")

	var adminReminders int64
	require.NoError(t, h.DB.Model(&notificationdomain.Notification{}).
		Where("priest_id <> ?", priest.ID).
		Count(&adminReminders).Error)
	assert.Zero(t, adminReminders)
}

func TestMonthlyRemindersPageThroughPriests(t *testing.T) {
	h := testkit.New(t)
	first, _ := h.Priest(t, "basil")
	second, _ := h.Priest(t, "cyril")
	h.Clock.Set(time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC))
	s := newScheduler(t, h)

	require.NoError(t, s.MonthlyRemindersJob(context.Background()))
	assert.Equal(t, int64(1), reminders(t, h, first.ID, notificationdomain.EntityMonthlyObligation))
	assert.Equal(t, int64(1), reminders(t, h, second.ID, notificationdomain.EntityMonthlyObligation))
}

func TestFixedDateReminders(t *testing.T) {
	h := testkit.New(t)
	priest, ctx := h.Priest(t, "dominic")
	s := newScheduler(t, h)

	fixed := func(title string, day int) *intentiondomain.MassIntention {
		in, err := h.Intentions.Create(ctx, intentiondomain.CreateRequest{
			IntentionType: intentiondomain.TypeAnniversary,
			Title:         title,
			Source:        intentiondomain.SourceFamily,
			IsFixedDate:   true,
			FixedDate:     date(2024, 3, day),
		})
		require.NoError(t, err)
		return in
	}
	soon := fixed("Silver jubilee", 12)
	fixed("Later anniversary", 20)
	celebrated := fixed("Today's anniversary", 10)
	_, err := h.Celebrations.Create(ctx, celebrationdomain.CreateRequest{
		CelebrationDate: date(2024, 3, 10),
		IntentionID:     &celebrated.ID,
	})
	require.NoError(t, err)

	require.NoError(t, s.FixedDateRemindersJob(context.Background()))
	require.NoError(t, s.FixedDateRemindersJob(context.Background()))

	var items []notificationdomain.Notification
	require.NoError(t, h.DB.Where("priest_id = ? AND related_entity_type = ?", priest.ID, notificationdomain.EntityMassIntention).
		Find(&items).Error)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].RelatedEntityID)
	assert.Equal(t, soon.ID, *items[0].RelatedEntityID)
	assert.Equal(t, notificationdomain.PriorityHigh, items[0].Priority)
}

func TestNotificationCleanupDropsOldReadNotifications(t *testing.T) {
	h := testkit.New(t)
	_, ctx := h.Priest(t, "eusebius")
	s := newScheduler(t, h)

	read, err := h.Notifications.Create(ctx, notificationdomain.CreateRequest{NotificationType: notificationdomain.TypeInfo, Title: "Old", Message: "read"})
	require.NoError(t, err)
	_, err = h.Notifications.MarkRead(ctx, read.ID)
	require.NoError(t, err)
	_, err = h.Notifications.Create(ctx, notificationdomain.CreateRequest{NotificationType: notificationdomain.TypeInfo, Title: "Pending", Message: "unread"})
	require.NoError(t, err)

	h.Clock.AdvanceDays(31)
	require.NoError(t, s.NotificationCleanupJob(context.Background()))

	var left []notificationdomain.Notification
	require.NoError(t, h.DB.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "Pending", left[0].Title)
}

func TestRunForeverStopsWithContext(t *testing.T) {
	h := testkit.New(t)
	s := newScheduler(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
