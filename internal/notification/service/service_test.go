package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/notification/domain"
	"github.com/smallbiznis/masstrack/internal/notification/repository"
	"github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const priest = snowflake.ID(100)

func setup(t *testing.T, now time.Time) (domain.Service, *clock.FakeClock, context.Context) {
	t.Helper()
	conn := db.NewTest(t, &domain.Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(now)
	cfg := config.Config{
		Paging: config.PagingConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Masses: config.MassConfig{NotificationRetention: 30},
	}
	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Config:     cfg,
		Thresholds: config.NewStaticThresholdHolder(config.DefaultThresholds(cfg)),
		Metrics:    metrics.NewNoop(),
		Repo:       repository.Provide(),
	})
	return svc, fake, priestcontext.WithPriestID(context.Background(), priest)
}

func TestCreateValidation(t *testing.T) {
	svc, _, ctx := setup(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"bad type", domain.CreateRequest{NotificationType: "loud", Title: "t", Message: "m"}, domain.ErrInvalidType},
		{"bad priority", domain.CreateRequest{NotificationType: domain.TypeInfo, Title: "t", Message: "m", Priority: "max"}, domain.ErrInvalidPriority},
		{"blank title", domain.CreateRequest{NotificationType: domain.TypeInfo, Title: " ", Message: "m"}, domain.ErrInvalidTitle},
		{"blank message", domain.CreateRequest{NotificationType: domain.TypeInfo, Title: "t"}, domain.ErrInvalidMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	n, err := svc.Create(ctx, domain.CreateRequest{NotificationType: domain.TypeInfo, Title: "Hello", Message: "World"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityNormal, n.Priority)
	assert.False(t, n.IsRead)
}

func TestReadStateAndCounts(t *testing.T) {
	svc, _, ctx := setup(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	a, err := svc.BulkLowCount(ctx, priest, snowflake.ID(7), 4)
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{NotificationType: domain.TypeInfo, Title: "t", Message: "m", Priority: domain.PriorityUrgent})
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	read, err := svc.MarkRead(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	unreadOnly := false
	list, err := svc.List(ctx, domain.ListRequest{IsRead: &unreadOnly})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.True(t, list.Items[0].IsUrgent)

	unread, err := svc.MarkUnread(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, unread.ReadAt)

	affected, err := svc.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	urgent, err := svc.Urgent(ctx)
	require.NoError(t, err)
	assert.Empty(t, urgent)
}

func TestOwnership(t *testing.T) {
	svc, _, ctx := setup(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	n, err := svc.BulkCompleted(ctx, priest, snowflake.ID(7), 10)
	require.NoError(t, err)

	other := priestcontext.WithPriestID(context.Background(), snowflake.ID(200))
	_, err = svc.Get(other, n.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(other, n.ID), domain.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, n.ID))
	_, err = svc.Get(ctx, n.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmitters(t *testing.T) {
	svc, fake, ctx := setup(t, time.Date(2024, 3, 26, 9, 0, 0, 0, time.UTC))

	low, err := svc.BulkLowCount(ctx, priest, snowflake.ID(7), 3)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeWarning, low.NotificationType)
	assert.Equal(t, domain.PriorityHigh, low.Priority)
	assert.Contains(t, low.Message, "only 3 masses remaining")
	require.NotNil(t, low.RelatedEntityType)
	assert.Equal(t, domain.EntityBulkIntention, *low.RelatedEntityType)

	urgent, err := svc.MonthlyReminder(ctx, priest, snowflake.ID(8), 1, 3, time.March)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgent, urgent.Priority)
	assert.Contains(t, urgent.Message, "1 out of 3 personal masses for March")

	fake.Set(time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC))
	normal, err := svc.MonthlyReminder(ctx, priest, snowflake.ID(8), 1, 3, time.March)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityNormal, normal.Priority)

	fixed, err := svc.FixedDateReminder(ctx, priest, snowflake.ID(9), "Wedding", time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, `"Wedding" is scheduled for 2024-03-14. Please prepare accordingly.`, fixed.Message)

	exists, err := svc.HasReminderSince(ctx, priest, domain.EntityMassIntention, snowflake.ID(9), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = svc.HasReminderSince(ctx, priest, domain.EntityMassIntention, snowflake.ID(10), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteOlderThanKeepsUnread(t *testing.T) {
	svc, fake, ctx := setup(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	old, err := svc.BulkLowCount(ctx, priest, snowflake.ID(1), 2)
	require.NoError(t, err)
	_, err = svc.MarkRead(ctx, old.ID)
	require.NoError(t, err)
	_, err = svc.BulkLowCount(ctx, priest, snowflake.ID(2), 2)
	require.NoError(t, err)

	fake.AdvanceDays(45)
	deleted, err := svc.DeleteOlderThan(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := svc.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDueScheduled(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _, ctx := setup(t, now)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	_, err := svc.Create(ctx, domain.CreateRequest{NotificationType: domain.TypeReminder, Title: "a", Message: "b", ScheduledFor: &past})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{NotificationType: domain.TypeReminder, Title: "c", Message: "d", ScheduledFor: &future})
	require.NoError(t, err)

	due, err := svc.DueScheduled(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].Title)
}
