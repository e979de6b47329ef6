package service_test

import (
	"context"
	"testing"
	"time"

	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	"github.com/smallbiznis/masstrack/internal/dashboard/domain"
	"github.com/smallbiznis/masstrack/internal/dashboard/service"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	"github.com/smallbiznis/masstrack/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDashboard(h *testkit.Harness) domain.Service {
	return service.NewService(service.Params{
		Log:           h.Log,
		Clock:         h.Clock,
		Thresholds:    h.Thresholds,
		Bulk:          h.Bulk,
		Celebrations:  h.Celebrations,
		Intentions:    h.Intentions,
		Obligations:   h.Obligations,
		Notifications: h.Notifications,
	})
}

func day(d int) *time.Time {
	t := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func celebrate(t *testing.T, h *testkit.Harness, ctx context.Context, req celebrationdomain.CreateRequest) {
	t.Helper()
	_, err := h.Celebrations.Create(ctx, req)
	require.NoError(t, err)
}

func TestSummary(t *testing.T) {
	h := testkit.New(t)
	_, ctx := h.Priest(t, "ambrose")
	dash := newDashboard(h)

	low := h.BulkBatch(t, ctx, "Parish batch", 8)
	paused := h.BulkBatch(t, ctx, "Province batch", 50)
	_, err := h.Bulk.Pause(ctx, paused.ID, "travelling")
	require.NoError(t, err)

	personal := h.Intention(t, ctx, intentiondomain.TypePersonal, "For my family")
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(9), IntentionID: &personal.ID})
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(10), BulkIntentionID: &low.ID})

	summary, err := dash.Summary(ctx)
	require.NoError(t, err)
	assert.Len(t, summary.TodayCelebrations, 1)
	assert.Equal(t, 2, summary.MonthMasses)
	assert.Equal(t, 2, summary.ThisWeek.TotalMasses)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), summary.ThisWeek.StartDate)
	assert.Equal(t, domain.BulkCounts{Active: 1, Paused: 1, LowCount: 1}, summary.BulkCounts)
	require.NotNil(t, summary.CurrentObligation)
	assert.Equal(t, 1, summary.CurrentObligation.CompletedCount)
	assert.Equal(t, int64(1), summary.UnreadNotifications)
	require.Len(t, summary.RecentCelebrations, 2)
	assert.True(t, summary.RecentCelebrations[0].IsBulkMass)
	assert.Empty(t, summary.UpcomingFixedDates)
}

func TestAlertsOrderedByPriority(t *testing.T) {
	h := testkit.New(t)
	priest, ctx := h.Priest(t, "basil")
	dash := newDashboard(h)

	_, err := h.Obligations.GetOrCreate(ctx, priest.ID, 2024, 2)
	require.NoError(t, err)

	h.Clock.Set(time.Date(2024, 3, 28, 8, 0, 0, 0, time.UTC))
	batch := h.BulkBatch(t, ctx, "Parish batch", 3)
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(28), BulkIntentionID: &batch.ID})

	_, err = h.Intentions.Create(ctx, intentiondomain.CreateRequest{
		IntentionType: intentiondomain.TypeAnniversary,
		Title:         "Wedding anniversary",
		Source:        intentiondomain.SourceFamily,
		IsFixedDate:   true,
		FixedDate:     day(29),
	})
	require.NoError(t, err)

	res, err := dash.Alerts(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, res.TotalCount)
	assert.Equal(t, 2, res.UrgentCount)
	assert.Equal(t, 1, res.HighCount)

	categories := make([]domain.AlertCategory, 0, len(res.Alerts))
	for _, a := range res.Alerts {
		categories = append(categories, a.Category)
	}
	assert.Equal(t, []domain.AlertCategory{
		domain.CategoryBulkIntention,
		domain.CategoryFixedDate,
		domain.CategoryMonthlyObligation,
		domain.CategoryMonthlyProgress,
	}, categories)
	assert.Equal(t, notificationdomain.PriorityNormal, res.Alerts[3].Priority)
}

func TestCalendarMarksUncelebratedFixedDates(t *testing.T) {
	h := testkit.New(t)
	_, ctx := h.Priest(t, "cyril")
	dash := newDashboard(h)

	batch := h.BulkBatch(t, ctx, "Parish batch", 20)
	personal := h.Intention(t, ctx, intentiondomain.TypePersonal, "For my family")
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(5), BulkIntentionID: &batch.ID})
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(5), IntentionID: &personal.ID})

	for _, d := range []int{8, 20} {
		in, err := h.Intentions.Create(ctx, intentiondomain.CreateRequest{
			IntentionType: intentiondomain.TypeBirthday,
			Title:         "Birthday",
			Source:        intentiondomain.SourceFamily,
			IsFixedDate:   true,
			FixedDate:     day(d),
		})
		require.NoError(t, err)
		if d == 8 {
			celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(8), IntentionID: &in.ID})
		}
	}

	cal, err := dash.Calendar(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "March", cal.MonthName)
	assert.Len(t, cal.Days["2024-03-05"], 2)
	require.Len(t, cal.Days["2024-03-08"], 1)
	assert.Equal(t, domain.EntryCelebration, cal.Days["2024-03-08"][0].Kind)
	require.Len(t, cal.Days["2024-03-20"], 1)
	assert.Equal(t, domain.EntryFixedDate, cal.Days["2024-03-20"][0].Kind)
	assert.Equal(t, 2, cal.TotalDaysWithMasses)

	_, err = dash.Calendar(ctx, 2024, 13)
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}

func TestStatistics(t *testing.T) {
	h := testkit.New(t)
	_, ctx := h.Priest(t, "damian")
	dash := newDashboard(h)

	batch := h.BulkBatch(t, ctx, "Parish batch", 20)
	personal := h.Intention(t, ctx, intentiondomain.TypePersonal, "For my family")
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(2), BulkIntentionID: &batch.ID})
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(3), BulkIntentionID: &batch.ID})
	celebrate(t, h, ctx, celebrationdomain.CreateRequest{CelebrationDate: day(4), IntentionID: &personal.ID})

	yearly, err := dash.Statistics(ctx, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatisticsYearly, yearly.Type)
	assert.Equal(t, 2024, yearly.Year)
	require.Len(t, yearly.MonthlyBreakdown, 12)
	assert.Equal(t, 3, yearly.TotalMasses)
	assert.Equal(t, 2, yearly.MonthlyBreakdown[2].BulkMasses)
	assert.Equal(t, 1, yearly.MonthlyBreakdown[2].PersonalMasses)

	march := 3
	monthly, err := dash.Statistics(ctx, 2024, &march)
	require.NoError(t, err)
	assert.Equal(t, 3, monthly.TotalMasses)
	require.NotNil(t, monthly.Obligation)
	assert.Equal(t, 1, monthly.Obligation.CompletedCount)

	april := 4
	monthly, err = dash.Statistics(ctx, 2024, &april)
	require.NoError(t, err)
	assert.Nil(t, monthly.Obligation)

	_, err = dash.Statistics(ctx, 1800, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidYear)
}
