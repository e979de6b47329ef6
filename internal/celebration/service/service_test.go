package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	bulkrepo "github.com/smallbiznis/masstrack/internal/bulkintention/repository"
	bulkservice "github.com/smallbiznis/masstrack/internal/bulkintention/service"
	"github.com/smallbiznis/masstrack/internal/celebration/domain"
	"github.com/smallbiznis/masstrack/internal/celebration/repository"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	intentionrepo "github.com/smallbiznis/masstrack/internal/intention/repository"
	intentionservice "github.com/smallbiznis/masstrack/internal/intention/service"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/masstrack/internal/notification/repository"
	notificationservice "github.com/smallbiznis/masstrack/internal/notification/service"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	obligationrepo "github.com/smallbiznis/masstrack/internal/obligation/repository"
	obligationservice "github.com/smallbiznis/masstrack/internal/obligation/service"
	"github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/pkg/db"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const priest = snowflake.ID(100)

type fixture struct {
	svc           domain.Service
	bulk          bulkdomain.Service
	intentions    intentiondomain.Service
	obligations   obligationdomain.Service
	notifications notificationdomain.Service
	db            *gorm.DB
	clock         *clock.FakeClock
	ctx           context.Context
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn := db.NewTest(t,
		&intentiondomain.MassIntention{},
		&bulkdomain.BulkIntention{},
		&bulkdomain.PauseEvent{},
		&domain.MassCelebration{},
		&obligationdomain.MonthlyObligation{},
		&obligationdomain.PersonalMassLink{},
		&notificationdomain.Notification{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{Paging: config.PagingConfig{DefaultPageSize: 20, MaxPageSize: 100}}
	thresholds := config.NewStaticThresholdHolder(config.DefaultThresholds(cfg))
	log := zap.NewNop()
	m := metrics.NewNoop()

	intentions := intentionservice.New(intentionservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Config: cfg, Repo: intentionrepo.Provide(),
	})
	bulkRepository := bulkrepo.Provide()
	bulk := bulkservice.New(bulkservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Config: cfg, Thresholds: thresholds, Metrics: m,
		Repo: bulkRepository, IntentionRepo: intentionrepo.Provide(),
	})
	obligationRepository := obligationrepo.Provide()
	obligations := obligationservice.New(obligationservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Config: cfg, Thresholds: thresholds, Repo: obligationRepository,
	})
	notifications := notificationservice.New(notificationservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Config: cfg, Thresholds: thresholds, Metrics: m,
		Repo: notificationrepo.Provide(),
	})

	svc := New(Params{
		DB:             conn,
		Log:            log,
		GenID:          node,
		Clock:          fake,
		Config:         cfg,
		Thresholds:     thresholds,
		Metrics:        m,
		Repo:           repository.Provide(),
		BulkRepo:       bulkRepository,
		Intentions:     intentions,
		Obligations:    obligations,
		ObligationRepo: obligationRepository,
		Notifier:       notifications,
	})
	return fixture{
		svc:           svc,
		bulk:          bulk,
		intentions:    intentions,
		obligations:   obligations,
		notifications: notifications,
		db:            conn,
		clock:         fake,
		ctx:           priestcontext.WithPriestID(context.Background(), priest),
	}
}

func (f fixture) intention(t *testing.T, typ intentiondomain.IntentionType) *intentiondomain.MassIntention {
	t.Helper()
	in, err := f.intentions.Create(f.ctx, intentiondomain.CreateRequest{
		IntentionType: typ,
		Title:         "For the souls of " + string(typ),
		Source:        intentiondomain.SourceProvince,
	})
	require.NoError(t, err)
	return in
}

func (f fixture) newBulk(t *testing.T, total int) *bulkdomain.BulkIntention {
	t.Helper()
	in := f.intention(t, intentiondomain.TypeBulk)
	b, err := f.bulk.Create(f.ctx, bulkdomain.CreateRequest{IntentionID: in.ID, TotalCount: total})
	require.NoError(t, err)
	return b
}

func (f fixture) today() *time.Time {
	d := clock.Today(f.clock)
	return &d
}

func (f fixture) reloadBulk(t *testing.T, id snowflake.ID) *bulkdomain.BulkIntention {
	t.Helper()
	got, err := f.bulk.Get(f.ctx, id)
	require.NoError(t, err)
	b := got.BulkIntention
	return &b
}

func TestBulkSerialsCountDown(t *testing.T) {
	f := setup(t)
	b := f.newBulk(t, 5)

	var serials []int
	for i := 0; i < 5; i++ {
		res, err := f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
		require.NoError(t, err)
		serials = append(serials, res.NewSerialNumber)

		got := f.reloadBulk(t, b.ID)
		assert.Equal(t, got.TotalCount, got.CurrentCount+got.CompletedCount)
		assert.GreaterOrEqual(t, got.CurrentCount, 0)
	}
	assert.Equal(t, []int{5, 4, 3, 2, 1}, serials)

	got := f.reloadBulk(t, b.ID)
	assert.True(t, got.IsCompleted())
	require.NotNil(t, got.ActualEndDate)
	assert.True(t, got.ActualEndDate.Equal(clock.Today(f.clock)))

	_, err := f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
	assert.ErrorIs(t, err, bulkdomain.ErrAlreadyCompleted)

	list, err := f.svc.ListByBulkIntention(f.ctx, b.ID, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, list.Items, 5)
	assert.Equal(t, 5, *list.Items[0].SerialNumber)
	assert.Equal(t, 1, *list.Items[4].SerialNumber)
}

func TestSingleMassBatchCompletes(t *testing.T) {
	f := setup(t)
	b := f.newBulk(t, 1)

	res, err := f.svc.Create(f.ctx, domain.CreateRequest{
		CelebrationDate: f.today(),
		BulkIntentionID: &b.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Bulk)
	assert.Equal(t, 1, res.Bulk.NewSerialNumber)
	assert.Equal(t, 0, res.Bulk.RemainingCount)
	assert.True(t, res.Bulk.IsCompleted)
	assert.True(t, res.Celebration.IsBulkMass)
	assert.Equal(t, "bulk", res.Celebration.CelebrationType)

	_, err = f.bulk.Pause(f.ctx, b.ID, "late")
	assert.ErrorIs(t, err, bulkdomain.ErrAlreadyCompleted)

	unreadOnly := false
	notes, err := f.notifications.List(f.ctx, notificationdomain.ListRequest{IsRead: &unreadOnly})
	require.NoError(t, err)
	require.Len(t, notes.Items, 1)
	assert.Equal(t, notificationdomain.TypeSuccess, notes.Items[0].NotificationType)
}

func TestPausedBatchRejectsCelebration(t *testing.T) {
	f := setup(t)
	b := f.newBulk(t, 20)

	for i := 0; i < 3; i++ {
		_, err := f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
		require.NoError(t, err)
	}
	_, err := f.bulk.Pause(f.ctx, b.ID, "retreat")
	require.NoError(t, err)

	_, err = f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
	assert.ErrorIs(t, err, bulkdomain.ErrAlreadyPaused)

	var ledger int64
	require.NoError(t, f.db.Model(&domain.MassCelebration{}).Where("bulk_intention_id = ?", b.ID).Count(&ledger).Error)
	assert.Equal(t, int64(3), ledger)

	f.clock.AdvanceDays(1)
	_, err = f.bulk.Resume(f.ctx, b.ID)
	require.NoError(t, err)

	res, err := f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 17, res.NewSerialNumber)
	assert.Equal(t, 16, res.RemainingCount)
}

func TestLowCountNotification(t *testing.T) {
	f := setup(t)
	b := f.newBulk(t, 11)

	_, err := f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
	require.NoError(t, err)

	count, err := f.notifications.UnreadCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	list, err := f.notifications.List(f.ctx, notificationdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Contains(t, list.Items[0].Message, "only 10 masses remaining")
}

func TestLowCountNotifiesOnCrossingOnly(t *testing.T) {
	f := setup(t)
	b := f.newBulk(t, 11)

	for i := 0; i < 11; i++ {
		_, err := f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
		require.NoError(t, err)
	}

	list, err := f.notifications.List(f.ctx, notificationdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)

	var warnings, completed int
	for _, n := range list.Items {
		switch n.NotificationType {
		case notificationdomain.TypeWarning:
			warnings++
		case notificationdomain.TypeSuccess:
			completed++
		}
	}
	assert.Equal(t, 2, warnings)
	assert.Equal(t, 1, completed)
}

func TestLowCountCrossed(t *testing.T) {
	cases := []struct {
		name          string
		total, serial int
		want          bool
	}{
		{"above warning", 20, 12, false},
		{"enters warning", 20, 11, true},
		{"inside warning", 20, 9, false},
		{"enters critical", 20, 6, true},
		{"inside critical", 20, 4, false},
		{"last mass", 20, 1, false},
		{"created low", 8, 8, true},
		{"created low second mass", 8, 7, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lowCountCrossed(tc.total, tc.serial, 10, 5))
		})
	}
}

func TestDetailLengthErrors(t *testing.T) {
	f := setup(t)
	long := strings.Repeat("x", 5001)

	cases := []struct {
		name    string
		details domain.Details
		want    error
	}{
		{"location", domain.Details{Location: &long}, domain.ErrInvalidLocation},
		{"notes", domain.Details{Notes: &long}, domain.ErrInvalidNotes},
		{"special circumstances", domain.Details{SpecialCircumstances: &long}, domain.ErrInvalidSpecialCircumstances},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), Details: tc.details})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBulkOwnershipAndMissing(t *testing.T) {
	f := setup(t)
	b := f.newBulk(t, 3)
	other := priestcontext.WithPriestID(context.Background(), snowflake.ID(200))

	_, err := f.svc.CelebrateBulkIntention(other, b.ID, nil)
	assert.ErrorIs(t, err, bulkdomain.ErrForbidden)
	_, err = f.svc.CelebrateBulkIntention(f.ctx, snowflake.ID(1), nil)
	assert.ErrorIs(t, err, bulkdomain.ErrNotFound)

	assert.Equal(t, 3, f.reloadBulk(t, b.ID).CurrentCount)
}

func TestDeleteBulkCelebrationLeavesCounter(t *testing.T) {
	f := setup(t)
	b := f.newBulk(t, 4)
	res, err := f.svc.CelebrateBulkIntention(f.ctx, b.ID, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, res.CelebrationID))

	got := f.reloadBulk(t, b.ID)
	assert.Equal(t, 3, got.CurrentCount)
	assert.Equal(t, 1, got.CompletedCount)

	_, err = f.svc.Get(f.ctx, res.CelebrationID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFutureDateRejected(t *testing.T) {
	f := setup(t)
	tomorrow := clock.Today(f.clock).AddDate(0, 0, 1)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: &tomorrow})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = f.svc.Create(f.ctx, domain.CreateRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	bad := "25:00"
	_, err = f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), Details: domain.Details{MassTime: &bad}})
	assert.ErrorIs(t, err, domain.ErrInvalidMassTime)

	a, b := snowflake.ID(1), snowflake.ID(2)
	_, err = f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), IntentionID: &a, BulkIntentionID: &b})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestPersonalMassCountsTowardObligation(t *testing.T) {
	f := setup(t)
	personal := f.intention(t, intentiondomain.TypePersonal)

	res, err := f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), IntentionID: &personal.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.KindPersonal, res.Kind)
	assert.Equal(t, "Personal mass recorded successfully", res.Message)
	require.NotNil(t, res.Obligation)
	assert.Equal(t, 1, res.Obligation.Obligation.CompletedCount)
	assert.True(t, res.Celebration.IsPersonalMass)

	require.NoError(t, f.svc.Delete(f.ctx, res.Celebration.ID))
	current, err := f.obligations.Current(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, current.CompletedCount)
}

func TestPersonalMassBeyondQuotaIsStillRecorded(t *testing.T) {
	f := setup(t)
	first := f.intention(t, intentiondomain.TypePersonal)
	second := f.intention(t, intentiondomain.TypePersonal)
	_, err := f.obligations.UpdateTarget(f.ctx, 2024, 3, 1)
	assert.ErrorIs(t, err, obligationdomain.ErrNotFound)
	_, err = f.obligations.Current(f.ctx)
	require.NoError(t, err)
	_, err = f.obligations.UpdateTarget(f.ctx, 2024, 3, 1)
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), IntentionID: &first.ID})
	require.NoError(t, err)
	res, err := f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), IntentionID: &second.ID})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "limit was already reached")
	assert.Nil(t, res.Obligation)

	today, err := f.svc.Today(f.ctx)
	require.NoError(t, err)
	assert.Len(t, today, 2)
}

func TestIntentionRulesApply(t *testing.T) {
	f := setup(t)
	special := f.intention(t, intentiondomain.TypeSpecial)

	res, err := f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), IntentionID: &special.ID})
	require.NoError(t, err)
	assert.Equal(t, "special", res.Celebration.CelebrationType)

	_, err = f.svc.Create(f.ctx, domain.CreateRequest{CelebrationDate: f.today(), IntentionID: &special.ID})
	assert.ErrorIs(t, err, intentiondomain.ErrAlreadyCelebrated)
}

func TestGeneralMassUpdateAndSearch(t *testing.T) {
	f := setup(t)
	location := "St. Joseph Chapel"
	attendees := 40
	res, err := f.svc.Create(f.ctx, domain.CreateRequest{
		CelebrationDate: f.today(),
		Details:         domain.Details{Location: &location, AttendeesCount: &attendees},
	})
	require.NoError(t, err)
	assert.Equal(t, "general", res.Celebration.CelebrationType)

	other := priestcontext.WithPriestID(context.Background(), snowflake.ID(200))
	_, err = f.svc.Get(other, res.Celebration.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Update(f.ctx, res.Celebration.ID, domain.UpdateRequest{})
	assert.ErrorIs(t, err, domain.ErrNoUpdateData)

	notes := "Feast day"
	updated, err := f.svc.Update(f.ctx, res.Celebration.ID, domain.UpdateRequest{Details: domain.Details{Notes: &notes}})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "Feast day", *updated.Notes)

	found, err := f.svc.Search(f.ctx, domain.SearchRequest{Query: "joseph"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)

	none, err := f.svc.Search(f.ctx, domain.SearchRequest{Query: "cathedral"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	summary, err := f.svc.MonthlySummary(f.ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalMasses)
	require.NotNil(t, summary.AvgAttendees)
	assert.Equal(t, 40.0, *summary.AvgAttendees)

	_, err = f.svc.MonthlySummary(f.ctx, 2024, 13)
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}
