package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/intention/domain"
	"github.com/smallbiznis/masstrack/internal/intention/repository"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	ctx   context.Context
	node  *snowflake.Node
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn := db.NewTest(t, &domain.MassIntention{})
	require.NoError(t, conn.Exec(`CREATE TABLE mass_celebrations (id INTEGER PRIMARY KEY, intention_id INTEGER)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
		Config: config.Config{Paging: config.PagingConfig{DefaultPageSize: 20, MaxPageSize: 100}},
		Repo:   repository.Provide(),
	})
	return fixture{
		svc:   svc,
		db:    conn,
		clock: fake,
		ctx:   priestcontext.WithPriestID(context.Background(), snowflake.ID(100)),
		node:  node,
	}
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCreateDefaults(t *testing.T) {
	f := setup(t)

	got, err := f.svc.Create(f.ctx, domain.CreateRequest{
		IntentionType: domain.TypePersonal,
		Title:         "  For the parish  ",
		Source:        domain.SourceParish,
		SourceContact: map[string]any{"phone": "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "For the parish", got.Title)
	assert.Equal(t, snowflake.ID(100), got.AssignedTo)
	assert.Equal(t, snowflake.ID(100), got.CreatedBy)
	assert.Equal(t, 1, got.Priority)
	assert.True(t, got.IsActive)
	assert.NotEmpty(t, got.UUID)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"bad type", domain.CreateRequest{IntentionType: "weekly", Title: "x", Source: domain.SourceParish}, domain.ErrInvalidType},
		{"bad source", domain.CreateRequest{IntentionType: domain.TypeBulk, Title: "x", Source: "bank"}, domain.ErrInvalidSource},
		{"empty title", domain.CreateRequest{IntentionType: domain.TypeBulk, Title: " ", Source: domain.SourceParish}, domain.ErrInvalidTitle},
		{"fixed date missing", domain.CreateRequest{IntentionType: domain.TypeFixedDate, Title: "x", Source: domain.SourceFamily, IsFixedDate: true}, domain.ErrInvalidFixedDate},
		{"nested metadata", domain.CreateRequest{IntentionType: domain.TypeBulk, Title: "x", Source: domain.SourceParish, Metadata: map[string]any{"a": map[string]any{}}}, domain.ErrInvalidMetadata},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGetForbiddenForOtherPriest(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(f.ctx, domain.CreateRequest{IntentionType: domain.TypeBulk, Title: "Batch", Source: domain.SourceProvince})
	require.NoError(t, err)

	other := priestcontext.WithPriestID(context.Background(), snowflake.ID(200))
	_, err = f.svc.Get(other, created.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(f.ctx, snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckCelebrationRules(t *testing.T) {
	f := setup(t)

	fixed, err := f.svc.Create(f.ctx, domain.CreateRequest{
		IntentionType: domain.TypeAnniversary,
		Title:         "Wedding anniversary",
		Source:        domain.SourceFamily,
		IsFixedDate:   true,
		FixedDate:     day(2024, 3, 12),
	})
	require.NoError(t, err)

	_, err = f.svc.CheckCelebration(f.ctx, fixed.ID, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrFixedDateMismatch)
	_, err = f.svc.CheckCelebration(f.ctx, fixed.ID, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)

	special, err := f.svc.Create(f.ctx, domain.CreateRequest{
		IntentionType: domain.TypeSpecial,
		Title:         "Healing",
		Source:        domain.SourceIndividual,
		DeadlineDate:  day(2024, 3, 5),
	})
	require.NoError(t, err)
	_, err = f.svc.CheckCelebration(f.ctx, special.ID, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrPastDeadline)

	deceased, err := f.svc.Create(f.ctx, domain.CreateRequest{IntentionType: domain.TypeDeceased, Title: "For the soul of M.", Source: domain.SourceFamily})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`INSERT INTO mass_celebrations (id, intention_id) VALUES (?, ?)`, 1, deceased.ID).Error)
	_, err = f.svc.CheckCelebration(f.ctx, deceased.ID, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrAlreadyCelebrated)

	_, err = f.svc.Deactivate(f.ctx, special.ID)
	require.NoError(t, err)
	_, err = f.svc.CheckCelebration(f.ctx, special.ID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrInactive)

	other := priestcontext.WithPriestID(context.Background(), snowflake.ID(7))
	_, err = f.svc.CheckCelebration(other, fixed.ID, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpcomingFixedDatesAndSearch(t *testing.T) {
	f := setup(t)
	for i, d := range []int{11, 25} {
		_, err := f.svc.Create(f.ctx, domain.CreateRequest{
			IntentionType: domain.TypeBirthday,
			Title:         []string{"Birthday of Anna", "Birthday of Luca"}[i],
			Source:        domain.SourceFamily,
			IsFixedDate:   true,
			FixedDate:     day(2024, 3, d),
		})
		require.NoError(t, err)
	}
	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		IntentionType: domain.TypeBirthday,
		Title:         "Birthday next year",
		Source:        domain.SourceFamily,
		IsFixedDate:   true,
		FixedDate:     day(2025, 3, 11),
	})
	require.NoError(t, err)

	upcoming, err := f.svc.UpcomingFixedDates(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Birthday of Anna", upcoming[0].Title)

	_, err = f.svc.UpcomingFixedDates(f.ctx, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidDaysAhead)

	res, err := f.svc.Search(f.ctx, domain.SearchRequest{Query: "luca"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(1), res.PageInfo.Total)
}

func TestUpdateRequiresData(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(f.ctx, domain.CreateRequest{IntentionType: domain.TypeBulk, Title: "Batch", Source: domain.SourceGeneralate})
	require.NoError(t, err)

	_, err = f.svc.Update(f.ctx, created.ID, domain.UpdateRequest{})
	assert.ErrorIs(t, err, domain.ErrNoUpdateData)

	priority := 5
	updated, err := f.svc.Update(f.ctx, created.ID, domain.UpdateRequest{Priority: &priority, Metadata: map[string]any{"batch": "A"}})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Priority)
	assert.Equal(t, "A", updated.Metadata["batch"])
}
