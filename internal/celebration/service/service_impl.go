package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	"github.com/smallbiznis/masstrack/internal/celebration/domain"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	obligationservice "github.com/smallbiznis/masstrack/internal/obligation/service"
	"github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/internal/validation"
	dbpkg "github.com/smallbiznis/masstrack/pkg/db"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgCreated          = "Mass celebration created successfully"
	msgPersonalRecorded = "Personal mass recorded successfully"
	msgQuotaReached     = "Mass recorded but the monthly personal mass limit was already reached"
	msgObligationFailed = "Mass recorded but monthly obligation update failed"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Config         config.Config
	Thresholds     *config.ThresholdHolder
	Metrics        *metrics.Metrics `optional:"true"`
	Repo           domain.Repository
	BulkRepo       bulkdomain.Repository
	Intentions     intentiondomain.Service
	Obligations    obligationdomain.Tracker
	ObligationRepo obligationdomain.Repository
	Notifier       notificationdomain.Emitter
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	paging         config.PagingConfig
	thresholds     *config.ThresholdHolder
	metrics        *metrics.Metrics
	repo           domain.Repository
	bulkRepo       bulkdomain.Repository
	intentions     intentiondomain.Service
	obligations    obligationdomain.Tracker
	obligationRepo obligationdomain.Repository
	notifier       notificationdomain.Emitter
}

func New(p Params) domain.Service {
	thresholds := p.Thresholds
	if thresholds == nil {
		thresholds = config.NewStaticThresholdHolder(config.DefaultThresholds(p.Config))
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("celebration.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		paging:         p.Config.Paging,
		thresholds:     thresholds,
		metrics:        p.Metrics,
		repo:           p.Repo,
		bulkRepo:       p.BulkRepo,
		intentions:     p.Intentions,
		obligations:    p.Obligations,
		obligationRepo: p.ObligationRepo,
		notifier:       p.Notifier,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CreateResult, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.CelebrationDate == nil {
		return nil, domain.ErrInvalidDate
	}
	date, err := s.pastOrToday(*req.CelebrationDate)
	if err != nil {
		return nil, err
	}
	if err := validateDetails(req.Details); err != nil {
		return nil, err
	}
	if req.IntentionID != nil && req.BulkIntentionID != nil {
		return nil, domain.ErrInvalidTarget
	}

	switch {
	case req.BulkIntentionID != nil:
		c, bulk, err := s.celebrateBulk(ctx, priestID, *req.BulkIntentionID, date, req.Details)
		if err != nil {
			return nil, err
		}
		view, err := s.view(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return &domain.CreateResult{
			Celebration: *view,
			Kind:        domain.KindBulk,
			Message:     bulkMessage(bulk),
			Bulk:        bulk,
		}, nil

	case req.IntentionID != nil:
		intention, err := s.intentions.CheckCelebration(ctx, *req.IntentionID, date)
		if err != nil {
			return nil, err
		}
		c := s.newCelebration(priestID, date, req.Details)
		c.IntentionID = &intention.ID
		if intention.IntentionType == intentiondomain.TypePersonal {
			return s.celebratePersonal(ctx, priestID, c)
		}
		if err := s.insert(ctx, c, string(domain.KindIntention)); err != nil {
			return nil, err
		}
		return s.result(ctx, c, domain.KindIntention, msgCreated)

	default:
		c := s.newCelebration(priestID, date, req.Details)
		if err := s.insert(ctx, c, string(domain.KindGeneral)); err != nil {
			return nil, err
		}
		return s.result(ctx, c, domain.KindGeneral, msgCreated)
	}
}

func (s *Service) CelebrateBulkIntention(ctx context.Context, bulkID snowflake.ID, date *time.Time) (*domain.BulkResult, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	day := clock.Today(s.clock)
	if date != nil {
		day, err = s.pastOrToday(*date)
		if err != nil {
			return nil, err
		}
	}
	_, result, err := s.celebrateBulk(ctx, priestID, bulkID, day, domain.Details{})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// celebrateBulk records one mass against a batch. The ledger insert and the
// counter decrement commit or roll back together.
func (s *Service) celebrateBulk(ctx context.Context, priestID, bulkID snowflake.ID, date time.Time, details domain.Details) (*domain.MassCelebration, *domain.BulkResult, error) {
	var (
		celebration *domain.MassCelebration
		serial      int
		total       int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bulk, err := s.bulkRepo.FindForUpdate(ctx, tx, bulkID)
		if err != nil {
			return err
		}
		if bulk == nil {
			return bulkdomain.ErrNotFound
		}
		if bulk.PriestID != priestID {
			return bulkdomain.ErrForbidden
		}
		if err := bulk.CanCelebrate(); err != nil {
			return err
		}

		serial, total = bulk.CurrentCount, bulk.TotalCount
		c := s.newCelebration(priestID, date, details)
		c.BulkIntentionID = &bulk.ID
		c.SerialNumber = &serial
		if err := s.repo.Insert(ctx, tx, c); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return bulkdomain.ErrCountChanged
			}
			return err
		}
		if err := s.bulkRepo.DecrementCount(ctx, tx, bulk.ID, date, s.clock.Now()); err != nil {
			return err
		}
		celebration = c
		return nil
	})
	if dbpkg.IsLockTimeout(err) {
		return nil, nil, bulkdomain.ErrCountChanged
	}
	if err != nil {
		return nil, nil, err
	}

	remaining := serial - 1
	result := &domain.BulkResult{
		BulkIntentionID: bulkID,
		CelebrationID:   celebration.ID,
		NewSerialNumber: serial,
		RemainingCount:  remaining,
		CelebrationDate: date,
		IsCompleted:     remaining == 0,
	}

	s.metrics.RecordCelebration(ctx, string(domain.KindBulk))
	s.log.Info("bulk mass celebrated",
		zap.String("bulk_intention_id", bulkID.String()),
		zap.Int("serial_number", serial),
		zap.Int("remaining", remaining),
	)
	s.afterBulkCelebration(ctx, priestID, bulkID, total, serial)
	return celebration, result, nil
}

// afterBulkCelebration raises follow-up notifications. Failures are logged
// because the celebration is already committed.
func (s *Service) afterBulkCelebration(ctx context.Context, priestID, bulkID snowflake.ID, total, serial int) {
	remaining := serial - 1
	thresholds := s.thresholds.Get()

	var err error
	switch {
	case remaining == 0:
		s.metrics.RecordBulkTransition(ctx, "complete")
		_, err = s.notifier.BulkCompleted(ctx, priestID, bulkID, total)
	case lowCountCrossed(total, serial, thresholds.BulkWarning, thresholds.BulkCritical):
		_, err = s.notifier.BulkLowCount(ctx, priestID, bulkID, remaining)
	}
	if err != nil {
		s.log.Warn("bulk notification failed",
			zap.String("bulk_intention_id", bulkID.String()),
			zap.Error(err),
		)
	}
}

// lowCountCrossed reports whether the decrement from serial to serial-1 moved
// a batch into the warning or critical band. A batch created inside the
// warning band is reported on its first celebration.
func lowCountCrossed(total, serial, warning, critical int) bool {
	remaining := serial - 1
	if remaining <= 0 || remaining > warning {
		return false
	}
	if serial == total {
		return true
	}
	crossed := func(limit int) bool { return serial > limit && remaining <= limit }
	return crossed(warning) || crossed(critical)
}

// celebratePersonal records the mass first; counting it toward the monthly
// obligation may fail without undoing the celebration.
func (s *Service) celebratePersonal(ctx context.Context, priestID snowflake.ID, c *domain.MassCelebration) (*domain.CreateResult, error) {
	if err := s.insert(ctx, c, string(domain.KindPersonal)); err != nil {
		return nil, err
	}

	message := msgPersonalRecorded
	added, err := s.obligations.AddCelebration(ctx, priestID, c.CelebrationDate.Year(), int(c.CelebrationDate.Month()), c.ID)
	switch {
	case errors.Is(err, obligationdomain.ErrQuotaReached):
		message = msgQuotaReached
	case err != nil:
		s.log.Warn("monthly obligation update failed",
			zap.String("celebration_id", c.ID.String()),
			zap.Error(err),
		)
		message = msgObligationFailed
	}

	res, err := s.result(ctx, c, domain.KindPersonal, message)
	if err != nil {
		return nil, err
	}
	res.Obligation = added
	return res, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.View, error) {
	row, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	view := domain.NewView(*row)
	return &view, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(priestID, req.StartDate, req.EndDate, req.IntentionType)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, req.Page)
}

func (s *Service) Today(ctx context.Context) ([]domain.View, error) {
	today := clock.Today(s.clock)
	return s.Between(ctx, today, today)
}

func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(priestID, req.StartDate, req.EndDate, req.IntentionType)
	if err != nil {
		return nil, err
	}
	filter.Query = req.Query
	return s.list(ctx, filter, req.Page)
}

func (s *Service) MonthlySummary(ctx context.Context, year, month int) (*domain.MonthlySummary, error) {
	if year < 1900 || year > 9999 {
		return nil, domain.ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return nil, domain.ErrInvalidMonth
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	views, err := s.Between(ctx, start, start.AddDate(0, 1, -1))
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Row, 0, len(views))
	for _, v := range views {
		rows = append(rows, v.Row)
	}
	summary := domain.Summarize(year, month, rows)
	return &summary, nil
}

func (s *Service) Between(ctx context.Context, start, end time.Time) ([]domain.View, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	start, end = clock.DateOf(start), clock.DateOf(end)
	if end.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}
	rows, err := s.repo.ListAll(ctx, s.db, domain.ListFilter{
		PriestID:  priestID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, err
	}
	return views(rows), nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.View, error) {
	row, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateDetails(req.Details); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.CelebrationDate != nil {
		date, err := s.pastOrToday(*req.CelebrationDate)
		if err != nil {
			return nil, err
		}
		fields["celebration_date"] = date
	}
	if req.MassTime != nil {
		fields["mass_time"] = trimmedPtr(req.MassTime)
	}
	if req.Location != nil {
		fields["location"] = trimmedPtr(req.Location)
	}
	if req.Notes != nil {
		fields["notes"] = trimmedPtr(req.Notes)
	}
	if req.AttendeesCount != nil {
		fields["attendees_count"] = *req.AttendeesCount
	}
	if req.SpecialCircumstances != nil {
		fields["special_circumstances"] = trimmedPtr(req.SpecialCircumstances)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNoUpdateData
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, row.ID, fields); err != nil {
		return nil, err
	}
	return s.view(ctx, row.ID)
}

// Delete removes a ledger entry. A linked bulk counter is left as is; a
// linked monthly obligation gets its slot back.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	row, err := s.owned(ctx, id)
	if err != nil {
		return err
	}
	unlinked := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, unlinkErr := obligationservice.UnlinkCelebration(ctx, tx, s.obligationRepo, row.ID, s.clock.Now())
		if unlinkErr != nil {
			return unlinkErr
		}
		unlinked = removed
		return s.repo.Delete(ctx, tx, row.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("mass celebration deleted",
		zap.String("celebration_id", row.ID.String()),
		zap.Bool("bulk", row.IsBulkMass()),
		zap.Bool("obligation_unlinked", unlinked),
	)
	return nil
}

func (s *Service) ListByBulkIntention(ctx context.Context, bulkID snowflake.ID, page pagination.Pagination) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	bulk, err := s.bulkRepo.FindByID(ctx, s.db, bulkID)
	if err != nil {
		return nil, err
	}
	if bulk == nil {
		return nil, bulkdomain.ErrNotFound
	}
	if bulk.PriestID != priestID {
		return nil, bulkdomain.ErrForbidden
	}
	return s.list(ctx, domain.ListFilter{PriestID: priestID, BulkIntentionID: &bulk.ID}, page)
}

func (s *Service) list(ctx context.Context, filter domain.ListFilter, page pagination.Pagination) (*domain.ListResponse, error) {
	page = page.Normalize(s.paging.DefaultPageSize, s.paging.MaxPageSize)
	rows, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{
		Items:    views(rows),
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) owned(ctx context.Context, id snowflake.ID) (*domain.Row, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	if row.PriestID != priestID {
		return nil, domain.ErrForbidden
	}
	return row, nil
}

func (s *Service) view(ctx context.Context, id snowflake.ID) (*domain.View, error) {
	row, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	view := domain.NewView(*row)
	return &view, nil
}

func (s *Service) result(ctx context.Context, c *domain.MassCelebration, kind domain.Kind, message string) (*domain.CreateResult, error) {
	view, err := s.view(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &domain.CreateResult{Celebration: *view, Kind: kind, Message: message}, nil
}

func (s *Service) insert(ctx context.Context, c *domain.MassCelebration, kind string) error {
	if err := s.repo.Insert(ctx, s.db, c); err != nil {
		return err
	}
	s.metrics.RecordCelebration(ctx, kind)
	s.log.Info("mass celebration recorded",
		zap.String("celebration_id", c.ID.String()),
		zap.String("kind", kind),
	)
	return nil
}

func (s *Service) newCelebration(priestID snowflake.ID, date time.Time, d domain.Details) *domain.MassCelebration {
	now := s.clock.Now()
	return &domain.MassCelebration{
		ID:                   s.genID.Generate(),
		UUID:                 uuid.NewString(),
		PriestID:             priestID,
		CelebrationDate:      date,
		MassTime:             trimmedPtr(d.MassTime),
		Location:             trimmedPtr(d.Location),
		Notes:                trimmedPtr(d.Notes),
		AttendeesCount:       d.AttendeesCount,
		SpecialCircumstances: trimmedPtr(d.SpecialCircumstances),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (s *Service) pastOrToday(date time.Time) (time.Time, error) {
	day := clock.DateOf(date)
	if day.After(clock.Today(s.clock)) {
		return time.Time{}, domain.ErrInvalidDate
	}
	return day, nil
}

func validateDetails(d domain.Details) error {
	if d.MassTime != nil && strings.TrimSpace(*d.MassTime) != "" && !validation.IsClockTime(strings.TrimSpace(*d.MassTime)) {
		return domain.ErrInvalidMassTime
	}
	if d.AttendeesCount != nil && *d.AttendeesCount < 0 {
		return domain.ErrInvalidAttendees
	}
	if err := validation.Struct(d); err != nil {
		fields := validation.FieldErrors(err)
		switch {
		case fields["location"] != "":
			return domain.ErrInvalidLocation
		case fields["special_circumstances"] != "":
			return domain.ErrInvalidSpecialCircumstances
		default:
			return domain.ErrInvalidNotes
		}
	}
	return nil
}

func buildFilter(priestID snowflake.ID, start, end *time.Time, intentionType *string) (domain.ListFilter, error) {
	filter := domain.ListFilter{PriestID: priestID, IntentionType: intentionType}
	if start != nil {
		d := clock.DateOf(*start)
		filter.StartDate = &d
	}
	if end != nil {
		d := clock.DateOf(*end)
		filter.EndDate = &d
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, domain.ErrInvalidDateRange
	}
	if intentionType != nil && !intentiondomain.IntentionType(*intentionType).Valid() {
		return filter, domain.ErrInvalidType
	}
	return filter, nil
}

func bulkMessage(r *domain.BulkResult) string {
	if r.IsCompleted {
		return "Mass celebrated successfully. Bulk intention completed"
	}
	return fmt.Sprintf("Mass celebrated successfully. Remaining: %d", r.RemainingCount)
}

func views(rows []domain.Row) []domain.View {
	out := make([]domain.View, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.NewView(r))
	}
	return out
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
