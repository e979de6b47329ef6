package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/obligation/domain"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	dbpkg "github.com/smallbiznis/masstrack/pkg/db"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultMonthsBack = 6

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Thresholds *config.ThresholdHolder
	Repo       domain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	paging     config.PagingConfig
	thresholds *config.ThresholdHolder
	repo       domain.Repository
}

func New(p Params) domain.Service {
	thresholds := p.Thresholds
	if thresholds == nil {
		thresholds = config.NewStaticThresholdHolder(config.DefaultThresholds(p.Config))
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("obligation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		paging:     p.Config.Paging,
		thresholds: thresholds,
		repo:       p.Repo,
	}
}

func NewTracker(svc domain.Service) domain.Tracker {
	return svc
}

func (s *Service) StatusRules() domain.StatusRules {
	th := s.thresholds.Get()
	return domain.StatusRules{
		OnTrackRatio:     th.OnTrackRatio,
		UrgentDayOfMonth: th.UrgentDayOfMonth,
	}
}

func (s *Service) GetOrCreate(ctx context.Context, priestID snowflake.ID, year, month int) (*domain.MonthlyObligation, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByPeriod(ctx, s.db, priestID, year, month)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	o := &domain.MonthlyObligation{
		ID:          s.genID.Generate(),
		UUID:        uuid.NewString(),
		PriestID:    priestID,
		Year:        year,
		Month:       month,
		TargetCount: s.thresholds.Get().MonthlyTarget,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, o); err != nil {
		if !dbpkg.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// lost the race to a concurrent request
		existing, err = s.repo.FindByPeriod(ctx, s.db, priestID, year, month)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, domain.ErrNotFound
		}
		return existing, nil
	}
	return o, nil
}

func (s *Service) AddCelebration(ctx context.Context, priestID snowflake.ID, year, month int, celebrationID snowflake.ID) (*domain.AddResult, error) {
	o, err := s.GetOrCreate(ctx, priestID, year, month)
	if err != nil {
		return nil, err
	}
	if o.IsCompleted() {
		return nil, domain.ErrQuotaReached
	}

	added := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		linked, err := s.repo.LinkExists(ctx, tx, o.ID, celebrationID)
		if err != nil {
			return err
		}
		if linked {
			return nil
		}
		now := s.clock.Now()
		if err := s.repo.Increment(ctx, tx, o.ID, now); err != nil {
			return err
		}
		added = true
		return s.repo.InsertLink(ctx, tx, &domain.PersonalMassLink{
			ID:                  s.genID.Generate(),
			MonthlyObligationID: o.ID,
			MassCelebrationID:   celebrationID,
			CreatedAt:           now,
		})
	})
	if err != nil {
		return nil, err
	}

	o, err = s.reload(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if !added {
		return &domain.AddResult{
			Obligation: o,
			Message:    "This mass is already counted towards monthly obligation",
		}, nil
	}
	return &domain.AddResult{
		Obligation: o,
		Added:      true,
		Message:    fmt.Sprintf("Personal mass added. Progress: %d/%d", o.CompletedCount, o.TargetCount),
	}, nil
}

func (s *Service) RemoveCelebration(ctx context.Context, celebrationID snowflake.ID) (bool, error) {
	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = UnlinkCelebration(ctx, tx, s.repo, celebrationID, s.clock.Now())
		return err
	})
	return removed, err
}

// UnlinkCelebration drops the obligation link of celebrationID, if any, and
// gives the slot back. It runs on the caller's transaction.
func UnlinkCelebration(ctx context.Context, tx *gorm.DB, repo domain.Repository, celebrationID snowflake.ID, now time.Time) (bool, error) {
	link, err := repo.FindLinkByCelebration(ctx, tx, celebrationID)
	if err != nil {
		return false, err
	}
	if link == nil {
		return false, nil
	}
	affected, err := repo.DeleteLink(ctx, tx, link.ID)
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	if err := repo.Decrement(ctx, tx, link.MonthlyObligationID, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Current(ctx context.Context) (*domain.View, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	today := clock.Today(s.clock)
	o, err := s.GetOrCreate(ctx, priestID, today.Year(), int(today.Month()))
	if err != nil {
		return nil, err
	}
	return s.view(*o), nil
}

func (s *Service) Get(ctx context.Context, year, month int) (*domain.View, error) {
	o, err := s.find(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return s.view(*o), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.Year != nil {
		if err := validatePeriod(*req.Year, 1); err != nil {
			return nil, err
		}
	}
	page := req.Page.Normalize(s.paging.DefaultPageSize, s.paging.MaxPageSize)
	items, total, err := s.repo.List(ctx, s.db, priestID, req.Year, page)
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{
		Items:    s.views(items),
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Recalculate(ctx context.Context, year, month int) (*domain.View, error) {
	o, err := s.find(ctx, year, month)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountLinks(ctx, s.db, o.ID)
	if err != nil {
		return nil, err
	}
	if int(count) != o.CompletedCount {
		if err := s.repo.Update(ctx, s.db, o.ID, map[string]any{
			"completed_count": int(count),
			"updated_at":      s.clock.Now(),
		}); err != nil {
			return nil, err
		}
		s.log.Info("monthly obligation recalculated",
			zap.String("obligation_id", o.ID.String()),
			zap.Int("from", o.CompletedCount),
			zap.Int64("to", count),
		)
		o.CompletedCount = int(count)
	}
	return s.view(*o), nil
}

func (s *Service) UpdateTarget(ctx context.Context, year, month, target int) (*domain.View, error) {
	if target <= 0 {
		return nil, domain.ErrInvalidTarget
	}
	o, err := s.find(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, s.db, o.ID, map[string]any{
		"target_count": target,
		"updated_at":   s.clock.Now(),
	}); err != nil {
		return nil, err
	}
	o.TargetCount = target
	return s.view(*o), nil
}

func (s *Service) Incomplete(ctx context.Context, monthsBack int) ([]domain.View, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if monthsBack == 0 {
		monthsBack = defaultMonthsBack
	}
	if monthsBack < 0 || monthsBack > 120 {
		return nil, domain.ErrInvalidMonthsAgo
	}
	today := clock.Today(s.clock)
	from := domain.MonthIndex(today.Year(), int(today.Month())) - monthsBack
	items, err := s.repo.ListIncompleteSince(ctx, s.db, priestID, from)
	if err != nil {
		return nil, err
	}
	return s.views(items), nil
}

func (s *Service) YearlySummary(ctx context.Context, year int) (*domain.YearlySummary, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if err := validatePeriod(year, 1); err != nil {
		return nil, err
	}
	items, _, err := s.repo.List(ctx, s.db, priestID, &year, pagination.Pagination{})
	if err != nil {
		return nil, err
	}
	summary := domain.Summarize(year, items)
	return &summary, nil
}

func (s *Service) find(ctx context.Context, year, month int) (*domain.MonthlyObligation, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	o, err := s.repo.FindByPeriod(ctx, s.db, priestID, year, month)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (*domain.MonthlyObligation, error) {
	o, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) view(o domain.MonthlyObligation) *domain.View {
	v := domain.NewView(o, clock.Today(s.clock), s.StatusRules())
	return &v
}

func (s *Service) views(items []domain.MonthlyObligation) []domain.View {
	today := clock.Today(s.clock)
	rules := s.StatusRules()
	out := make([]domain.View, 0, len(items))
	for _, o := range items {
		out = append(out, domain.NewView(o, today, rules))
	}
	return out
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
