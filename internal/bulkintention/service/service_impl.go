package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	"github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/internal/validation"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	massesPerDay     = 1.0
	maxPauseReason   = 1000
	defaultThreshold = 10
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        config.Config
	Thresholds    *config.ThresholdHolder
	Metrics       *metrics.Metrics `optional:"true"`
	Repo          domain.Repository
	IntentionRepo intentiondomain.Repository
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	paging        config.PagingConfig
	thresholds    *config.ThresholdHolder
	metrics       *metrics.Metrics
	repo          domain.Repository
	intentionRepo intentiondomain.Repository
}

func New(p Params) domain.Service {
	thresholds := p.Thresholds
	if thresholds == nil {
		thresholds = config.NewStaticThresholdHolder(config.DefaultThresholds(p.Config))
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("bulkintention.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		paging:        p.Config.Paging,
		thresholds:    thresholds,
		metrics:       p.Metrics,
		repo:          p.Repo,
		intentionRepo: p.IntentionRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.BulkIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.IntentionID == 0 {
		return nil, domain.ErrInvalidIntention
	}
	if req.TotalCount <= 0 {
		return nil, domain.ErrInvalidTotalCount
	}
	if err := validation.Struct(req); err != nil {
		return nil, domain.ErrInvalidNotes
	}

	intention, err := s.intentionRepo.FindByID(ctx, s.db, req.IntentionID)
	if err != nil {
		return nil, err
	}
	if intention == nil {
		return nil, intentiondomain.ErrNotFound
	}
	if intention.AssignedTo != priestID {
		return nil, domain.ErrForbidden
	}
	if !intention.IsBulk() {
		return nil, domain.ErrWrongIntentionType
	}

	start := clock.Today(s.clock)
	if req.StartDate != nil {
		start = clock.DateOf(*req.StartDate)
	}
	estimated := domain.InitialEstimatedEnd(start, req.TotalCount)
	if req.EstimatedEndDate != nil {
		estimated = clock.DateOf(*req.EstimatedEndDate)
		if estimated.Before(start) {
			return nil, domain.ErrInvalidEndDate
		}
	}

	now := s.clock.Now()
	bulk := &domain.BulkIntention{
		ID:               s.genID.Generate(),
		UUID:             uuid.NewString(),
		IntentionID:      intention.ID,
		PriestID:         priestID,
		TotalCount:       req.TotalCount,
		CurrentCount:     req.TotalCount,
		CompletedCount:   0,
		StartDate:        start,
		EstimatedEndDate: &estimated,
		Notes:            trimmedPtr(req.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, s.db, bulk); err != nil {
		return nil, err
	}

	s.log.Info("bulk intention created",
		zap.String("bulk_intention_id", bulk.ID.String()),
		zap.Int("total_count", bulk.TotalCount),
	)
	return bulk, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Detail, error) {
	bulk, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	title, err := s.repo.IntentionTitle(ctx, s.db, bulk.IntentionID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.PauseHistory(ctx, s.db, bulk.ID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.PauseEvent{}
	}
	return &domain.Detail{
		Summary:      s.summarize(domain.Row{BulkIntention: *bulk, IntentionTitle: title}),
		PauseHistory: history,
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = domain.FilterAll
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	page := req.Page.Normalize(s.paging.DefaultPageSize, s.paging.MaxPageSize)
	rows, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		PriestID: priestID,
		Status:   status,
	}, page)
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{
		Items:    s.summarizeAll(rows),
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.BulkIntention, error) {
	bulk, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, domain.ErrInvalidNotes
	}

	fields := map[string]any{}
	if req.Notes != nil {
		fields["notes"] = trimmedPtr(req.Notes)
	}
	if req.EstimatedEndDate != nil {
		end := clock.DateOf(*req.EstimatedEndDate)
		if end.Before(bulk.StartDate) {
			return nil, domain.ErrInvalidEndDate
		}
		fields["estimated_end_date"] = end
	}
	if len(fields) == 0 {
		return nil, domain.ErrNoUpdateData
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, bulk.ID, fields); err != nil {
		return nil, err
	}
	return s.reload(ctx, bulk.ID)
}

func (s *Service) Pause(ctx context.Context, id snowflake.ID, reason string) (*domain.BulkIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > maxPauseReason {
		return nil, domain.ErrInvalidReason
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bulk, err := s.lockOwned(ctx, tx, priestID, id)
		if err != nil {
			return err
		}
		if err := bulk.CanPause(); err != nil {
			return err
		}
		now := s.clock.Now()
		event := &domain.PauseEvent{
			ID:              s.genID.Generate(),
			BulkIntentionID: bulk.ID,
			PriestID:        priestID,
			Action:          domain.ActionPause,
			Reason:          &reason,
			CountAtEvent:    bulk.CurrentCount,
			EventDate:       clock.DateOf(now),
			CreatedAt:       now,
		}
		if err := s.repo.Pause(ctx, tx, bulk, reason, now, event); err != nil {
			if errors.Is(err, domain.ErrCountChanged) {
				return domain.ErrAlreadyPaused
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBulkTransition(ctx, "pause")
	s.log.Info("bulk intention paused", zap.String("bulk_intention_id", id.String()))
	return s.reload(ctx, id)
}

func (s *Service) Resume(ctx context.Context, id snowflake.ID) (*domain.BulkIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bulk, err := s.lockOwned(ctx, tx, priestID, id)
		if err != nil {
			return err
		}
		if err := bulk.CanResume(); err != nil {
			return err
		}
		now := s.clock.Now()
		event := &domain.PauseEvent{
			ID:              s.genID.Generate(),
			BulkIntentionID: bulk.ID,
			PriestID:        priestID,
			Action:          domain.ActionResume,
			CountAtEvent:    bulk.CurrentCount,
			EventDate:       clock.DateOf(now),
			CreatedAt:       now,
		}
		if err := s.repo.Resume(ctx, tx, bulk, now, event); err != nil {
			if errors.Is(err, domain.ErrCountChanged) {
				return domain.ErrNotPaused
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBulkTransition(ctx, "resume")
	s.log.Info("bulk intention resumed", zap.String("bulk_intention_id", id.String()))
	return s.reload(ctx, id)
}

func (s *Service) PauseHistory(ctx context.Context, id snowflake.ID) ([]domain.PauseEvent, error) {
	bulk, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.PauseHistory(ctx, s.db, bulk.ID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.PauseEvent{}
	}
	return history, nil
}

func (s *Service) LowCount(ctx context.Context, threshold int) (*domain.LowCountResult, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if threshold == 0 {
		threshold = s.thresholds.Get().BulkWarning
		if threshold <= 0 {
			threshold = defaultThreshold
		}
	}
	if threshold < 0 {
		return nil, domain.ErrInvalidThreshold
	}
	rows, err := s.repo.ListLowCount(ctx, s.db, priestID, threshold)
	if err != nil {
		return nil, err
	}
	return &domain.LowCountResult{Items: s.summarizeAll(rows), Threshold: threshold}, nil
}

func (s *Service) ActiveSummaries(ctx context.Context) ([]domain.Summary, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListActive(ctx, s.db, priestID)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(rows), nil
}

func (s *Service) owned(ctx context.Context, id snowflake.ID) (*domain.BulkIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	bulk, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if bulk == nil {
		return nil, domain.ErrNotFound
	}
	if bulk.PriestID != priestID {
		return nil, domain.ErrForbidden
	}
	return bulk, nil
}

func (s *Service) lockOwned(ctx context.Context, tx *gorm.DB, priestID, id snowflake.ID) (*domain.BulkIntention, error) {
	bulk, err := s.repo.FindForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if bulk == nil {
		return nil, domain.ErrNotFound
	}
	if bulk.PriestID != priestID {
		return nil, domain.ErrForbidden
	}
	return bulk, nil
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (*domain.BulkIntention, error) {
	bulk, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if bulk == nil {
		return nil, domain.ErrNotFound
	}
	return bulk, nil
}

func (s *Service) summarizeAll(rows []domain.Row) []domain.Summary {
	out := make([]domain.Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.summarize(row))
	}
	return out
}

func (s *Service) summarize(row domain.Row) domain.Summary {
	th := s.thresholds.Get()
	bulk := row.BulkIntention
	return domain.Summary{
		BulkIntention:           bulk,
		IntentionTitle:          row.IntentionTitle,
		StatusLevel:             bulk.StatusLevel(th.BulkWarning, th.BulkCritical),
		ProgressPercentage:      bulk.ProgressPercentage(),
		EstimatedCompletionDate: bulk.EstimatedCompletionDate(clock.Today(s.clock), massesPerDay),
	}
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
