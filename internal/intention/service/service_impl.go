package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/intention/domain"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/internal/validation"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultDaysAhead = 30

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	paging config.PagingConfig
	repo   domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("intention.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		paging: p.Config.Paging,
		repo:   p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.MassIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	assignedTo := priestID
	if req.AssignedTo != nil && *req.AssignedTo != 0 {
		assignedTo = *req.AssignedTo
	}
	priority := 1
	if req.Priority != nil {
		priority = *req.Priority
	}

	now := s.clock.Now()
	intention := &domain.MassIntention{
		ID:            s.genID.Generate(),
		UUID:          uuid.NewString(),
		IntentionType: req.IntentionType,
		Title:         strings.TrimSpace(req.Title),
		Description:   trimmedPtr(req.Description),
		Source:        req.Source,
		SourceContact: req.SourceContact,
		CreatedBy:     priestID,
		AssignedTo:    assignedTo,
		Priority:      priority,
		IsFixedDate:   req.IsFixedDate,
		FixedDate:     datePtr(req.FixedDate),
		DeadlineDate:  datePtr(req.DeadlineDate),
		Metadata:      req.Metadata,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, intention); err != nil {
		return nil, err
	}
	s.log.Info("mass intention created",
		zap.String("intention_id", intention.ID.String()),
		zap.String("intention_type", string(intention.IntentionType)),
	)
	return intention, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.MassIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	intention, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if intention == nil {
		return nil, domain.ErrNotFound
	}
	if intention.AssignedTo != priestID && intention.CreatedBy != priestID {
		return nil, domain.ErrForbidden
	}
	return intention, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.IntentionType != nil && !req.IntentionType.Valid() {
		return nil, domain.ErrInvalidType
	}
	return s.list(ctx, domain.ListFilter{
		AssignedTo:    priestID,
		IntentionType: req.IntentionType,
		IsActive:      req.IsActive,
	}, req.Page)
}

func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.IntentionType != nil && !req.IntentionType.Valid() {
		return nil, domain.ErrInvalidType
	}
	return s.list(ctx, domain.ListFilter{
		AssignedTo:    priestID,
		IntentionType: req.IntentionType,
		Query:         req.Query,
	}, req.Page)
}

func (s *Service) list(ctx context.Context, filter domain.ListFilter, page pagination.Pagination) (*domain.ListResponse, error) {
	page = page.Normalize(s.paging.DefaultPageSize, s.paging.MaxPageSize)
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.MassIntention{}
	}
	return &domain.ListResponse{
		Items:    items,
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.MassIntention, error) {
	intention, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, mapValidationError(err)
	}

	fields := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = trimmedPtr(req.Description)
	}
	if req.SourceContact != nil {
		fields["source_contact"] = datatypes.JSONMap(req.SourceContact)
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}
	if req.FixedDate != nil {
		if !intention.IsFixedDate {
			return nil, domain.ErrInvalidFixedDate
		}
		fields["fixed_date"] = datePtr(req.FixedDate)
	}
	if req.DeadlineDate != nil {
		fields["deadline_date"] = datePtr(req.DeadlineDate)
	}
	if req.Metadata != nil {
		fields["metadata"] = datatypes.JSONMap(req.Metadata)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNoUpdateData
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, intention.ID, fields); err != nil {
		return nil, err
	}
	return s.reload(ctx, intention.ID)
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (*domain.MassIntention, error) {
	intention, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !intention.IsActive {
		return intention, nil
	}
	if err := s.repo.Update(ctx, s.db, intention.ID, map[string]any{
		"is_active":  false,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return nil, err
	}
	return s.reload(ctx, intention.ID)
}

func (s *Service) UpcomingFixedDates(ctx context.Context, daysAhead int) ([]domain.MassIntention, error) {
	if daysAhead == 0 {
		daysAhead = defaultDaysAhead
	}
	if daysAhead < 0 || daysAhead > 366 {
		return nil, domain.ErrInvalidDaysAhead
	}
	today := clock.Today(s.clock)
	return s.FixedDatesBetween(ctx, today, today.AddDate(0, 0, daysAhead))
}

func (s *Service) FixedDatesBetween(ctx context.Context, start, end time.Time) ([]domain.MassIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FixedDatesBetween(ctx, s.db, priestID, clock.DateOf(start), clock.DateOf(end))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.MassIntention{}
	}
	return items, nil
}

func (s *Service) CheckCelebration(ctx context.Context, id snowflake.ID, date time.Time) (*domain.MassIntention, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	intention, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if intention == nil {
		return nil, domain.ErrNotFound
	}
	if intention.AssignedTo != priestID {
		return nil, domain.ErrForbidden
	}

	celebrated := false
	if !intention.IsBulk() {
		celebrated, err = s.repo.HasCelebration(ctx, s.db, intention.ID)
		if err != nil {
			return nil, err
		}
	}
	if err := intention.CanBeCelebratedOn(clock.DateOf(date), celebrated); err != nil {
		return nil, err
	}
	return intention, nil
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (*domain.MassIntention, error) {
	intention, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if intention == nil {
		return nil, domain.ErrNotFound
	}
	return intention, nil
}

func validateCreate(req domain.CreateRequest) error {
	if !req.IntentionType.Valid() {
		return domain.ErrInvalidType
	}
	if !req.Source.Valid() {
		return domain.ErrInvalidSource
	}
	if strings.TrimSpace(req.Title) == "" {
		return domain.ErrInvalidTitle
	}
	if err := validation.Struct(req); err != nil {
		return mapValidationError(err)
	}
	if req.IsFixedDate && req.FixedDate == nil {
		return domain.ErrInvalidFixedDate
	}
	if !req.IsFixedDate && req.FixedDate != nil {
		return domain.ErrInvalidFixedDate
	}
	return nil
}

func mapValidationError(err error) error {
	fields := validation.FieldErrors(err)
	switch {
	case fields == nil:
		return err
	case fields["source_contact"] != "":
		return domain.ErrInvalidSourceContact
	case fields["metadata"] != "":
		return domain.ErrInvalidMetadata
	case fields["priority"] != "":
		return domain.ErrInvalidPriority
	case fields["title"] != "", fields["description"] != "":
		return domain.ErrInvalidTitle
	default:
		return domain.ErrInvalidMetadata
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

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := clock.DateOf(*t)
	return &d
}
