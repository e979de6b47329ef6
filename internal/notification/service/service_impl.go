package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/notification/domain"
	"github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/internal/validation"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Thresholds *config.ThresholdHolder
	Metrics    *metrics.Metrics `optional:"true"`
	Repo       domain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	paging     config.PagingConfig
	retention  int
	thresholds *config.ThresholdHolder
	metrics    *metrics.Metrics
	repo       domain.Repository
}

func New(p Params) domain.Service {
	thresholds := p.Thresholds
	if thresholds == nil {
		thresholds = config.NewStaticThresholdHolder(config.DefaultThresholds(p.Config))
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("notification.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		paging:     p.Config.Paging,
		retention:  p.Config.Masses.NotificationRetention,
		thresholds: thresholds,
		metrics:    p.Metrics,
		repo:       p.Repo,
	}
}

// NewEmitter exposes the emitting half of the service to other packages.
func NewEmitter(svc domain.Service) domain.Emitter {
	return svc
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Notification, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !req.NotificationType.Valid() {
		return nil, domain.ErrInvalidType
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityNormal
	}
	if !req.Priority.Valid() {
		return nil, domain.ErrInvalidPriority
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.ErrInvalidTitle
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.ErrInvalidMessage
	}
	if err := validation.Struct(req); err != nil {
		fields := validation.FieldErrors(err)
		if fields["title"] != "" {
			return nil, domain.ErrInvalidTitle
		}
		return nil, domain.ErrInvalidMessage
	}
	if req.RelatedEntityType != nil && !validEntity(*req.RelatedEntityType) {
		return nil, domain.ErrInvalidEntity
	}

	n := s.build(priestID, req.NotificationType, strings.TrimSpace(req.Title), strings.TrimSpace(req.Message), req.Priority)
	n.ScheduledFor = req.ScheduledFor
	n.RelatedEntityType = req.RelatedEntityType
	n.RelatedEntityID = req.RelatedEntityID
	if err := s.insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.View, error) {
	n, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	view := domain.NewView(*n, s.clock.Now())
	return &view, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.Type != nil && !req.Type.Valid() {
		return nil, domain.ErrInvalidType
	}

	page := req.Page.Normalize(s.paging.DefaultPageSize, s.paging.MaxPageSize)
	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		PriestID: priestID,
		IsRead:   req.IsRead,
		Type:     req.Type,
	}, page)
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{
		Items:    s.views(items),
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, id snowflake.ID) (*domain.Notification, error) {
	n, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	now := s.clock.Now()
	if err := s.repo.Update(ctx, s.db, n.ID, map[string]any{"is_read": true, "read_at": now}); err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &now
	return n, nil
}

func (s *Service) MarkUnread(ctx context.Context, id snowflake.ID) (*domain.Notification, error) {
	n, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.IsRead {
		return n, nil
	}
	if err := s.repo.Update(ctx, s.db, n.ID, map[string]any{"is_read": false, "read_at": nil}); err != nil {
		return nil, err
	}
	n.IsRead = false
	n.ReadAt = nil
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, s.db, priestID, s.clock.Now())
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	n, err := s.owned(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, n.ID)
}

func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, s.db, priestID)
}

func (s *Service) Urgent(ctx context.Context) ([]domain.View, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListUrgentUnread(ctx, s.db, priestID)
	if err != nil {
		return nil, err
	}
	return s.views(items), nil
}

func (s *Service) BulkLowCount(ctx context.Context, priestID, bulkID snowflake.ID, remaining int) (*domain.Notification, error) {
	n := s.build(priestID, domain.TypeWarning,
		"Bulk Intention Low Count",
		fmt.Sprintf("Your bulk intention has only %d masses remaining. Consider planning your celebration schedule.", remaining),
		domain.PriorityHigh,
	)
	relate(n, domain.EntityBulkIntention, bulkID)
	return n, s.insert(ctx, n)
}

func (s *Service) BulkCompleted(ctx context.Context, priestID, bulkID snowflake.ID, total int) (*domain.Notification, error) {
	n := s.build(priestID, domain.TypeSuccess,
		"Bulk Intention Completed",
		fmt.Sprintf("All %d masses of your bulk intention have been celebrated.", total),
		domain.PriorityNormal,
	)
	relate(n, domain.EntityBulkIntention, bulkID)
	return n, s.insert(ctx, n)
}

func (s *Service) MonthlyReminder(ctx context.Context, priestID, obligationID snowflake.ID, completed, target int, month time.Month) (*domain.Notification, error) {
	remaining := target - completed
	priority := domain.PriorityNormal
	if remaining > 0 && s.clock.Now().Day() > s.thresholds.Get().UrgentDayOfMonth {
		priority = domain.PriorityUrgent
	}
	n := s.build(priestID, domain.TypeReminder,
		"Monthly Personal Masses",
		fmt.Sprintf("You have completed %d out of %d personal masses for %s. Remember to complete the remaining %d before month end.",
			completed, target, month.String(), remaining),
		priority,
	)
	relate(n, domain.EntityMonthlyObligation, obligationID)
	return n, s.insert(ctx, n)
}

func (s *Service) FixedDateReminder(ctx context.Context, priestID, intentionID snowflake.ID, title string, date time.Time) (*domain.Notification, error) {
	n := s.build(priestID, domain.TypeReminder,
		"Fixed Date Mass Approaching",
		fmt.Sprintf("%q is scheduled for %s. Please prepare accordingly.", title, date.Format(time.DateOnly)),
		domain.PriorityHigh,
	)
	relate(n, domain.EntityMassIntention, intentionID)
	return n, s.insert(ctx, n)
}

func (s *Service) HasReminderSince(ctx context.Context, priestID snowflake.ID, entityType string, entityID snowflake.ID, since time.Time) (bool, error) {
	return s.repo.ExistsSince(ctx, s.db, priestID, entityType, entityID, since)
}

func (s *Service) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days == 0 {
		days = s.retention
	}
	if days <= 0 {
		return 0, domain.ErrInvalidDays
	}
	cutoff := s.clock.Now().AddDate(0, 0, -days)
	deleted, err := s.repo.DeleteReadBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("old notifications deleted", zap.Int64("deleted", deleted), zap.Int("days", days))
	}
	return deleted, nil
}

func (s *Service) DueScheduled(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	items, err := s.repo.ListDueScheduled(ctx, s.db, now)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

func (s *Service) build(priestID snowflake.ID, typ domain.Type, title, message string, priority domain.Priority) *domain.Notification {
	return &domain.Notification{
		ID:               s.genID.Generate(),
		UUID:             uuid.NewString(),
		PriestID:         priestID,
		NotificationType: typ,
		Title:            title,
		Message:          message,
		Priority:         priority,
		CreatedAt:        s.clock.Now(),
	}
}

func (s *Service) insert(ctx context.Context, n *domain.Notification) error {
	if err := s.repo.Insert(ctx, s.db, n); err != nil {
		return err
	}
	s.metrics.RecordNotification(ctx, string(n.NotificationType), string(n.Priority))
	s.log.Debug("notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("priest_id", n.PriestID.String()),
		zap.String("type", string(n.NotificationType)),
	)
	return nil
}

func (s *Service) owned(ctx context.Context, id snowflake.ID) (*domain.Notification, error) {
	priestID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.ErrNotFound
	}
	if n.PriestID != priestID {
		return nil, domain.ErrForbidden
	}
	return n, nil
}

func (s *Service) views(items []domain.Notification) []domain.View {
	now := s.clock.Now()
	out := make([]domain.View, 0, len(items))
	for _, n := range items {
		out = append(out, domain.NewView(n, now))
	}
	return out
}

func relate(n *domain.Notification, entityType string, id snowflake.ID) {
	n.RelatedEntityType = &entityType
	if id != 0 {
		n.RelatedEntityID = &id
	}
}

func validEntity(entityType string) bool {
	switch entityType {
	case domain.EntityBulkIntention, domain.EntityMassIntention, domain.EntityMassCelebration, domain.EntityMonthlyObligation:
		return true
	default:
		return false
	}
}
