package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/intention/domain"
	"github.com/smallbiznis/masstrack/pkg/db/option"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, intention *domain.MassIntention) error {
	return db.WithContext(ctx).Create(intention).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MassIntention, error) {
	var intention domain.MassIntention
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&intention).Error
	if err != nil {
		return nil, err
	}
	if intention.ID == 0 {
		return nil, nil
	}
	return &intention, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.MassIntention, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.MassIntention{}).
		Where("assigned_to = ?", filter.AssignedTo)
	if filter.IntentionType != nil {
		stmt = stmt.Where("intention_type = ?", *filter.IntentionType)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		stmt = stmt.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", like, like)
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.MassIntention
	err := option.Apply(stmt,
		option.ApplyPagination(page),
	).Order("priority DESC, created_at DESC, id DESC").Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.MassIntention{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) FixedDatesBetween(ctx context.Context, db *gorm.DB, assignedTo snowflake.ID, start, end time.Time) ([]domain.MassIntention, error) {
	var items []domain.MassIntention
	err := db.WithContext(ctx).
		Where("assigned_to = ? AND is_fixed_date = ? AND is_active = ?", assignedTo, true, true).
		Where("fixed_date >= ? AND fixed_date <= ?", start, end).
		Order("fixed_date ASC, priority DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) HasCelebration(ctx context.Context, db *gorm.DB, intentionID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Raw(`SELECT COUNT(1) FROM mass_celebrations WHERE intention_id = ?`, intentionID).
		Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
