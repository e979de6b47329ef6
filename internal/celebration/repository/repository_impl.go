package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/celebration/domain"
	"github.com/smallbiznis/masstrack/pkg/db/option"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

const rowColumns = "mass_celebrations.*, mass_intentions.title AS intention_title, mass_intentions.intention_type AS intention_type"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.MassCelebration) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) base(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table("mass_celebrations").
		Joins("LEFT JOIN mass_intentions ON mass_intentions.id = mass_celebrations.intention_id")
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Row, error) {
	var row domain.Row
	err := r.base(ctx, db).
		Select(rowColumns).
		Where("mass_celebrations.id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) filtered(ctx context.Context, db *gorm.DB, filter domain.ListFilter) *gorm.DB {
	stmt := r.base(ctx, db).Where("mass_celebrations.priest_id = ?", filter.PriestID)
	if filter.StartDate != nil {
		stmt = stmt.Where("mass_celebrations.celebration_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		stmt = stmt.Where("mass_celebrations.celebration_date <= ?", *filter.EndDate)
	}
	if filter.IntentionType != nil {
		stmt = stmt.Where("mass_intentions.intention_type = ?", *filter.IntentionType)
	}
	if filter.BulkIntentionID != nil {
		stmt = stmt.Where("mass_celebrations.bulk_intention_id = ?", *filter.BulkIntentionID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		stmt = stmt.Where(
			"(LOWER(COALESCE(mass_intentions.title, '')) LIKE ? OR LOWER(COALESCE(mass_celebrations.notes, '')) LIKE ? OR LOWER(COALESCE(mass_celebrations.location, '')) LIKE ?)",
			like, like, like,
		)
	}
	return stmt
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Row, int64, error) {
	stmt := r.filtered(ctx, db, filter).Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "mass_celebrations.celebration_date DESC, mass_celebrations.created_at DESC, mass_celebrations.id DESC"
	if filter.BulkIntentionID != nil {
		order = "mass_celebrations.serial_number DESC, mass_celebrations.celebration_date DESC"
	}

	var rows []domain.Row
	err := option.Apply(stmt.Select(rowColumns),
		option.ApplyPagination(page),
	).Order(order).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Row, error) {
	var rows []domain.Row
	err := r.filtered(ctx, db, filter).
		Select(rowColumns).
		Order("mass_celebrations.celebration_date ASC, mass_celebrations.mass_time ASC, mass_celebrations.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.MassCelebration{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.MassCelebration{}).Error
}
