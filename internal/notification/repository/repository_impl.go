package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/notification/domain"
	"github.com/smallbiznis/masstrack/pkg/db/option"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Notification, error) {
	var n domain.Notification
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&n).Error
	if err != nil {
		return nil, err
	}
	if n.ID == 0 {
		return nil, nil
	}
	return &n, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Notification, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("priest_id = ?", filter.PriestID)
	if filter.IsRead != nil {
		stmt = stmt.Where("is_read = ?", *filter.IsRead)
	}
	if filter.Type != nil {
		stmt = stmt.Where("notification_type = ?", *filter.Type)
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Notification
	err := option.Apply(stmt,
		option.ApplyPagination(page),
	).Order("created_at DESC, id DESC").Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) MarkAllRead(ctx context.Context, db *gorm.DB, priestID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("priest_id = ? AND is_read = ?", priestID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Notification{}).Error
}

func (r *repo) CountUnread(ctx context.Context, db *gorm.DB, priestID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("priest_id = ? AND is_read = ?", priestID, false).
		Count(&count).Error
	return count, err
}

func (r *repo) ListUrgentUnread(ctx context.Context, db *gorm.DB, priestID snowflake.ID) ([]domain.Notification, error) {
	var items []domain.Notification
	err := db.WithContext(ctx).
		Where("priest_id = ? AND is_read = ? AND priority = ?", priestID, false, domain.PriorityUrgent).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteReadBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("is_read = ? AND read_at IS NOT NULL AND read_at < ?", true, cutoff).
		Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}

func (r *repo) ListDueScheduled(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.Notification, error) {
	var items []domain.Notification
	err := db.WithContext(ctx).
		Where("scheduled_for IS NOT NULL AND scheduled_for <= ? AND is_read = ?", now, false).
		Order("scheduled_for ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ExistsSince(ctx context.Context, db *gorm.DB, priestID snowflake.ID, entityType string, entityID snowflake.ID, since time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("priest_id = ? AND related_entity_type = ? AND related_entity_id = ?", priestID, entityType, entityID).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
