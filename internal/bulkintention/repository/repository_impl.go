package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	dbpkg "github.com/smallbiznis/masstrack/pkg/db"
	"github.com/smallbiznis/masstrack/pkg/db/option"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const rowColumns = "bulk_intentions.*, COALESCE(mass_intentions.title, '') AS intention_title"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bulk *domain.BulkIntention) error {
	return db.WithContext(ctx).Create(bulk).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BulkIntention, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BulkIntention, error) {
	stmt := db.WithContext(ctx)
	if dbpkg.SupportsRowLocking(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.BulkIntention, error) {
	var bulk domain.BulkIntention
	err := stmt.
		Where("id = ?", id).
		Limit(1).
		Find(&bulk).Error
	if err != nil {
		return nil, err
	}
	if bulk.ID == 0 {
		return nil, nil
	}
	return &bulk, nil
}

func (r *repo) joined(ctx context.Context, db *gorm.DB, priestID snowflake.ID) *gorm.DB {
	return db.WithContext(ctx).
		Table("bulk_intentions").
		Joins("LEFT JOIN mass_intentions ON mass_intentions.id = bulk_intentions.intention_id").
		Where("bulk_intentions.priest_id = ?", priestID)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Row, int64, error) {
	stmt := r.joined(ctx, db, filter.PriestID)
	switch filter.Status {
	case domain.FilterActive:
		stmt = stmt.Where("bulk_intentions.is_paused = ? AND bulk_intentions.current_count > 0", false)
	case domain.FilterPaused:
		stmt = stmt.Where("bulk_intentions.is_paused = ?", true)
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []domain.Row
	err := option.Apply(stmt.Select(rowColumns),
		option.ApplyPagination(page),
	).Order("bulk_intentions.created_at DESC, bulk_intentions.id DESC").Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repo) ListLowCount(ctx context.Context, db *gorm.DB, priestID snowflake.ID, threshold int) ([]domain.Row, error) {
	var rows []domain.Row
	err := r.joined(ctx, db, priestID).
		Select(rowColumns).
		Where("bulk_intentions.is_paused = ?", false).
		Where("bulk_intentions.current_count > 0 AND bulk_intentions.current_count <= ?", threshold).
		Order("bulk_intentions.current_count ASC, bulk_intentions.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, priestID snowflake.ID) ([]domain.Row, error) {
	var rows []domain.Row
	err := r.joined(ctx, db, priestID).
		Select(rowColumns).
		Where("bulk_intentions.current_count > 0").
		Order("bulk_intentions.current_count ASC, bulk_intentions.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.BulkIntention{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) DecrementCount(ctx context.Context, db *gorm.DB, id snowflake.ID, celebrationDate, now time.Time) error {
	res := db.WithContext(ctx).Exec(`
		UPDATE bulk_intentions
		SET current_count = current_count - 1,
		    completed_count = completed_count + 1,
		    actual_end_date = CASE WHEN current_count = 1 THEN ? ELSE actual_end_date END,
		    updated_at = ?
		WHERE id = ? AND current_count > 0 AND is_paused = ?`,
		celebrationDate, now, id, false,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCountChanged
	}
	return nil
}

func (r *repo) Pause(ctx context.Context, db *gorm.DB, bulk *domain.BulkIntention, reason string, now time.Time, event *domain.PauseEvent) error {
	res := db.WithContext(ctx).
		Model(&domain.BulkIntention{}).
		Where("id = ? AND is_paused = ? AND current_count > 0", bulk.ID, false).
		Updates(map[string]any{
			"is_paused":    true,
			"pause_reason": reason,
			"paused_at":    now,
			"paused_count": bulk.CurrentCount,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCountChanged
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) Resume(ctx context.Context, db *gorm.DB, bulk *domain.BulkIntention, now time.Time, event *domain.PauseEvent) error {
	res := db.WithContext(ctx).
		Model(&domain.BulkIntention{}).
		Where("id = ? AND is_paused = ? AND current_count > 0", bulk.ID, true).
		Updates(map[string]any{
			"is_paused":    false,
			"pause_reason": nil,
			"paused_at":    nil,
			"resume_count": bulk.CurrentCount,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCountChanged
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) PauseHistory(ctx context.Context, db *gorm.DB, id snowflake.ID) ([]domain.PauseEvent, error) {
	var events []domain.PauseEvent
	err := db.WithContext(ctx).
		Where("bulk_intention_id = ?", id).
		Order("event_date DESC, created_at DESC, id DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) IntentionTitle(ctx context.Context, db *gorm.DB, intentionID snowflake.ID) (string, error) {
	var title string
	err := db.WithContext(ctx).
		Raw(`SELECT COALESCE(title, '') FROM mass_intentions WHERE id = ?`, intentionID).
		Scan(&title).Error
	if err != nil {
		return "", err
	}
	return title, nil
}
