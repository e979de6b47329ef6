package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/obligation/domain"
	"github.com/smallbiznis/masstrack/pkg/db/option"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, o *domain.MonthlyObligation) error {
	return db.WithContext(ctx).Create(o).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MonthlyObligation, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, priestID snowflake.ID, year, month int) (*domain.MonthlyObligation, error) {
	return r.first(db.WithContext(ctx).Where("priest_id = ? AND year = ? AND month = ?", priestID, year, month))
}

func (r *repo) first(stmt *gorm.DB) (*domain.MonthlyObligation, error) {
	var o domain.MonthlyObligation
	if err := stmt.Limit(1).Find(&o).Error; err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, priestID snowflake.ID, year *int, page pagination.Pagination) ([]domain.MonthlyObligation, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.MonthlyObligation{}).
		Where("priest_id = ?", priestID)
	if year != nil {
		stmt = stmt.Where("year = ?", *year)
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.MonthlyObligation
	err := option.Apply(stmt,
		option.ApplyPagination(page),
	).Order("year DESC, month DESC").Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) ListIncompleteSince(ctx context.Context, db *gorm.DB, priestID snowflake.ID, fromMonthIndex int) ([]domain.MonthlyObligation, error) {
	var items []domain.MonthlyObligation
	err := db.WithContext(ctx).
		Where("priest_id = ? AND completed_count < target_count", priestID).
		Where("(year * 12 + month) >= ?", fromMonthIndex).
		Order("year DESC, month DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.MonthlyObligation{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	res := db.WithContext(ctx).Exec(`
		UPDATE monthly_obligations
		SET completed_count = completed_count + 1, updated_at = ?
		WHERE id = ? AND completed_count < target_count`,
		now, id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrQuotaReached
	}
	return nil
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE monthly_obligations
		SET completed_count = CASE WHEN completed_count > 0 THEN completed_count - 1 ELSE 0 END,
		    updated_at = ?
		WHERE id = ?`,
		now, id,
	).Error
}

func (r *repo) LinkExists(ctx context.Context, db *gorm.DB, obligationID, celebrationID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.PersonalMassLink{}).
		Where("monthly_obligation_id = ? AND mass_celebration_id = ?", obligationID, celebrationID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindLinkByCelebration(ctx context.Context, db *gorm.DB, celebrationID snowflake.ID) (*domain.PersonalMassLink, error) {
	var link domain.PersonalMassLink
	err := db.WithContext(ctx).
		Where("mass_celebration_id = ?", celebrationID).
		Limit(1).
		Find(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) InsertLink(ctx context.Context, db *gorm.DB, link *domain.PersonalMassLink) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) DeleteLink(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PersonalMassLink{})
	return res.RowsAffected, res.Error
}

func (r *repo) CountLinks(ctx context.Context, db *gorm.DB, obligationID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.PersonalMassLink{}).
		Where("monthly_obligation_id = ?", obligationID).
		Count(&count).Error
	return count, err
}
