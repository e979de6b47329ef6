package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/pkg/db/option"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) (domain.Repository, domain.RefreshTokenRepository) {
	r := &repo{db: db}
	return r, r
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	value := strings.ToLower(strings.TrimSpace(identifier))
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", value, value).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("LOWER(username) = ? OR LOWER(email) = ?", strings.ToLower(username), strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) EmailTaken(ctx context.Context, email string, except snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), except).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, isActive *bool, query string, page pagination.Pagination) ([]domain.User, int64, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.User{})
	if isActive != nil {
		stmt = stmt.Where("is_active = ?", *isActive)
	}
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(COALESCE(current_assignment, '')) LIKE ?",
			like, like, like, like,
		)
	}
	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []domain.User
	err := option.Apply(stmt.Order("full_name ASC, id ASC"), option.ApplyPagination(page)).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *repo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *repo) FindRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *repo) RotateRefreshToken(ctx context.Context, id snowflake.ID, replacement *domain.RefreshToken, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", id).
			Updates(map[string]any{"revoked_at": now, "replaced_by": replacement.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrTokenRevoked
		}
		return tx.Create(replacement).Error
	})
}

func (r *repo) RevokeRefreshToken(ctx context.Context, id snowflake.ID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now).Error
}

func (r *repo) RevokeUserRefreshTokens(ctx context.Context, userID snowflake.ID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}
