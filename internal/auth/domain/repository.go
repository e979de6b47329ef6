package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

type Repository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	// FindByIdentifier matches a username or an email, case-insensitively.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	EmailTaken(ctx context.Context, email string, except snowflake.ID) (bool, error)
	List(ctx context.Context, isActive *bool, query string, page pagination.Pagination) ([]User, int64, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	// RotateRefreshToken revokes id if it is still live and records its successor.
	RotateRefreshToken(ctx context.Context, id snowflake.ID, replacement *RefreshToken, now time.Time) error
	RevokeRefreshToken(ctx context.Context, id snowflake.ID, now time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID snowflake.ID, now time.Time) error
}
