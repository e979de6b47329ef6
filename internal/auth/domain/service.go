package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error)
	Logout(ctx context.Context, rawRefreshToken string) error
	// Authenticate resolves an access token to an active user.
	Authenticate(ctx context.Context, rawAccessToken string) (*Principal, error)
	ChangePassword(ctx context.Context, current, next string) error
	CurrentUser(ctx context.Context) (*User, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, req ProfileUpdate) (*User, error)
	ListUsers(ctx context.Context, req ListRequest) (*ListResponse, error)
	SearchUsers(ctx context.Context, req SearchRequest) (*ListResponse, error)
	DeactivateUser(ctx context.Context, id snowflake.ID) (*User, error)
	// EnsureAdmin creates the bootstrap admin if no user holds that username or email.
	EnsureAdmin(ctx context.Context, req RegisterRequest) (*User, bool, error)
}

type RegisterRequest struct {
	Username          string         `json:"username" validate:"required,min=3,max=80"`
	Email             string         `json:"email" validate:"required,email,max=120"`
	Password          string         `json:"password" validate:"required,min=8,max=128"`
	FullName          string         `json:"full_name" validate:"required,max=200"`
	OrdinationDate    *time.Time     `json:"ordination_date"`
	CurrentAssignment *string        `json:"current_assignment" validate:"omitempty,max=200"`
	Diocese           *string        `json:"diocese" validate:"omitempty,max=100"`
	Province          *string        `json:"province" validate:"omitempty,max=100"`
	Phone             *string        `json:"phone" validate:"omitempty,max=20"`
	Address           *string        `json:"address" validate:"omitempty,max=1000"`
	Preferences       map[string]any `json:"preferences" validate:"omitempty,scalarmap"`
}

type LoginRequest struct {
	Identifier string
	Password   string
	UserAgent  string
	IPAddress  string
}

type RefreshRequest struct {
	RefreshToken string
	UserAgent    string
	IPAddress    string
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type LoginResult struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// ProfileUpdate lists the fields a user may change on their own record.
type ProfileUpdate struct {
	FullName          *string        `json:"full_name" validate:"omitempty,min=1,max=200"`
	Email             *string        `json:"email" validate:"omitempty,email,max=120"`
	OrdinationDate    *time.Time     `json:"ordination_date"`
	CurrentAssignment *string        `json:"current_assignment" validate:"omitempty,max=200"`
	Diocese           *string        `json:"diocese" validate:"omitempty,max=100"`
	Province          *string        `json:"province" validate:"omitempty,max=100"`
	Phone             *string        `json:"phone" validate:"omitempty,max=20"`
	Address           *string        `json:"address" validate:"omitempty,max=1000"`
	ProfileImageURL   *string        `json:"profile_image_url" validate:"omitempty,url,max=255"`
	Preferences       map[string]any `json:"preferences" validate:"omitempty,scalarmap"`
}

type ListRequest struct {
	IsActive *bool
	Page     pagination.Pagination
}

type SearchRequest struct {
	Query string
	Page  pagination.Pagination
}

type ListResponse struct {
	Items    []User              `json:"items"`
	PageInfo pagination.PageInfo `json:"pagination"`
}
