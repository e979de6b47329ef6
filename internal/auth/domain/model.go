// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Role string

const (
	RolePriest Role = "priest"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RolePriest || r == RoleAdmin
}

// User is a priest account. Admins are users with RoleAdmin.
type User struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	UUID              string            `gorm:"column:uuid;type:text;not null;uniqueIndex" json:"uuid"`
	Username          string            `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email             string            `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash      string            `gorm:"column:password_hash;type:text;not null" json:"-"`
	FullName          string            `gorm:"column:full_name;type:text;not null" json:"full_name"`
	OrdinationDate    *time.Time        `gorm:"column:ordination_date;type:date" json:"ordination_date"`
	CurrentAssignment *string           `gorm:"column:current_assignment;type:text" json:"current_assignment"`
	Diocese           *string           `gorm:"type:text" json:"diocese"`
	Province          *string           `gorm:"type:text" json:"province"`
	Phone             *string           `gorm:"type:text" json:"phone"`
	Address           *string           `gorm:"type:text" json:"address"`
	ProfileImageURL   *string           `gorm:"column:profile_image_url;type:text" json:"profile_image_url"`
	Preferences       datatypes.JSONMap `gorm:"column:preferences" json:"preferences"`
	Role              Role              `gorm:"type:text;not null;default:'priest'" json:"role"`
	IsActive          bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastLogin         *time.Time        `gorm:"column:last_login" json:"last_login"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RefreshToken is the persisted half of an issued refresh token. Only the
// hash of the token is stored.
type RefreshToken struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	UserID     snowflake.ID  `gorm:"column:user_id;not null;index"`
	TokenHash  string        `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	UserAgent  string        `gorm:"column:user_agent;type:text"`
	IPAddress  string        `gorm:"column:ip_address;type:text"`
	ExpiresAt  time.Time     `gorm:"column:expires_at;not null;index"`
	RevokedAt  *time.Time    `gorm:"column:revoked_at"`
	ReplacedBy *snowflake.ID `gorm:"column:replaced_by"`
	CreatedAt  time.Time     `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (RefreshToken) TableName() string { return "refresh_tokens" }

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	UserID   snowflake.ID
	Username string
	Role     Role
}
