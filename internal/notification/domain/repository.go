package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	PriestID snowflake.ID
	IsRead   *bool
	Type     *Type
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Notification, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Notification, int64, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	MarkAllRead(ctx context.Context, db *gorm.DB, priestID snowflake.ID, now time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountUnread(ctx context.Context, db *gorm.DB, priestID snowflake.ID) (int64, error)
	ListUrgentUnread(ctx context.Context, db *gorm.DB, priestID snowflake.ID) ([]Notification, error)
	DeleteReadBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
	ListDueScheduled(ctx context.Context, db *gorm.DB, now time.Time) ([]Notification, error)
	ExistsSince(ctx context.Context, db *gorm.DB, priestID snowflake.ID, entityType string, entityID snowflake.ID, since time.Time) (bool, error)
}
