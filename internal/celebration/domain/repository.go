package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	PriestID        snowflake.ID
	StartDate       *time.Time
	EndDate         *time.Time
	IntentionType   *string
	BulkIntentionID *snowflake.ID
	Query           string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *MassCelebration) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Row, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Row, int64, error)
	// ListAll returns every match in chronological order.
	ListAll(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Row, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
