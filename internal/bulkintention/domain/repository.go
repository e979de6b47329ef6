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
	Status   StatusFilter
}

// Row is a bulk intention joined with its intention title.
type Row struct {
	BulkIntention
	IntentionTitle string `gorm:"column:intention_title"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bulk *BulkIntention) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BulkIntention, error)
	// FindForUpdate locks the row for the rest of the transaction where the dialect supports it.
	FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BulkIntention, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Row, int64, error)
	ListLowCount(ctx context.Context, db *gorm.DB, priestID snowflake.ID, threshold int) ([]Row, error)
	ListActive(ctx context.Context, db *gorm.DB, priestID snowflake.ID) ([]Row, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	// DecrementCount applies one celebration. It matches no row, and returns
	// ErrCountChanged, when the batch is paused or already exhausted.
	DecrementCount(ctx context.Context, db *gorm.DB, id snowflake.ID, celebrationDate, now time.Time) error
	Pause(ctx context.Context, db *gorm.DB, bulk *BulkIntention, reason string, now time.Time, event *PauseEvent) error
	Resume(ctx context.Context, db *gorm.DB, bulk *BulkIntention, now time.Time, event *PauseEvent) error
	PauseHistory(ctx context.Context, db *gorm.DB, id snowflake.ID) ([]PauseEvent, error)
	IntentionTitle(ctx context.Context, db *gorm.DB, intentionID snowflake.ID) (string, error)
}
