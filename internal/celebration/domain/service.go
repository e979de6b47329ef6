package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	CelebrateBulkIntention(ctx context.Context, bulkID snowflake.ID, date *time.Time) (*BulkResult, error)
	Get(ctx context.Context, id snowflake.ID) (*View, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Today(ctx context.Context) ([]View, error)
	Search(ctx context.Context, req SearchRequest) (*ListResponse, error)
	MonthlySummary(ctx context.Context, year, month int) (*MonthlySummary, error)
	Between(ctx context.Context, start, end time.Time) ([]View, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*View, error)
	Delete(ctx context.Context, id snowflake.ID) error
	ListByBulkIntention(ctx context.Context, bulkID snowflake.ID, page pagination.Pagination) (*ListResponse, error)
}

// Details are the optional descriptive fields of a celebration.
type Details struct {
	MassTime             *string `json:"mass_time"`
	Location             *string `json:"location" validate:"omitempty,max=255"`
	Notes                *string `json:"notes" validate:"omitempty,max=5000"`
	AttendeesCount       *int    `json:"attendees_count"`
	SpecialCircumstances *string `json:"special_circumstances" validate:"omitempty,max=5000"`
}

type CreateRequest struct {
	CelebrationDate *time.Time    `json:"celebration_date"`
	IntentionID     *snowflake.ID `json:"intention_id"`
	BulkIntentionID *snowflake.ID `json:"bulk_intention_id"`
	Details
}

type UpdateRequest struct {
	CelebrationDate *time.Time `json:"celebration_date"`
	Details
}

type CreateResult struct {
	Celebration View                        `json:"celebration"`
	Kind        Kind                        `json:"kind"`
	Message     string                      `json:"message"`
	Bulk        *BulkResult                 `json:"bulk,omitempty"`
	Obligation  *obligationdomain.AddResult `json:"obligation,omitempty"`
}

type BulkResult struct {
	BulkIntentionID snowflake.ID `json:"bulk_intention_id"`
	CelebrationID   snowflake.ID `json:"celebration_id"`
	NewSerialNumber int          `json:"new_serial_number"`
	RemainingCount  int          `json:"remaining_count"`
	CelebrationDate time.Time    `json:"celebration_date"`
	IsCompleted     bool         `json:"is_completed"`
}

type ListRequest struct {
	StartDate     *time.Time
	EndDate       *time.Time
	IntentionType *string
	Page          pagination.Pagination
}

type SearchRequest struct {
	Query         string
	IntentionType *string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          pagination.Pagination
}

type ListResponse struct {
	Items    []View              `json:"items"`
	PageInfo pagination.PageInfo `json:"pagination"`
}
