package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*BulkIntention, error)
	Get(ctx context.Context, id snowflake.ID) (*Detail, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*BulkIntention, error)
	Pause(ctx context.Context, id snowflake.ID, reason string) (*BulkIntention, error)
	Resume(ctx context.Context, id snowflake.ID) (*BulkIntention, error)
	PauseHistory(ctx context.Context, id snowflake.ID) ([]PauseEvent, error)
	// LowCount lists unfinished batches at or below threshold. Zero selects the
	// configured warning threshold.
	LowCount(ctx context.Context, threshold int) (*LowCountResult, error)
	// ActiveSummaries lists the caller's unfinished batches with derived status.
	ActiveSummaries(ctx context.Context) ([]Summary, error)
}

type CreateRequest struct {
	IntentionID      snowflake.ID `json:"intention_id"`
	TotalCount       int          `json:"total_count"`
	StartDate        *time.Time   `json:"start_date"`
	EstimatedEndDate *time.Time   `json:"estimated_end_date"`
	Notes            *string      `json:"notes" validate:"omitempty,max=5000"`
}

type UpdateRequest struct {
	Notes            *string    `json:"notes" validate:"omitempty,max=5000"`
	EstimatedEndDate *time.Time `json:"estimated_end_date"`
}

type LowCountResult struct {
	Items     []Summary `json:"items"`
	Threshold int       `json:"threshold"`
}

type StatusFilter string

const (
	FilterAll    StatusFilter = "all"
	FilterActive StatusFilter = "active"
	FilterPaused StatusFilter = "paused"
)

func (f StatusFilter) Valid() bool {
	switch f {
	case FilterAll, FilterActive, FilterPaused:
		return true
	default:
		return false
	}
}

type ListRequest struct {
	Status StatusFilter
	Page   pagination.Pagination
}

// Summary is a bulk intention with its derived status fields.
type Summary struct {
	BulkIntention
	IntentionTitle          string      `json:"intention_title"`
	StatusLevel             StatusLevel `json:"status_level"`
	ProgressPercentage      float64     `json:"progress_percentage"`
	EstimatedCompletionDate *time.Time  `json:"estimated_completion_date"`
}

type Detail struct {
	Summary
	PauseHistory []PauseEvent `json:"pause_history"`
}

type ListResponse struct {
	Items    []Summary           `json:"items"`
	PageInfo pagination.PageInfo `json:"pagination"`
}
