package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*MassIntention, error)
	Get(ctx context.Context, id snowflake.ID) (*MassIntention, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Search(ctx context.Context, req SearchRequest) (*ListResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*MassIntention, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*MassIntention, error)
	UpcomingFixedDates(ctx context.Context, daysAhead int) ([]MassIntention, error)
	FixedDatesBetween(ctx context.Context, start, end time.Time) ([]MassIntention, error)
	// CheckCelebration loads the intention assigned to the caller and verifies it
	// may be celebrated on date.
	CheckCelebration(ctx context.Context, id snowflake.ID, date time.Time) (*MassIntention, error)
}

type CreateRequest struct {
	IntentionType IntentionType  `json:"intention_type" validate:"required"`
	Title         string         `json:"title" validate:"required,max=255"`
	Description   *string        `json:"description" validate:"omitempty,max=5000"`
	Source        Source         `json:"source" validate:"required"`
	SourceContact map[string]any `json:"source_contact" validate:"omitempty,scalarmap"`
	AssignedTo    *snowflake.ID  `json:"assigned_to"`
	Priority      *int           `json:"priority" validate:"omitempty,min=1,max=10"`
	IsFixedDate   bool           `json:"is_fixed_date"`
	FixedDate     *time.Time     `json:"fixed_date"`
	DeadlineDate  *time.Time     `json:"deadline_date"`
	Metadata      map[string]any `json:"metadata" validate:"omitempty,scalarmap"`
}

type UpdateRequest struct {
	Title         *string        `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string        `json:"description" validate:"omitempty,max=5000"`
	SourceContact map[string]any `json:"source_contact" validate:"omitempty,scalarmap"`
	Priority      *int           `json:"priority" validate:"omitempty,min=1,max=10"`
	FixedDate     *time.Time     `json:"fixed_date"`
	DeadlineDate  *time.Time     `json:"deadline_date"`
	Metadata      map[string]any `json:"metadata" validate:"omitempty,scalarmap"`
}

type ListRequest struct {
	IntentionType *IntentionType
	IsActive      *bool
	Page          pagination.Pagination
}

type SearchRequest struct {
	Query         string
	IntentionType *IntentionType
	Page          pagination.Pagination
}

type ListResponse struct {
	Items    []MassIntention     `json:"items"`
	PageInfo pagination.PageInfo `json:"pagination"`
}
