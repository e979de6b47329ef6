package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

type Service interface {
	Current(ctx context.Context) (*View, error)
	Get(ctx context.Context, year, month int) (*View, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Recalculate(ctx context.Context, year, month int) (*View, error)
	UpdateTarget(ctx context.Context, year, month, target int) (*View, error)
	Incomplete(ctx context.Context, monthsBack int) ([]View, error)
	YearlySummary(ctx context.Context, year int) (*YearlySummary, error)

	Tracker
}

// Tracker links personal celebrations to obligations for an explicit priest.
type Tracker interface {
	GetOrCreate(ctx context.Context, priestID snowflake.ID, year, month int) (*MonthlyObligation, error)
	AddCelebration(ctx context.Context, priestID snowflake.ID, year, month int, celebrationID snowflake.ID) (*AddResult, error)
	RemoveCelebration(ctx context.Context, celebrationID snowflake.ID) (bool, error)
	StatusRules() StatusRules
}

type AddResult struct {
	Obligation *MonthlyObligation `json:"obligation"`
	Added      bool               `json:"added"`
	Message    string             `json:"message"`
}

type ListRequest struct {
	Year *int
	Page pagination.Pagination
}

type ListResponse struct {
	Items    []View              `json:"items"`
	PageInfo pagination.PageInfo `json:"pagination"`
}
