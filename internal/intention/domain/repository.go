package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	AssignedTo    snowflake.ID
	IntentionType *IntentionType
	IsActive      *bool
	Query         string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, intention *MassIntention) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MassIntention, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]MassIntention, int64, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	FixedDatesBetween(ctx context.Context, db *gorm.DB, assignedTo snowflake.ID, start, end time.Time) ([]MassIntention, error)
	HasCelebration(ctx context.Context, db *gorm.DB, intentionID snowflake.ID) (bool, error)
}
