package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, o *MonthlyObligation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MonthlyObligation, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, priestID snowflake.ID, year, month int) (*MonthlyObligation, error)
	List(ctx context.Context, db *gorm.DB, priestID snowflake.ID, year *int, page pagination.Pagination) ([]MonthlyObligation, int64, error)
	ListIncompleteSince(ctx context.Context, db *gorm.DB, priestID snowflake.ID, fromMonthIndex int) ([]MonthlyObligation, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	// Increment adds one completed mass unless the quota is already met,
	// in which case it returns ErrQuotaReached.
	Increment(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	// Decrement removes one completed mass without going below zero.
	Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	LinkExists(ctx context.Context, db *gorm.DB, obligationID, celebrationID snowflake.ID) (bool, error)
	FindLinkByCelebration(ctx context.Context, db *gorm.DB, celebrationID snowflake.ID) (*PersonalMassLink, error)
	InsertLink(ctx context.Context, db *gorm.DB, link *PersonalMassLink) error
	DeleteLink(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	CountLinks(ctx context.Context, db *gorm.DB, obligationID snowflake.ID) (int64, error)
}
