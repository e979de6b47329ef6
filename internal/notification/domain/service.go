package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Notification, error)
	Get(ctx context.Context, id snowflake.ID) (*View, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	MarkRead(ctx context.Context, id snowflake.ID) (*Notification, error)
	MarkUnread(ctx context.Context, id snowflake.ID) (*Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id snowflake.ID) error
	UnreadCount(ctx context.Context) (int64, error)
	Urgent(ctx context.Context) ([]View, error)

	Emitter
}

// Emitter raises system notifications on behalf of a priest. It does not read
// the caller from ctx, so background jobs can use it.
type Emitter interface {
	BulkLowCount(ctx context.Context, priestID, bulkID snowflake.ID, remaining int) (*Notification, error)
	BulkCompleted(ctx context.Context, priestID, bulkID snowflake.ID, total int) (*Notification, error)
	MonthlyReminder(ctx context.Context, priestID, obligationID snowflake.ID, completed, target int, month time.Month) (*Notification, error)
	FixedDateReminder(ctx context.Context, priestID, intentionID snowflake.ID, title string, date time.Time) (*Notification, error)
	// HasReminderSince reports whether entityID already produced a notification at or after since.
	HasReminderSince(ctx context.Context, priestID snowflake.ID, entityType string, entityID snowflake.ID, since time.Time) (bool, error)
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
	DueScheduled(ctx context.Context, now time.Time) ([]Notification, error)
}

type CreateRequest struct {
	NotificationType  Type          `json:"notification_type"`
	Title             string        `json:"title" validate:"max=255"`
	Message           string        `json:"message" validate:"max=5000"`
	Priority          Priority      `json:"priority"`
	ScheduledFor      *time.Time    `json:"scheduled_for"`
	RelatedEntityType *string       `json:"related_entity_type"`
	RelatedEntityID   *snowflake.ID `json:"related_entity_id"`
}

type ListRequest struct {
	IsRead *bool
	Type   *Type
	Page   pagination.Pagination
}

type ListResponse struct {
	Items    []View              `json:"items"`
	PageInfo pagination.PageInfo `json:"pagination"`
}
