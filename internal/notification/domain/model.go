package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypeReminder Type = "reminder"
	TypeWarning  Type = "warning"
	TypeInfo     Type = "info"
	TypeSuccess  Type = "success"
	TypeError    Type = "error"
)

func (t Type) Valid() bool {
	switch t {
	case TypeReminder, TypeWarning, TypeInfo, TypeSuccess, TypeError:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Rank orders priorities from most to least pressing.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	default:
		return 3
	}
}

// Related entity types a notification can point at.
const (
	EntityBulkIntention     = "bulk_intentions"
	EntityMassIntention     = "mass_intentions"
	EntityMassCelebration   = "mass_celebrations"
	EntityMonthlyObligation = "monthly_obligations"
)

type Notification struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	UUID              string        `gorm:"column:uuid;type:text;not null;uniqueIndex" json:"uuid"`
	PriestID          snowflake.ID  `gorm:"column:priest_id;not null;index" json:"priest_id"`
	NotificationType  Type          `gorm:"column:notification_type;type:text;not null" json:"notification_type"`
	Title             string        `gorm:"column:title;type:text;not null" json:"title"`
	Message           string        `gorm:"column:message;type:text;not null" json:"message"`
	IsRead            bool          `gorm:"column:is_read;not null;default:false" json:"is_read"`
	Priority          Priority      `gorm:"column:priority;type:text;not null" json:"priority"`
	ScheduledFor      *time.Time    `gorm:"column:scheduled_for" json:"scheduled_for"`
	ReadAt            *time.Time    `gorm:"column:read_at" json:"read_at"`
	RelatedEntityType *string       `gorm:"column:related_entity_type;type:text" json:"related_entity_type"`
	RelatedEntityID   *snowflake.ID `gorm:"column:related_entity_id" json:"related_entity_id"`
	CreatedAt         time.Time     `gorm:"not null" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) IsUrgent() bool {
	return n.Priority == PriorityUrgent
}

// IsOverdue reports an unread notification whose schedule has passed.
func (n *Notification) IsOverdue(now time.Time) bool {
	if n.ScheduledFor == nil || n.IsRead {
		return false
	}
	return n.ScheduledFor.Before(now)
}

func (n *Notification) AgeInHours(now time.Time) float64 {
	if n.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(n.CreatedAt).Hours()
}

// View is the API shape of a notification with its derived flags.
type View struct {
	Notification
	IsUrgent   bool    `json:"is_urgent"`
	IsOverdue  bool    `json:"is_overdue"`
	AgeInHours float64 `json:"age_in_hours"`
}

func NewView(n Notification, now time.Time) View {
	return View{
		Notification: n,
		IsUrgent:     n.IsUrgent(),
		IsOverdue:    n.IsOverdue(now),
		AgeInHours:   n.AgeInHours(now),
	}
}
