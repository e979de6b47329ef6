package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

type StatusLevel string

const (
	StatusCompleted StatusLevel = "completed"
	StatusPaused    StatusLevel = "paused"
	StatusCritical  StatusLevel = "critical"
	StatusWarning   StatusLevel = "warning"
	StatusNormal    StatusLevel = "normal"
)

// BulkIntention is a batch of masses counted down from TotalCount to zero.
// CurrentCount + CompletedCount always equals TotalCount.
type BulkIntention struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	UUID             string       `gorm:"column:uuid;type:text;not null;uniqueIndex" json:"uuid"`
	IntentionID      snowflake.ID `gorm:"column:intention_id;not null;index" json:"intention_id"`
	PriestID         snowflake.ID `gorm:"column:priest_id;not null;index" json:"priest_id"`
	TotalCount       int          `gorm:"column:total_count;not null" json:"total_count"`
	CurrentCount     int          `gorm:"column:current_count;not null" json:"current_count"`
	CompletedCount   int          `gorm:"column:completed_count;not null;default:0" json:"completed_count"`
	IsPaused         bool         `gorm:"column:is_paused;not null;default:false" json:"is_paused"`
	PauseReason      *string      `gorm:"column:pause_reason;type:text" json:"pause_reason"`
	PausedAt         *time.Time   `gorm:"column:paused_at" json:"paused_at"`
	PausedCount      *int         `gorm:"column:paused_count" json:"paused_count"`
	ResumeCount      *int         `gorm:"column:resume_count" json:"resume_count"`
	StartDate        time.Time    `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EstimatedEndDate *time.Time   `gorm:"column:estimated_end_date;type:date" json:"estimated_end_date"`
	ActualEndDate    *time.Time   `gorm:"column:actual_end_date;type:date" json:"actual_end_date"`
	Notes            *string      `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

func (BulkIntention) TableName() string { return "bulk_intentions" }

func (b *BulkIntention) IsCompleted() bool {
	return b.CurrentCount <= 0
}

// CanCelebrate returns the state error that blocks recording one more mass, if any.
func (b *BulkIntention) CanCelebrate() error {
	if b.IsCompleted() {
		return ErrAlreadyCompleted
	}
	if b.IsPaused {
		return ErrAlreadyPaused
	}
	return nil
}

func (b *BulkIntention) CanPause() error {
	if b.IsPaused {
		return ErrAlreadyPaused
	}
	if b.IsCompleted() {
		return ErrAlreadyCompleted
	}
	return nil
}

func (b *BulkIntention) CanResume() error {
	if !b.IsPaused {
		return ErrNotPaused
	}
	if b.IsCompleted() {
		return ErrAlreadyCompleted
	}
	return nil
}

func (b *BulkIntention) StatusLevel(warning, critical int) StatusLevel {
	switch {
	case b.IsCompleted():
		return StatusCompleted
	case b.IsPaused:
		return StatusPaused
	case b.CurrentCount <= critical:
		return StatusCritical
	case b.CurrentCount <= warning:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// ProgressPercentage is CompletedCount/TotalCount as a percentage with two decimals.
func (b *BulkIntention) ProgressPercentage() float64 {
	if b.TotalCount == 0 {
		return 0
	}
	pct := float64(b.CompletedCount) / float64(b.TotalCount) * 100
	return math.Round(pct*100) / 100
}

// EstimatedCompletionDate projects the finish date from today at massesPerDay.
// Completed batches report their actual end date; paused batches have no estimate.
func (b *BulkIntention) EstimatedCompletionDate(today time.Time, massesPerDay float64) *time.Time {
	if b.IsCompleted() {
		return b.ActualEndDate
	}
	if b.IsPaused {
		return nil
	}
	if massesPerDay <= 0 {
		massesPerDay = 1
	}
	days := int(math.Ceil(float64(b.CurrentCount) / massesPerDay))
	estimate := today.AddDate(0, 0, days)
	return &estimate
}

// InitialEstimatedEnd assumes one mass per day starting on start.
func InitialEstimatedEnd(start time.Time, total int) time.Time {
	return start.AddDate(0, 0, total-1)
}

type PauseAction string

const (
	ActionPause  PauseAction = "pause"
	ActionResume PauseAction = "resume"
)

// PauseEvent is an immutable pause or resume record.
type PauseEvent struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	BulkIntentionID snowflake.ID `gorm:"column:bulk_intention_id;not null;index" json:"bulk_intention_id"`
	PriestID        snowflake.ID `gorm:"column:priest_id;not null" json:"priest_id"`
	Action          PauseAction  `gorm:"column:action;type:text;not null" json:"action"`
	Reason          *string      `gorm:"column:reason;type:text" json:"reason"`
	CountAtEvent    int          `gorm:"column:count_at_event;not null" json:"count_at_event"`
	EventDate       time.Time    `gorm:"column:event_date;type:date;not null" json:"event_date"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}

func (PauseEvent) TableName() string { return "pause_events" }
