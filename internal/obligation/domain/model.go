package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusOnTrack   Status = "on_track"
	StatusUrgent    Status = "urgent"
	StatusBehind    Status = "behind"
	StatusFuture    Status = "future"
)

// MonthlyObligation counts personal masses toward a priest's monthly quota.
type MonthlyObligation struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UUID           string       `gorm:"column:uuid;type:text;not null;uniqueIndex" json:"uuid"`
	PriestID       snowflake.ID `gorm:"column:priest_id;not null;uniqueIndex:ux_monthly_obligation_period" json:"priest_id"`
	Year           int          `gorm:"column:year;not null;uniqueIndex:ux_monthly_obligation_period" json:"year"`
	Month          int          `gorm:"column:month;not null;uniqueIndex:ux_monthly_obligation_period" json:"month"`
	CompletedCount int          `gorm:"column:completed_count;not null;default:0" json:"completed_count"`
	TargetCount    int          `gorm:"column:target_count;not null;default:3" json:"target_count"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (MonthlyObligation) TableName() string { return "monthly_obligations" }

// PersonalMassLink ties one celebration to the obligation it counted toward.
type PersonalMassLink struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	MonthlyObligationID snowflake.ID `gorm:"column:monthly_obligation_id;not null;uniqueIndex:ux_personal_mass_link" json:"monthly_obligation_id"`
	MassCelebrationID   snowflake.ID `gorm:"column:mass_celebration_id;not null;uniqueIndex:ux_personal_mass_link;index" json:"mass_celebration_id"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
}

func (PersonalMassLink) TableName() string { return "personal_mass_celebrations" }

// StatusRules are the tunable inputs of Status.
type StatusRules struct {
	OnTrackRatio     float64
	UrgentDayOfMonth int
}

func (o *MonthlyObligation) IsCompleted() bool {
	return o.CompletedCount >= o.TargetCount
}

func (o *MonthlyObligation) IsCurrentMonth(today time.Time) bool {
	return o.Year == today.Year() && o.Month == int(today.Month())
}

// IsOverdue is true for an incomplete obligation of a month that has ended.
func (o *MonthlyObligation) IsOverdue(today time.Time) bool {
	if o.IsCompleted() {
		return false
	}
	return MonthIndex(o.Year, o.Month) < MonthIndex(today.Year(), int(today.Month()))
}

func (o *MonthlyObligation) Status(today time.Time, rules StatusRules) Status {
	switch {
	case o.IsCompleted():
		return StatusCompleted
	case o.IsOverdue(today):
		return StatusOverdue
	case o.IsCurrentMonth(today):
		if float64(o.CompletedCount) >= float64(o.TargetCount)*rules.OnTrackRatio {
			return StatusOnTrack
		}
		if today.Day() > rules.UrgentDayOfMonth {
			return StatusUrgent
		}
		return StatusBehind
	default:
		return StatusFuture
	}
}

func (o *MonthlyObligation) Remaining() int {
	if o.TargetCount <= o.CompletedCount {
		return 0
	}
	return o.TargetCount - o.CompletedCount
}

// CompletionPercentage is rounded to one decimal; a zero target counts as done.
func (o *MonthlyObligation) CompletionPercentage() float64 {
	if o.TargetCount == 0 {
		return 100
	}
	pct := float64(o.CompletedCount) / float64(o.TargetCount) * 100
	return math.Round(pct*10) / 10
}

func (o *MonthlyObligation) MonthName() string {
	if o.Month < 1 || o.Month > 12 {
		return "Unknown"
	}
	return time.Month(o.Month).String()
}

// MonthIndex orders (year, month) pairs on one axis.
func MonthIndex(year, month int) int {
	return year*12 + month
}

// DaysLeftInMonth counts the days after today until the month ends.
func DaysLeftInMonth(today time.Time) int {
	last := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return last.Day() - today.Day()
}

type View struct {
	MonthlyObligation
	MonthName            string  `json:"month_name"`
	RemainingCount       int     `json:"remaining_count"`
	CompletionPercentage float64 `json:"completion_percentage"`
	IsCompleted          bool    `json:"is_completed"`
	IsCurrentMonth       bool    `json:"is_current_month"`
	IsOverdue            bool    `json:"is_overdue"`
	Status               Status  `json:"status"`
}

func NewView(o MonthlyObligation, today time.Time, rules StatusRules) View {
	return View{
		MonthlyObligation:    o,
		MonthName:            o.MonthName(),
		RemainingCount:       o.Remaining(),
		CompletionPercentage: o.CompletionPercentage(),
		IsCompleted:          o.IsCompleted(),
		IsCurrentMonth:       o.IsCurrentMonth(today),
		IsOverdue:            o.IsOverdue(today),
		Status:               o.Status(today, rules),
	}
}

type YearlySummary struct {
	Year                    int     `json:"year"`
	TotalMonths             int     `json:"total_months"`
	TotalCompleted          int     `json:"total_completed"`
	TotalTarget             int     `json:"total_target"`
	CompletedMonths         int     `json:"completed_months"`
	AvgCompletionPercentage float64 `json:"avg_completion_percentage"`
}

// Summarize folds a year of obligations into a YearlySummary.
func Summarize(year int, items []MonthlyObligation) YearlySummary {
	out := YearlySummary{Year: year, TotalMonths: len(items)}
	if len(items) == 0 {
		return out
	}
	var pctSum float64
	for i := range items {
		o := &items[i]
		out.TotalCompleted += o.CompletedCount
		out.TotalTarget += o.TargetCount
		if o.IsCompleted() {
			out.CompletedMonths++
		}
		if o.TargetCount == 0 {
			pctSum += 100
			continue
		}
		pctSum += float64(o.CompletedCount) / float64(o.TargetCount) * 100
	}
	out.AvgCompletionPercentage = math.Round(pctSum/float64(len(items))*10) / 10
	return out
}
