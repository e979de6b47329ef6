package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
)

var (
	ErrInvalidYear  = errors.New("invalid_year")
	ErrInvalidMonth = errors.New("invalid_month")
)

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	Alerts(ctx context.Context) (*AlertsResponse, error)
	Calendar(ctx context.Context, year, month int) (*Calendar, error)
	// Statistics returns a monthly view when month is set, otherwise a yearly
	// breakdown.
	Statistics(ctx context.Context, year int, month *int) (*Statistics, error)
}

type Week struct {
	TotalMasses int       `json:"total_masses"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

type BulkCounts struct {
	Active   int `json:"active"`
	Paused   int `json:"paused"`
	LowCount int `json:"low_count"`
}

type Summary struct {
	TodayCelebrations      []celebrationdomain.View        `json:"today_celebrations"`
	ThisWeek               Week                            `json:"this_week"`
	MonthMasses            int                             `json:"month_masses"`
	BulkCounts             BulkCounts                      `json:"bulk_counts"`
	BulkIntentions         []bulkdomain.Summary            `json:"bulk_intentions"`
	LowCountBulkIntentions []bulkdomain.Summary            `json:"low_count_bulk_intentions"`
	CurrentObligation      *obligationdomain.View          `json:"current_month_obligation"`
	UnreadNotifications    int64                           `json:"unread_notifications"`
	UrgentNotifications    []notificationdomain.View       `json:"urgent_notifications"`
	UpcomingFixedDates     []intentiondomain.MassIntention `json:"upcoming_fixed_dates"`
	RecentCelebrations     []celebrationdomain.View        `json:"recent_celebrations"`
}

type AlertCategory string

const (
	CategoryMonthlyObligation AlertCategory = "monthly_obligation"
	CategoryBulkIntention     AlertCategory = "bulk_intention"
	CategoryFixedDate         AlertCategory = "fixed_date"
	CategoryMonthlyProgress   AlertCategory = "monthly_progress"
	CategoryNotification      AlertCategory = "notification"
)

type Alert struct {
	Type     notificationdomain.Type     `json:"type"`
	Category AlertCategory               `json:"category"`
	Title    string                      `json:"title"`
	Message  string                      `json:"message"`
	Priority notificationdomain.Priority `json:"priority"`
	EntityID snowflake.ID                `json:"entity_id"`
}

type AlertsResponse struct {
	Alerts      []Alert `json:"alerts"`
	TotalCount  int     `json:"total_count"`
	UrgentCount int     `json:"urgent_count"`
	HighCount   int     `json:"high_count"`
}

type EntryKind string

const (
	EntryCelebration EntryKind = "celebration"
	EntryFixedDate   EntryKind = "fixed_date_intention"
)

type CalendarEntry struct {
	Kind            EntryKind     `json:"type"`
	CelebrationID   *snowflake.ID `json:"id,omitempty"`
	MassTime        *string       `json:"mass_time,omitempty"`
	Location        *string       `json:"location,omitempty"`
	CelebrationType string        `json:"celebration_type,omitempty"`
	IsBulkMass      bool          `json:"is_bulk_mass"`
	IsPersonalMass  bool          `json:"is_personal_mass"`
	SerialNumber    *int          `json:"serial_number,omitempty"`
	IntentionID     *snowflake.ID `json:"intention_id,omitempty"`
	Title           string        `json:"title,omitempty"`
	IntentionType   string        `json:"intention_type,omitempty"`
	IsCelebrated    bool          `json:"is_celebrated"`
}

type Calendar struct {
	Year                int                        `json:"year"`
	Month               int                        `json:"month"`
	MonthName           string                     `json:"month_name"`
	Days                map[string][]CalendarEntry `json:"calendar"`
	TotalDaysWithMasses int                        `json:"total_days_with_masses"`
}

type MonthBreakdown struct {
	Month          int    `json:"month"`
	MonthName      string `json:"month_name"`
	TotalMasses    int    `json:"total_masses"`
	PersonalMasses int    `json:"personal_masses"`
	BulkMasses     int    `json:"bulk_masses"`
}

type StatisticsType string

const (
	StatisticsMonthly StatisticsType = "monthly"
	StatisticsYearly  StatisticsType = "yearly"
)

type Statistics struct {
	Type             StatisticsType                    `json:"type"`
	Year             int                               `json:"year"`
	Month            *int                              `json:"month,omitempty"`
	Celebrations     *celebrationdomain.MonthlySummary `json:"celebrations,omitempty"`
	Obligation       *obligationdomain.View            `json:"obligation,omitempty"`
	Summary          *obligationdomain.YearlySummary   `json:"summary,omitempty"`
	TotalMasses      int                               `json:"total_masses"`
	MonthlyBreakdown []MonthBreakdown                  `json:"monthly_breakdown,omitempty"`
}
