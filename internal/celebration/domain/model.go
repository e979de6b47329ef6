package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindBulk      Kind = "bulk"
	KindPersonal  Kind = "personal"
	KindIntention Kind = "intention"
	KindGeneral   Kind = "general"
)

// MassCelebration is one ledger entry. Bulk entries carry the serial number
// the batch counter held before the entry was recorded.
type MassCelebration struct {
	ID                   snowflake.ID  `gorm:"primaryKey" json:"id"`
	UUID                 string        `gorm:"column:uuid;type:text;not null;uniqueIndex" json:"uuid"`
	PriestID             snowflake.ID  `gorm:"column:priest_id;not null;index" json:"priest_id"`
	CelebrationDate      time.Time     `gorm:"column:celebration_date;type:date;not null;index" json:"celebration_date"`
	IntentionID          *snowflake.ID `gorm:"column:intention_id;index" json:"intention_id"`
	BulkIntentionID      *snowflake.ID `gorm:"column:bulk_intention_id;uniqueIndex:ux_bulk_serial" json:"bulk_intention_id"`
	SerialNumber         *int          `gorm:"column:serial_number;uniqueIndex:ux_bulk_serial" json:"serial_number"`
	MassTime             *string       `gorm:"column:mass_time;type:text" json:"mass_time"`
	Location             *string       `gorm:"column:location;type:text" json:"location"`
	Notes                *string       `gorm:"column:notes;type:text" json:"notes"`
	AttendeesCount       *int          `gorm:"column:attendees_count" json:"attendees_count"`
	SpecialCircumstances *string       `gorm:"column:special_circumstances;type:text" json:"special_circumstances"`
	CreatedAt            time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"not null" json:"updated_at"`
}

func (MassCelebration) TableName() string { return "mass_celebrations" }

func (c *MassCelebration) IsBulkMass() bool {
	return c.BulkIntentionID != nil
}

// Row is a celebration joined with its intention.
type Row struct {
	MassCelebration
	IntentionTitle *string `gorm:"column:intention_title" json:"intention_title"`
	IntentionType  *string `gorm:"column:intention_type" json:"intention_type"`
}

// CelebrationType is "bulk", the intention type, or "general".
func (r *Row) CelebrationType() string {
	switch {
	case r.IsBulkMass():
		return string(KindBulk)
	case r.IntentionID != nil && r.IntentionType != nil:
		return *r.IntentionType
	case r.IntentionID != nil:
		return "unknown"
	default:
		return string(KindGeneral)
	}
}

func (r *Row) IsPersonalMass() bool {
	return r.IntentionType != nil && *r.IntentionType == string(KindPersonal)
}

type View struct {
	Row
	CelebrationType string `json:"celebration_type"`
	IsPersonalMass  bool   `json:"is_personal_mass"`
	IsBulkMass      bool   `json:"is_bulk_mass"`
}

func NewView(r Row) View {
	return View{
		Row:             r,
		CelebrationType: r.CelebrationType(),
		IsPersonalMass:  r.IsPersonalMass(),
		IsBulkMass:      r.IsBulkMass(),
	}
}

type MonthlySummary struct {
	Year              int        `json:"year"`
	Month             int        `json:"month"`
	TotalMasses       int        `json:"total_masses"`
	PersonalMasses    int        `json:"personal_masses"`
	BulkMasses        int        `json:"bulk_masses"`
	FixedDateMasses   int        `json:"fixed_date_masses"`
	SpecialMasses     int        `json:"special_masses"`
	AnniversaryMasses int        `json:"anniversary_masses"`
	BirthdayMasses    int        `json:"birthday_masses"`
	DeceasedMasses    int        `json:"deceased_masses"`
	AvgAttendees      *float64   `json:"avg_attendees"`
	FirstMassDate     *time.Time `json:"first_mass_date"`
	LastMassDate      *time.Time `json:"last_mass_date"`
}

// Summarize folds the rows of one month into a MonthlySummary.
func Summarize(year, month int, rows []Row) MonthlySummary {
	out := MonthlySummary{Year: year, Month: month, TotalMasses: len(rows)}
	var attendees, withAttendees int
	for i := range rows {
		r := &rows[i]
		if r.IsBulkMass() {
			out.BulkMasses++
		}
		if r.IntentionType != nil {
			switch *r.IntentionType {
			case "personal":
				out.PersonalMasses++
			case "fixed_date":
				out.FixedDateMasses++
			case "special":
				out.SpecialMasses++
			case "anniversary":
				out.AnniversaryMasses++
			case "birthday":
				out.BirthdayMasses++
			case "deceased":
				out.DeceasedMasses++
			}
		}
		if r.AttendeesCount != nil {
			attendees += *r.AttendeesCount
			withAttendees++
		}
		d := r.CelebrationDate
		if out.FirstMassDate == nil || d.Before(*out.FirstMassDate) {
			out.FirstMassDate = &d
		}
		if out.LastMassDate == nil || d.After(*out.LastMassDate) {
			out.LastMassDate = &d
		}
	}
	if withAttendees > 0 {
		avg := float64(attendees) / float64(withAttendees)
		out.AvgAttendees = &avg
	}
	return out
}
