package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type IntentionType string

const (
	TypePersonal    IntentionType = "personal"
	TypeBulk        IntentionType = "bulk"
	TypeFixedDate   IntentionType = "fixed_date"
	TypeSpecial     IntentionType = "special"
	TypeAnniversary IntentionType = "anniversary"
	TypeBirthday    IntentionType = "birthday"
	TypeDeceased    IntentionType = "deceased"
)

var intentionTypes = map[IntentionType]struct{}{
	TypePersonal: {}, TypeBulk: {}, TypeFixedDate: {}, TypeSpecial: {},
	TypeAnniversary: {}, TypeBirthday: {}, TypeDeceased: {},
}

func (t IntentionType) Valid() bool {
	_, ok := intentionTypes[t]
	return ok
}

type Source string

const (
	SourcePersonal     Source = "personal"
	SourceProvince     Source = "province"
	SourceGeneralate   Source = "generalate"
	SourceParish       Source = "parish"
	SourceIndividual   Source = "individual"
	SourceFamily       Source = "family"
	SourceOrganization Source = "organization"
)

var sources = map[Source]struct{}{
	SourcePersonal: {}, SourceProvince: {}, SourceGeneralate: {}, SourceParish: {},
	SourceIndividual: {}, SourceFamily: {}, SourceOrganization: {},
}

func (s Source) Valid() bool {
	_, ok := sources[s]
	return ok
}

// MassIntention is a request for masses to be offered.
type MassIntention struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	UUID          string            `gorm:"column:uuid;type:text;not null;uniqueIndex" json:"uuid"`
	IntentionType IntentionType     `gorm:"column:intention_type;type:text;not null;index" json:"intention_type"`
	Title         string            `gorm:"type:text;not null" json:"title"`
	Description   *string           `gorm:"type:text" json:"description,omitempty"`
	Source        Source            `gorm:"type:text;not null" json:"source"`
	SourceContact datatypes.JSONMap `gorm:"column:source_contact" json:"source_contact,omitempty"`
	CreatedBy     snowflake.ID      `gorm:"column:created_by;not null;index" json:"created_by"`
	AssignedTo    snowflake.ID      `gorm:"column:assigned_to;not null;index" json:"assigned_to"`
	Priority      int               `gorm:"not null;default:1" json:"priority"`
	IsFixedDate   bool              `gorm:"column:is_fixed_date;not null;default:false" json:"is_fixed_date"`
	FixedDate     *time.Time        `gorm:"column:fixed_date;type:date;index" json:"fixed_date,omitempty"`
	DeadlineDate  *time.Time        `gorm:"column:deadline_date;type:date" json:"deadline_date,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	IsActive      bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (MassIntention) TableName() string { return "mass_intentions" }

// IsBulk reports whether masses for this intention are tracked through bulk batches.
func (m *MassIntention) IsBulk() bool {
	return m.IntentionType == TypeBulk
}

// CanBeCelebratedOn checks the date rules for a direct celebration. alreadyCelebrated
// reports whether a celebration for this intention exists; only bulk intentions may
// be celebrated more than once.
func (m *MassIntention) CanBeCelebratedOn(date time.Time, alreadyCelebrated bool) error {
	if !m.IsActive {
		return ErrInactive
	}
	if m.IsFixedDate && m.FixedDate != nil && !sameDay(*m.FixedDate, date) {
		return ErrFixedDateMismatch
	}
	if m.DeadlineDate != nil && date.After(*m.DeadlineDate) && !sameDay(*m.DeadlineDate, date) {
		return ErrPastDeadline
	}
	if !m.IsBulk() && alreadyCelebrated {
		return ErrAlreadyCelebrated
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
