package domain

import "errors"

var (
	ErrNotFound         = errors.New("celebration_not_found")
	ErrForbidden        = errors.New("celebration_forbidden")
	ErrInvalidDate      = errors.New("invalid_celebration_date")
	ErrInvalidMassTime  = errors.New("invalid_mass_time")
	ErrInvalidAttendees = errors.New("invalid_attendees_count")
	ErrInvalidTarget    = errors.New("invalid_intention_id")
	ErrInvalidLocation  = errors.New("invalid_location")
	ErrInvalidNotes     = errors.New("invalid_notes")

	ErrInvalidSpecialCircumstances = errors.New("invalid_special_circumstances")
	ErrInvalidDateRange            = errors.New("invalid_date_range")
	ErrInvalidMonth                = errors.New("invalid_month")
	ErrInvalidYear                 = errors.New("invalid_year")
	ErrInvalidType                 = errors.New("invalid_intention_type")
	ErrNoUpdateData                = errors.New("invalid_update_data")
)
