package domain

import "errors"

var (
	ErrNotFound             = errors.New("intention_not_found")
	ErrForbidden            = errors.New("intention_forbidden")
	ErrInvalidType          = errors.New("invalid_intention_type")
	ErrInvalidSource        = errors.New("invalid_source")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidPriority      = errors.New("invalid_priority")
	ErrInvalidFixedDate     = errors.New("invalid_fixed_date")
	ErrInvalidDeadline      = errors.New("invalid_deadline_date")
	ErrInvalidMetadata      = errors.New("invalid_metadata")
	ErrInvalidSourceContact = errors.New("invalid_source_contact")
	ErrInvalidAssignee      = errors.New("invalid_assigned_to")
	ErrInvalidDaysAhead     = errors.New("invalid_days_ahead")
	ErrNoUpdateData         = errors.New("invalid_update_data")

	ErrInactive          = errors.New("intention_inactive")
	ErrFixedDateMismatch = errors.New("intention_fixed_date_mismatch")
	ErrPastDeadline      = errors.New("intention_past_deadline")
	ErrAlreadyCelebrated = errors.New("intention_already_celebrated")
)
