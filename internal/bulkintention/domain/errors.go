package domain

import "errors"

var (
	ErrNotFound           = errors.New("bulk_intention_not_found")
	ErrForbidden          = errors.New("bulk_intention_forbidden")
	ErrAlreadyPaused      = errors.New("bulk_intention_already_paused")
	ErrAlreadyCompleted   = errors.New("bulk_intention_already_completed")
	ErrNotPaused          = errors.New("bulk_intention_not_paused")
	ErrWrongIntentionType = errors.New("invalid_intention_type")
	ErrInvalidTotalCount  = errors.New("invalid_total_count")
	ErrInvalidIntention   = errors.New("invalid_intention_id")
	ErrInvalidReason      = errors.New("invalid_reason")
	ErrInvalidNotes       = errors.New("invalid_notes")
	ErrInvalidThreshold   = errors.New("invalid_threshold")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidEndDate     = errors.New("invalid_estimated_end_date")
	ErrNoUpdateData       = errors.New("invalid_update_data")
	// ErrCountChanged means the conditional decrement matched no row.
	ErrCountChanged = errors.New("bulk_intention_count_changed")
)
