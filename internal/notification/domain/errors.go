package domain

import "errors"

var (
	ErrNotFound        = errors.New("notification_not_found")
	ErrForbidden       = errors.New("notification_forbidden")
	ErrInvalidType     = errors.New("invalid_notification_type")
	ErrInvalidPriority = errors.New("invalid_priority")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidMessage  = errors.New("invalid_message")
	ErrInvalidEntity   = errors.New("invalid_related_entity_type")
	ErrInvalidDays     = errors.New("invalid_days")
)
