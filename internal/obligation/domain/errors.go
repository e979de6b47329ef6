package domain

import "errors"

var (
	ErrNotFound         = errors.New("monthly_obligation_not_found")
	ErrQuotaReached     = errors.New("monthly_obligation_quota_reached")
	ErrInvalidYear      = errors.New("invalid_year")
	ErrInvalidMonth     = errors.New("invalid_month")
	ErrInvalidTarget    = errors.New("invalid_target_count")
	ErrInvalidMonthsAgo = errors.New("invalid_months_back")
)
