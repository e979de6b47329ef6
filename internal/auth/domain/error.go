package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUserExists         = errors.New("user_already_exists")
	ErrUserInactive       = errors.New("user_inactive")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrTooManyAttempts    = errors.New("too_many_login_attempts")
	ErrForbidden          = errors.New("user_forbidden")

	ErrInvalidUsername        = errors.New("invalid_username")
	ErrInvalidEmail           = errors.New("invalid_email")
	ErrInvalidPassword        = errors.New("invalid_password")
	ErrInvalidCurrentPassword = errors.New("invalid_current_password")
	ErrInvalidFullName        = errors.New("invalid_full_name")
	ErrInvalidProfile         = errors.New("invalid_profile")
	ErrInvalidPreferences     = errors.New("invalid_preferences")
	ErrInvalidQuery           = errors.New("invalid_query")
	ErrNoUpdateData           = errors.New("invalid_update_data")
)
