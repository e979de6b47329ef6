package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	msg := err.Error()
	// MySQL (error code 1062)
	if strings.Contains(msg, "Error 1062") {
		return true
	}
	// SQLite (error code 2067)
	return strings.Contains(msg, "UNIQUE constraint failed")
}

// IsLockTimeout reports a FOR UPDATE that gave up waiting on lock_timeout.
func IsLockTimeout(err error) bool {
	return hasPGCode(err, pgLockNotAvailable)
}

func IsSerializationFailure(err error) bool {
	return hasPGCode(err, pgSerializationFailure)
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
