package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/authorization"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/internal/report"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(last.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

// errorClass maps a family of sentinel errors to one HTTP response shape.
type errorClass struct {
	status  int
	kind    string
	message string
	targets []error
	// messages overrides message per sentinel.
	messages map[error]string
}

var (
	unauthorizedClass = errorClass{
		status: http.StatusUnauthorized, kind: "unauthorized", message: "unauthorized",
		targets: []error{
			ErrUnauthorized,
			priestcontext.ErrUnauthenticated,
			authdomain.ErrInvalidCredentials,
			authdomain.ErrInvalidToken,
			authdomain.ErrTokenExpired,
			authdomain.ErrTokenRevoked,
			authdomain.ErrUserInactive,
		},
	}
	forbiddenClass = errorClass{
		status: http.StatusForbidden, kind: "forbidden", message: "forbidden",
		targets: []error{
			ErrForbidden,
			authdomain.ErrForbidden,
			authorization.ErrForbidden,
			authorization.ErrInvalidActor,
			intentiondomain.ErrForbidden,
			bulkdomain.ErrForbidden,
			celebrationdomain.ErrForbidden,
			notificationdomain.ErrForbidden,
			report.ErrForbidden,
		},
	}
	// Checked after invalid_* input errors.
	laterClasses = []errorClass{
		{
			status: http.StatusNotFound, kind: "not_found", message: "not found",
			targets: []error{
				ErrNotFound,
				authdomain.ErrUserNotFound,
				intentiondomain.ErrNotFound,
				bulkdomain.ErrNotFound,
				celebrationdomain.ErrNotFound,
				obligationdomain.ErrNotFound,
				notificationdomain.ErrNotFound,
				gorm.ErrRecordNotFound,
			},
		},
		{
			status: http.StatusConflict, kind: "conflict", message: "conflict",
			messages: map[error]string{
				authdomain.ErrUserExists:             "username or email already registered",
				intentiondomain.ErrInactive:          "intention is no longer active",
				intentiondomain.ErrFixedDateMismatch: "fixed date intentions can only be celebrated on their date",
				intentiondomain.ErrPastDeadline:      "intention deadline has passed",
				intentiondomain.ErrAlreadyCelebrated: "intention has already been celebrated",
				bulkdomain.ErrAlreadyPaused:          "bulk intention is already paused",
				bulkdomain.ErrAlreadyCompleted:       "bulk intention is already completed",
				bulkdomain.ErrNotPaused:              "bulk intention is not paused",
				bulkdomain.ErrCountChanged:           "bulk intention changed concurrently, retry",
				obligationdomain.ErrQuotaReached:     "monthly obligation already met",
			},
		},
		{
			status: http.StatusTooManyRequests, kind: "rate_limited", message: "too many requests",
			targets: []error{ErrRateLimited, authdomain.ErrTooManyAttempts},
		},
		{
			status: http.StatusServiceUnavailable, kind: "service_unavailable", message: "service unavailable",
			targets: []error{ErrServiceUnavailable},
		},
	}
)

// match reports whether err belongs to the class and the message to use.
func (ec errorClass) match(err error) (string, bool) {
	for target, msg := range ec.messages {
		if errors.Is(err, target) {
			return msg, true
		}
	}
	for _, target := range ec.targets {
		if errors.Is(err, target) {
			return ec.message, true
		}
	}
	return "", false
}

func (ec errorClass) payload(err error, message string) (int, errorPayload) {
	return ec.status, errorPayload{Type: ec.kind, Code: codeOf(err), Message: message}
}

var internalError = errorPayload{Type: "internal_error", Message: "internal server error"}

// mapError resolves err to a status and body. Credential and actor errors share
// the invalid_ prefix with input errors, so they are matched first.
func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalError
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for _, ec := range []errorClass{unauthorizedClass, forbiddenClass} {
		if msg, ok := ec.match(err); ok {
			return ec.payload(err, msg)
		}
	}

	if code, ok := validationCode(err); ok {
		field := strings.TrimPrefix(code, "invalid_")
		message := "invalid value"
		if code == "invalid_request" {
			field, message = "request", "invalid request"
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: "validation error",
			Errors:  []ValidationError{{Field: field, Code: code, Message: message}},
		}
	}

	for _, ec := range laterClasses {
		if msg, ok := ec.match(err); ok {
			return ec.payload(err, msg)
		}
	}
	return http.StatusInternalServerError, internalError
}

// classifyErrorForLog returns the error type and code recorded on request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}

// validationCode finds an invalid_* sentinel anywhere in the wrap chain.
func validationCode(err error) (string, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if msg := e.Error(); strings.HasPrefix(msg, "invalid_") && !strings.Contains(msg, " ") {
			return msg, true
		}
	}
	return "", false
}

// codeOf is the innermost error text, which is the sentinel code for domain errors.
func codeOf(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func isUnauthorizedError(err error) bool {
	_, ok := unauthorizedClass.match(err)
	return ok
}
