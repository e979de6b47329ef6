package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
)

const dateOnlyLayout = "2006-01-02"

// Date is a calendar day in JSON bodies, accepting YYYY-MM-DD or RFC 3339.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	parsed, err := parseDate(raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// Ptr returns nil for a missing or empty date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(dateOnlyLayout, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := parseDate(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// pathID parses a snowflake path parameter; failures abort with a validation error.
func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return 0, false
	}
	return id, true
}

func pathInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Param(name)))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return 0, false
	}
	return n, true
}

func bindPage(c *gin.Context) (pagination.Pagination, bool) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return page, false
	}
	return page, true
}

// queryInt parses an optional integer query parameter; failures abort with a validation error.
func queryInt(c *gin.Context, name string) (*int, bool) {
	v, err := parseOptionalInt(c.Query(name))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return nil, false
	}
	return v, true
}

func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	v, err := parseOptionalDate(c.Query(name))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return nil, false
	}
	return v, true
}

func queryBool(c *gin.Context, name string) (*bool, bool) {
	v, err := parseOptionalBool(c.Query(name))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return nil, false
	}
	return v, true
}
