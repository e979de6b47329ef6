package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScalarMap(t *testing.T) {
	require.NoError(t, ValidateScalarMap(map[string]any{
		"phone":   "+39 06 000",
		"count":   float64(2),
		"urgent":  true,
		"comment": nil,
	}))

	err := ValidateScalarMap(map[string]any{"nested": map[string]any{"a": 1}})
	assert.True(t, errors.Is(err, ErrInvalidMetadata))

	err = ValidateScalarMap(map[string]any{"": "x"})
	assert.True(t, errors.Is(err, ErrInvalidMetadata))

	err = ValidateScalarMap(map[string]any{"list": []any{"a"}})
	assert.True(t, errors.Is(err, ErrInvalidMetadata))
}

func TestStructTags(t *testing.T) {
	type req struct {
		Title    string         `json:"title" validate:"required,max=10"`
		MassTime string         `json:"mass_time" validate:"hhmm"`
		Metadata map[string]any `json:"metadata" validate:"omitempty,scalarmap"`
	}

	require.NoError(t, Struct(req{Title: "ok", MassTime: "07:30"}))

	err := Struct(req{Title: "", MassTime: "25:00", Metadata: map[string]any{"x": []any{}}})
	fields := FieldErrors(err)
	assert.Equal(t, "required", fields["title"])
	assert.Equal(t, "hhmm", fields["mass_time"])
	assert.Equal(t, "scalarmap", fields["metadata"])
}

func TestIsClockTime(t *testing.T) {
	assert.True(t, IsClockTime("00:00"))
	assert.True(t, IsClockTime("23:59"))
	assert.False(t, IsClockTime("24:00"))
	assert.False(t, IsClockTime("7:30"))
	assert.False(t, IsClockTime("ab:cd"))
}
