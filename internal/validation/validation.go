// Package validation holds the shared struct validator and the metadata map rules.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	MaxMapKeys        = 50
	MaxMapKeyLength   = 64
	MaxMapValueLength = 1000
)

var ErrInvalidMetadata = errors.New("invalid_metadata")

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("scalarmap", func(fl validator.FieldLevel) bool {
			m, ok := fl.Field().Interface().(map[string]any)
			if !ok {
				return fl.Field().IsNil()
			}
			return ValidateScalarMap(m) == nil
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || IsClockTime(s)
		})
		instance = v
	})
	return instance
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return Validator().Struct(s)
}

// FieldErrors flattens validator errors into field -> tag pairs.
func FieldErrors(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// ValidateScalarMap accepts only flat maps of strings, numbers, booleans and nulls.
func ValidateScalarMap(m map[string]any) error {
	if len(m) > MaxMapKeys {
		return fmt.Errorf("%w: more than %d keys", ErrInvalidMetadata, MaxMapKeys)
	}
	for key, value := range m {
		key = strings.TrimSpace(key)
		if key == "" || len(key) > MaxMapKeyLength {
			return fmt.Errorf("%w: key %q", ErrInvalidMetadata, key)
		}
		switch v := value.(type) {
		case nil, bool, float64, float32, int, int32, int64:
		case string:
			if len(v) > MaxMapValueLength {
				return fmt.Errorf("%w: value for %q too long", ErrInvalidMetadata, key)
			}
		default:
			return fmt.Errorf("%w: value for %q must be a scalar", ErrInvalidMetadata, key)
		}
	}
	return nil
}

// IsClockTime reports whether s is a 24h HH:MM time.
func IsClockTime(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return h < 24 && m < 60
}
