package priestcontext

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type priestIDKey struct{}
type roleKey struct{}

// WithPriestID stores the authenticated priest on ctx.
func WithPriestID(ctx context.Context, priestID snowflake.ID) context.Context {
	return context.WithValue(ctx, priestIDKey{}, priestID)
}

// PriestIDFromContext returns the authenticated priest, if any.
func PriestIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(priestIDKey{}).(snowflake.ID)
	return id, ok && id != 0
}

// Require returns the authenticated priest or ErrUnauthenticated.
func Require(ctx context.Context) (snowflake.ID, error) {
	id, ok := PriestIDFromContext(ctx)
	if !ok {
		return 0, ErrUnauthenticated
	}
	return id, nil
}

// PriestIDString is the log-friendly form of PriestIDFromContext.
func PriestIDString(ctx context.Context) string {
	id, ok := PriestIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
