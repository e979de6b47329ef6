package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(db.NewTest(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAdminCanManageUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, snowflake.ID(1), RoleAdmin, ObjectUser, ActionUserList))
	assert.NoError(t, svc.Authorize(ctx, snowflake.ID(1), RoleAdmin, ObjectUser, ActionUserDeactivate))
	assert.NoError(t, svc.Authorize(ctx, snowflake.ID(1), RoleAdmin, ObjectReport, ActionReportExport))
}

func TestPriestCannotManageUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, snowflake.ID(2), RolePriest, ObjectUser, ActionUserList), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, snowflake.ID(2), RolePriest, ObjectUser, ActionUserViewAny), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, snowflake.ID(2), RolePriest, ObjectReport, ActionReportExport))
}

func TestRoleChangeIsFollowed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := snowflake.ID(3)

	require.NoError(t, svc.Authorize(ctx, id, RoleAdmin, ObjectUser, ActionUserList))
	assert.ErrorIs(t, svc.Authorize(ctx, id, RolePriest, ObjectUser, ActionUserList), ErrForbidden)
}

func TestAuthorizeRejectsEmptyInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, 0, RoleAdmin, ObjectUser, ActionUserList), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, 1, "", ObjectUser, ActionUserList), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, 1, RoleAdmin, "", ActionUserList), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, 1, RoleAdmin, ObjectUser, " "), ErrInvalidAction)
}
