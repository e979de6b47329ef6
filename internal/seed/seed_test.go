package seed_test

import (
	"context"
	"testing"

	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/seed"
	"github.com/smallbiznis/masstrack/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureAdminIsIdempotent(t *testing.T) {
	h := testkit.New(t)
	cfg := config.BootstrapConfig{
		AdminUsername: "root",
		AdminEmail:    "root@parish.example",
		AdminPassword: "bootstrap-secret",
	}

	require.NoError(t, seed.EnsureAdmin(context.Background(), h.Auth, cfg, zap.NewNop()))
	require.NoError(t, seed.EnsureAdmin(context.Background(), h.Auth, cfg, zap.NewNop()))

	res, err := h.Auth.Login(context.Background(), authdomain.LoginRequest{
		Identifier: "root",
		Password:   "bootstrap-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, authdomain.RoleAdmin, res.User.Role)

	var count int64
	require.NoError(t, h.DB.Model(&authdomain.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureAdminSkipsWithoutCredentials(t *testing.T) {
	h := testkit.New(t)
	require.NoError(t, seed.EnsureAdmin(context.Background(), h.Auth, config.BootstrapConfig{AdminUsername: "root"}, zap.NewNop()))

	var count int64
	require.NoError(t, h.DB.Model(&authdomain.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
