package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholdsFallback(t *testing.T) {
	got := DefaultThresholds(Config{})
	assert.Equal(t, 10, got.BulkWarning)
	assert.Equal(t, 5, got.BulkCritical)
	assert.Equal(t, 3, got.MonthlyTarget)
	assert.Equal(t, 24, got.UrgentDayOfMonth)
	assert.InDelta(t, 0.67, got.OnTrackRatio, 0.0001)
	require.NoError(t, validateThresholds(got))
}

func TestValidateThresholdsRejectsInverted(t *testing.T) {
	th := DefaultThresholds(Config{})
	th.BulkCritical = 20
	assert.Error(t, validateThresholds(th))

	th = DefaultThresholds(Config{})
	th.OnTrackRatio = 1.5
	assert.Error(t, validateThresholds(th))
}

func TestHolderStoreRejectsInvalid(t *testing.T) {
	h := NewStaticThresholdHolder(DefaultThresholds(Config{}))

	bad := h.Get()
	bad.BulkCritical = bad.BulkWarning + 1
	assert.Error(t, h.Store(bad))
	assert.Equal(t, 10, h.Get().BulkWarning)

	good := h.Get()
	good.BulkWarning = 7
	require.NoError(t, h.Store(good))
	assert.Equal(t, 7, h.Get().BulkWarning)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("LOGIN_MAX_ATTEMPTS", "7")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_SECONDS", "60")

	cfg := Load()
	assert.Equal(t, 7, cfg.RateLimit.LoginMaxAttempts)
	assert.Equal(t, "secret", cfg.Auth.JWTRefreshSecret)
	assert.Equal(t, int64(60), int64(cfg.Auth.AccessTokenTTL.Seconds()))
	assert.Equal(t, 100, cfg.Paging.MaxPageSize)
}
