package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) (*Issuer, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	issuer, err := NewIssuer(Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    30 * 24 * time.Hour,
	}, fake, node)
	require.NoError(t, err)
	return issuer, fake
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer, _ := newIssuer(t)
	issued, err := issuer.IssueAccess(snowflake.ID(42), "priest")
	require.NoError(t, err)

	claims, err := issuer.ParseAccess(issued.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), id)
	assert.Equal(t, "priest", claims.Role)
	assert.Equal(t, issued.ID.String(), claims.ID)
}

func TestAccessTokenExpires(t *testing.T) {
	issuer, fake := newIssuer(t)
	issued, err := issuer.IssueAccess(snowflake.ID(42), "priest")
	require.NoError(t, err)

	fake.Advance(time.Hour + time.Second)
	_, err = issuer.ParseAccess(issued.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestKindsAreNotInterchangeable(t *testing.T) {
	issuer, _ := newIssuer(t)
	refresh, err := issuer.IssueRefresh(snowflake.ID(42), "priest")
	require.NoError(t, err)
	access, err := issuer.IssueAccess(snowflake.ID(42), "priest")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(refresh.Token)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = issuer.ParseRefresh(access.Token)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = issuer.ParseRefresh(refresh.Token)
	assert.NoError(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	issuer, _ := newIssuer(t)
	issued, err := issuer.IssueAccess(snowflake.ID(42), "admin")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(issued.Token + "x")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = issuer.ParseAccess("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	_, err = NewIssuer(Config{AccessTTL: time.Hour, RefreshTTL: time.Hour}, clock.SystemClock{}, node)
	assert.Error(t, err)
}
