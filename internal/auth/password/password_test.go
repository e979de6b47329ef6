package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, Verify("correct horse battery", encoded))
	assert.False(t, Verify("wrong password", encoded))
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("same-password")
	require.NoError(t, err)
	b, err := Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	assert.False(t, Verify("x", ""))
	assert.False(t, Verify("x", "$bcrypt$v=19$m=1,t=1,p=1$a$b"))
	assert.False(t, Verify("x", "$argon2id$v=19$m=1,t=1$a$b"))
	assert.False(t, Verify("x", "$argon2id$v=19$m=x,t=1,p=1$a$b"))
}

func TestAcceptable(t *testing.T) {
	assert.False(t, Acceptable("short"))
	assert.False(t, Acceptable("        "))
	assert.True(t, Acceptable("long-enough"))
	assert.False(t, Acceptable(strings.Repeat("a", MaxLength+1)))
}
