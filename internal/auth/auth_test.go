package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("12345")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.True(t, VerifyPassword(hash, "12345"))
	assert.False(t, VerifyPassword(hash, "54321"))
	assert.False(t, NeedsRehash(hash))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestVerifyPasswordAcceptsLegacyRows(t *testing.T) {
	legacy := legacyHash("secreto")
	assert.True(t, VerifyPassword(legacy, "secreto"))
	assert.True(t, NeedsRehash(legacy))

	assert.True(t, VerifyPassword("plain", "plain"))
	assert.False(t, VerifyPassword("plain", "other"))
	assert.False(t, VerifyPassword("", ""))
}

func TestSessionsSignAndVerify(t *testing.T) {
	s := NewSessions("secret", 0)

	value := s.Sign("admin@woodshop.co")
	email, ok := s.Verify(value)
	require.True(t, ok)
	assert.Equal(t, "admin@woodshop.co", email)

	_, ok = NewSessions("other-secret", 0).Verify(value)
	assert.False(t, ok)

	for _, bad := range []string{"", "nodot", "abc.zz", value + "00"} {
		_, ok := s.Verify(bad)
		assert.False(t, ok, bad)
	}
}

func TestSessionsExpire(t *testing.T) {
	clock := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := NewSessions("secret", time.Hour)
	s.now = func() time.Time { return clock }

	value := s.Sign("admin@woodshop.co")
	_, ok := s.Verify(value)
	assert.True(t, ok)

	clock = clock.Add(2 * time.Hour)
	_, ok = s.Verify(value)
	assert.False(t, ok)
}
