package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_HashAndMatch(t *testing.T) {
	s := NewAuthServiceWithCost(bcrypt.MinCost)

	hash, err := s.HashPassword("pw1")
	require.NoError(t, err)
	assert.True(t, s.IsHashed(hash))
	assert.NotEqual(t, "pw1", hash)

	ok, upgrade := s.Matches("pw1", hash)
	assert.True(t, ok)
	assert.False(t, upgrade)

	ok, _ = s.Matches("pw2", hash)
	assert.False(t, ok)

	other, err := s.HashPassword("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes are salted")
}

func TestAuthService_LegacyPlaintext(t *testing.T) {
	s := NewAuthServiceWithCost(bcrypt.MinCost)

	ok, upgrade := s.Matches("plain", "plain")
	assert.True(t, ok)
	assert.True(t, upgrade)

	ok, upgrade = s.Matches("Plain", "plain")
	assert.False(t, ok)
	assert.False(t, upgrade)

	ok, _ = s.Matches("", "")
	assert.False(t, ok, "empty passwords never match")
}

func TestAuthService_IsHashed(t *testing.T) {
	s := NewAuthService()
	for value, want := range map[string]bool{
		"$2a$10$abcdefghijklmnopqrstuv": true,
		"$2b$12$x":                      true,
		"  $2y$04$x":                    true,
		"password":                      false,
		"":                              false,
		"$1$md5":                        false,
	} {
		assert.Equal(t, want, s.IsHashed(value), value)
	}
}
