package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)
}

func TestGenerateAndValidate_Access(t *testing.T) {
	m := newTestManager()

	tok, err := m.GenerateAccessToken("+15551234567")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", claims.PhoneNumber)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := newTestManager()

	a, err := m.GenerateRefreshToken("+15551234567")
	require.NoError(t, err)
	b, err := m.GenerateRefreshToken("+15551234567")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestValidate_RejectsCrossedTokenTypes(t *testing.T) {
	m := newTestManager()

	refresh, err := m.GenerateRefreshToken("+15551234567")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(refresh)
	assert.Error(t, err, "refresh token must not pass as access token")

	access, err := m.GenerateAccessToken("+15551234567")
	require.NoError(t, err)
	_, err = m.ValidateRefreshToken(access)
	assert.Error(t, err, "access token must not pass as refresh token")
}

func TestValidate_Expired(t *testing.T) {
	m := NewJWTManager("a", "r", -time.Second, -time.Second)

	tok, err := m.GenerateRefreshToken("+15551234567")
	require.NoError(t, err)

	_, err = m.ValidateRefreshToken(tok)
	assert.Error(t, err)
}

func TestValidate_WrongSecret(t *testing.T) {
	tok, err := newTestManager().GenerateAccessToken("+15551234567")
	require.NoError(t, err)

	other := NewJWTManager("other", "other", time.Hour, time.Hour)
	_, err = other.ValidateAccessToken(tok)
	assert.Error(t, err)
}
