package crypto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "s3cret", AccessExpiry: time.Minute, Issuer: "reportflow"})
	userID := uuid.New()

	token, exp, err := m.GenerateAccessToken(userID, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, "reportflow", claims.Issuer)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "s3cret", AccessExpiry: time.Minute})
	other := NewJWTManager(JWTConfig{Secret: "different", AccessExpiry: time.Minute})
	expired := NewJWTManager(JWTConfig{Secret: "s3cret", AccessExpiry: -time.Minute})

	foreign, _, err := other.GenerateAccessToken(uuid.New(), "x@example.com")
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	stale, _, err := expired.GenerateAccessToken(uuid.New(), "x@example.com")
	require.NoError(t, err)
	_, err = m.ValidateToken(stale)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = m.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_IssuerMismatch(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "s3cret", AccessExpiry: time.Minute, Issuer: "reportflow"})
	other := NewJWTManager(JWTConfig{Secret: "s3cret", AccessExpiry: time.Minute, Issuer: "someone-else"})

	token, _, err := other.GenerateAccessToken(uuid.New(), "x@example.com")
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
