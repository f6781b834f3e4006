package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(secret, "12", "a@example.com", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "12", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.False(t, claims.Expired(time.Now()))
}

func TestParseRejectsWrongSecretAndExpired(t *testing.T) {
	tok, err := Issue(secret, "12", "a@example.com", "admin", time.Hour)
	require.NoError(t, err)
	_, err = Parse([]byte("other"), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := Issue(secret, "12", "a@example.com", "admin", -time.Minute)
	require.NoError(t, err)
	_, err = Parse(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := ParseUnverified(expired)
	require.NoError(t, err)
	assert.True(t, claims.Expired(time.Now()))
}

func TestParseUnverifiedGarbage(t *testing.T) {
	_, err := ParseUnverified("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
