package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)

	signed, expires, err := tokens.Issue(&User{UID: "u1", Email: "a@b.c"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	signed, _, err := NewTokens("one", time.Hour).Issue(&User{UID: "u1"})
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpires(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	signed, _, err := tokens.Issue(&User{UID: "u1"})
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRevoke(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	signed, _, err := tokens.Issue(&User{UID: "u1"})
	require.NoError(t, err)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	tokens.Revoke(claims)

	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestTokenGarbage(t *testing.T) {
	_, err := NewTokens("s3cret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
