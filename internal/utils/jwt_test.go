package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	t.Parallel()

	tok, exp, err := IssueSessionToken("super-secret", 42, "admin", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := ParseSessionToken("super-secret", tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id.UserID)
	assert.Equal(t, "admin", id.Role)
}

func TestSessionToken_Expired(t *testing.T) {
	t.Parallel()

	tok, _, err := IssueSessionToken("secret", 1, "user", -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken("secret", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := IssueSessionToken("right-secret", 1, "user", time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionToken("wrong-secret", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseSessionToken("k", "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
