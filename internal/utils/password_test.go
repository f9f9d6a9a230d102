package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Tr0ub4dor&3", 4) // low cost keeps the test fast
	require.NoError(t, err)
	assert.NotContains(t, hash, "Tr0ub4dor&3", "hash must not embed the plaintext")

	assert.True(t, VerifyPassword(hash, "Tr0ub4dor&3"))
	assert.False(t, VerifyPassword(hash, "tr0ub4dor&3"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestCheckStrength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"ok", "c0rrect-Horse!battery", nil},
		{"too short", "aB1!", ErrPasswordTooShort},
		{"no upper", "c0rrect-horse!battery", ErrPasswordWeak},
		{"no digit", "correct-Horse!battery", ErrPasswordWeak},
		{"no symbol", "c0rrectHorseBattery1", ErrPasswordWeak},
		{"common", "P@ssw0rd", ErrPasswordWeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStrength(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckStrength_UserInputs(t *testing.T) {
	t.Parallel()

	// A password built from the account email scores poorly once the email
	// is supplied as context.
	err := CheckStrength("Operator1!", "operator1@recykl.io", "operator1")
	assert.Error(t, err)
}
