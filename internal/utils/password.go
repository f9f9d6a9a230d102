package utils

import (
	"errors"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

// Password strength rules applied at registration.
const (
	passwordMinLength = 8
	passwordMaxLength = 72 // bcrypt input limit
	passwordMinScore  = 3  // zxcvbn score, 0..4
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrPasswordWeak     = errors.New("password too weak")
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckStrength enforces the registration password policy: length bounds,
// all four character classes present, and a zxcvbn score of at least 3.
// userInputs (e.g. the email address) lowers the score of passwords
// derived from them.
func CheckStrength(plain string, userInputs ...string) error {
	if len(plain) < passwordMinLength {
		return ErrPasswordTooShort
	}
	if len(plain) > passwordMaxLength {
		return ErrPasswordTooLong
	}
	var lower, upper, digit, symbol bool
	for _, r := range plain {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrPasswordWeak
	}
	if zxcvbn.PasswordStrength(plain, userInputs).Score < passwordMinScore {
		return ErrPasswordWeak
	}
	return nil
}
