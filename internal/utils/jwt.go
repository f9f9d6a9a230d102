package utils // package utils provides helper functions for session tokens and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned by ParseSessionToken for any token that does
// not verify: bad signature, wrong algorithm, expired or malformed.  The
// caller does not learn which, only that the credential is unusable.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the decoded content of a session token: who the caller is
// and which role they carry.  It is attached to the request context by the
// auth middleware and consumed by the role gate and handlers.
type Identity struct {
	UserID uint64
	Role   string
}

// sessionClaims embeds the registered claims and adds the role.  The user
// id travels in the standard subject claim.
type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IssueSessionToken builds and signs an HS256 JWT for a user.  It takes
// the signing secret, the user ID, the user's role and the token lifetime,
// and returns the serialized token together with its absolute expiry.
func IssueSessionToken(secret string, userID uint64, role string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseSessionToken verifies a serialized session token and returns the
// identity it carries.  Any failure maps to ErrInvalidToken.
func ParseSessionToken(secret, raw string) (Identity, error) {
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: uid, Role: claims.Role}, nil
}
