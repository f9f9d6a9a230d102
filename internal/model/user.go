package model

import "time"

// Role names accepted by the registry.  Authorization is a flat
// membership test against these values; there is no privilege order.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an operator account as stored in the `users` table.
// The password hash never leaves the server: the struct is only used by
// the repository and auth handlers, and the JSON tag suppresses the
// field should a user ever be serialized.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lowercased email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – "admin" or "user".
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
