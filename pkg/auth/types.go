package auth

import (
	"errors"
	"fmt"
	"time"
)

// Role is the closed set of roles a user can hold. There is no hierarchy:
// policy checks are exact-match.
type Role string

const (
	// RoleAdmin may mutate facility resources.
	RoleAdmin Role = "ADMIN"
	// RoleUser is the default role: read access plus any endpoint that only
	// requires an authenticated identity.
	RoleUser Role = "USER"
)

// ParseRole converts a stored or wire-format role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents an identity record in the credential store.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // bcrypt hash, never serialized
	Role         Role       `json:"role"`
	Email        string     `json:"email,omitempty"`
	DisplayName  string     `json:"display_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Identity is the authenticated (subject, role) pair produced by the password
// verifier or by token validation, and carried in request context.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Sentinel errors for the authentication core. Handlers map these to HTTP
// statuses; ErrInvalidCredentials deliberately carries no detail that would
// let a caller distinguish "unknown user" from "wrong password".
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)
