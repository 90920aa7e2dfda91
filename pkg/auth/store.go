package auth

import "context"

// UserStore is the narrow view of the credential store consumed by the
// authentication core. The SQL implementation lives in pkg/storage.
type UserStore interface {
	// FindByUsername returns the user with the given username, or
	// ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByEmail returns the user with the given email, or ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts a new user and fills in the store-assigned ID and
	// timestamps. Duplicate username or email returns ErrUserExists.
	Create(ctx context.Context, user *User) error

	// TouchLogin records a successful login for the user.
	TouchLogin(ctx context.Context, username string) error
}

// ErrUserNotFound is returned by UserStore lookups when no record matches.
// It never escapes the authentication core uninterpreted: verifiers translate
// it to ErrInvalidCredentials.
var ErrUserNotFound = storeError("user not found")

// ErrUserExists is returned by UserStore.Create on a username or email
// uniqueness violation. The federation handler relies on it to resolve the
// find-or-create race.
var ErrUserExists = storeError("user already exists")

type storeError string

func (e storeError) Error() string { return string(e) }
