package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/smartcampus/facilities/pkg/auth"
)

// UserStore is the SQL-backed implementation of auth.UserStore. The email
// column carries a partial unique index, which is what makes federated
// find-or-create atomic under concurrent first-time logins.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store over the given database handle.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, password_hash, role, email, display_name, created_at, updated_at, last_login_at`

// FindByUsername implements auth.UserStore.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// FindByEmail implements auth.UserStore.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create implements auth.UserStore.
func (s *UserStore) Create(ctx context.Context, user *auth.User) error {
	now := time.Now().UTC()

	var email, displayName sql.NullString
	if user.Email != "" {
		email = sql.NullString{String: user.Email, Valid: true}
	}
	if user.DisplayName != "" {
		displayName = sql.NullString{String: user.DisplayName, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, email, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`, user.Username, user.PasswordHash, string(user.Role), email, displayName, now).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// TouchLogin implements auth.UserStore.
func (s *UserStore) TouchLogin(ctx context.Context, username string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $1 WHERE username = $2`,
		now, username)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*auth.User, error) {
	user := &auth.User{}
	var (
		role        string
		email       sql.NullString
		displayName sql.NullString
		lastLogin   sql.NullTime
	)

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &role,
		&email, &displayName, &user.CreatedAt, &user.UpdatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	parsed, err := auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}
	user.Role = parsed
	user.Email = email.String
	user.DisplayName = displayName.String
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}

	return user, nil
}

// isUniqueViolation recognizes uniqueness errors from PostgreSQL (class
// 23505) and from the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
