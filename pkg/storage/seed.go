package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcampus/facilities/pkg/auth"
	"github.com/smartcampus/facilities/pkg/observability"
)

type seedUser struct {
	username string
	password string
	role     auth.Role
}

// defaultUsers are the accounts provisioned on first boot so a fresh
// deployment is immediately usable. Operators are expected to rotate these
// credentials outside local development.
var defaultUsers = []seedUser{
	{username: "admin", password: "admin123", role: auth.RoleAdmin},
	{username: "user", password: "user123", role: auth.RoleUser},
}

// SeedDefaultUsers creates the default admin and user accounts if they do not
// already exist. Existing accounts are never modified.
func SeedDefaultUsers(ctx context.Context, store auth.UserStore, logger *observability.Logger) error {
	for _, seed := range defaultUsers {
		_, err := store.FindByUsername(ctx, seed.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, auth.ErrUserNotFound) {
			return fmt.Errorf("failed to check seed user %s: %w", seed.username, err)
		}

		hash, err := auth.HashPassword(seed.password)
		if err != nil {
			return fmt.Errorf("failed to hash seed password for %s: %w", seed.username, err)
		}

		user := &auth.User{
			Username:     seed.username,
			PasswordHash: hash,
			Role:         seed.role,
		}
		if err := store.Create(ctx, user); err != nil {
			// Another replica may have seeded concurrently.
			if errors.Is(err, auth.ErrUserExists) {
				continue
			}
			return fmt.Errorf("failed to create seed user %s: %w", seed.username, err)
		}
		logger.WithFields(map[string]interface{}{
			"username": seed.username,
			"role":     string(seed.role),
		}).Info("Seeded default user")
	}
	return nil
}
