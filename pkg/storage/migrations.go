package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(255) NOT NULL,
					password_hash VARCHAR(255) NOT NULL,
					role VARCHAR(32) NOT NULL,
					email VARCHAR(255),
					display_name VARCHAR(255),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					last_login_at TIMESTAMP,
					UNIQUE(username)
				);

				CREATE UNIQUE INDEX idx_users_email ON users(email) WHERE email IS NOT NULL;
			`,
		},
		{
			Version:     2,
			Description: "Create resources table",
			SQL: `
				CREATE TABLE IF NOT EXISTS resources (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					type VARCHAR(255) NOT NULL,
					capacity INT NOT NULL DEFAULT 0 CHECK (capacity >= 0),
					location VARCHAR(255) NOT NULL,
					status VARCHAR(32) NOT NULL,
					availability_start VARCHAR(64),
					availability_end VARCHAR(64),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_resources_type ON resources(type);
				CREATE INDEX idx_resources_status ON resources(status);
			`,
		},
		{
			Version:     3,
			Description: "Create resource analytics snapshot table",
			SQL: `
				CREATE TABLE IF NOT EXISTS resource_analytics_daily (
					snapshot_date DATE PRIMARY KEY,
					total_resources INT NOT NULL,
					active_resources INT NOT NULL,
					out_of_service_resources INT NOT NULL,
					created_at TIMESTAMP NOT NULL
				);
			`,
		},
	}
}

// RunMigrations applies pending migrations, tracking the applied versions in
// a schema_migrations table.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, migration := range GetMigrations() {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`,
			migration.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", migration.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			migration.Version, migration.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
