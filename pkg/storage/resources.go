package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/smartcampus/facilities/pkg/api"
)

// ResourceStore is the SQL-backed implementation of api.ResourceStore.
type ResourceStore struct {
	db *sql.DB
}

// NewResourceStore creates a resource store over the given database handle.
func NewResourceStore(db *sql.DB) *ResourceStore {
	return &ResourceStore{db: db}
}

const resourceColumns = `id, name, type, capacity, location, status, availability_start, availability_end, created_at, updated_at`

// Create implements api.ResourceStore.
func (s *ResourceStore) Create(ctx context.Context, resource *api.Resource) error {
	now := time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO resources (name, type, capacity, location, status, availability_start, availability_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`, resource.Name, resource.Type, resource.Capacity, resource.Location,
		string(resource.Status), resource.AvailabilityStart, resource.AvailabilityEnd, now).Scan(&resource.ID)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	resource.CreatedAt = now
	resource.UpdatedAt = now
	return nil
}

// GetByID implements api.ResourceStore.
func (s *ResourceStore) GetByID(ctx context.Context, id int64) (*api.Resource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)

	resource, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrResourceNotFound
	}
	return resource, err
}

// List implements api.ResourceStore.
func (s *ResourceStore) List(ctx context.Context) ([]*api.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	return collectResources(rows)
}

// Search implements api.ResourceStore. Filters combine with AND; absent
// filters match everything.
func (s *ResourceStore) Search(ctx context.Context, filter api.ResourceFilter) ([]*api.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE 1=1`
	args := []interface{}{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if filter.MinCapacity != nil {
		args = append(args, *filter.MinCapacity)
		query += ` AND capacity >= $` + strconv.Itoa(len(args))
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		query += ` AND LOWER(location) LIKE LOWER($` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search resources: %w", err)
	}
	defer rows.Close()

	return collectResources(rows)
}

// Update implements api.ResourceStore.
func (s *ResourceStore) Update(ctx context.Context, resource *api.Resource) error {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE resources
		SET name = $1, type = $2, capacity = $3, location = $4, status = $5,
		    availability_start = $6, availability_end = $7, updated_at = $8
		WHERE id = $9
	`, resource.Name, resource.Type, resource.Capacity, resource.Location,
		string(resource.Status), resource.AvailabilityStart, resource.AvailabilityEnd, now, resource.ID)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return api.ErrResourceNotFound
	}

	resource.UpdatedAt = now
	return nil
}

// Delete implements api.ResourceStore.
func (s *ResourceStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return api.ErrResourceNotFound
	}
	return nil
}

// Analytics implements api.ResourceStore.
func (s *ResourceStore) Analytics(ctx context.Context) (*api.ResourceAnalytics, error) {
	analytics := &api.ResourceAnalytics{
		ResourcesByType: make(map[string]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN status = $1 THEN 1 END),
		       COUNT(CASE WHEN status = $2 THEN 1 END)
		FROM resources
	`, string(api.StatusActive), string(api.StatusOutOfService)).Scan(
		&analytics.TotalResources, &analytics.ActiveResources, &analytics.OutOfServiceResources)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate resources: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM resources GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate resources by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var resourceType string
		var count int64
		if err := rows.Scan(&resourceType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		analytics.ResourcesByType[resourceType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read type counts: %w", err)
	}

	return analytics, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row rowScanner) (*api.Resource, error) {
	resource := &api.Resource{}
	var status string
	var availStart, availEnd sql.NullString

	err := row.Scan(&resource.ID, &resource.Name, &resource.Type, &resource.Capacity,
		&resource.Location, &status, &availStart, &availEnd,
		&resource.CreatedAt, &resource.UpdatedAt)
	if err != nil {
		return nil, err
	}

	resource.Status = api.Status(status)
	resource.AvailabilityStart = availStart.String
	resource.AvailabilityEnd = availEnd.String
	return resource, nil
}

func collectResources(rows *sql.Rows) ([]*api.Resource, error) {
	resources := []*api.Resource{}
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resources: %w", err)
	}
	return resources, nil
}
