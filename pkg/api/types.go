package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the operational state of a campus resource.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusMaintenance  Status = "MAINTENANCE"
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

// Valid reports whether the status is one of the known set.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusMaintenance, StatusOutOfService:
		return true
	}
	return false
}

// Resource represents a campus facility or asset (room, lab, equipment).
type Resource struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Capacity          int       `json:"capacity"`
	Location          string    `json:"location"`
	Status            Status    `json:"status"`
	AvailabilityStart string    `json:"availability_start,omitempty"`
	AvailabilityEnd   string    `json:"availability_end,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate checks the invariants enforced on create and update.
func (r *Resource) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Type) == "" {
		return errors.New("type is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return errors.New("location is required")
	}
	if r.Capacity < 0 {
		return errors.New("capacity cannot be negative")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("status must be one of %s, %s, %s",
			StatusActive, StatusMaintenance, StatusOutOfService)
	}
	return nil
}

// ResourceFilter holds the optional search criteria.
type ResourceFilter struct {
	Type        string
	MinCapacity *int
	Location    string
}

// ResourceAnalytics summarizes the resource inventory for the dashboard.
type ResourceAnalytics struct {
	TotalResources        int64            `json:"total_resources"`
	ActiveResources       int64            `json:"active_resources"`
	OutOfServiceResources int64            `json:"out_of_service_resources"`
	ResourcesByType       map[string]int64 `json:"resources_by_type"`
}

// ResourceStore is the persistence interface for campus resources.
type ResourceStore interface {
	Create(ctx context.Context, resource *Resource) error
	GetByID(ctx context.Context, id int64) (*Resource, error)
	List(ctx context.Context) ([]*Resource, error)
	Search(ctx context.Context, filter ResourceFilter) ([]*Resource, error)
	Update(ctx context.Context, resource *Resource) error
	Delete(ctx context.Context, id int64) error
	Analytics(ctx context.Context) (*ResourceAnalytics, error)
}

// ErrResourceNotFound is returned by ResourceStore operations targeting a
// nonexistent resource.
var ErrResourceNotFound = errors.New("resource not found")
