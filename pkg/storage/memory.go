package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smartcampus/facilities/pkg/api"
	"github.com/smartcampus/facilities/pkg/auth"
)

// MemoryUserStore is an in-memory auth.UserStore for development mode and
// tests. It enforces the same username and email uniqueness as the SQL
// store, so the federated find-or-create race behaves identically.
type MemoryUserStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]*auth.User // keyed by username
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*auth.User)}
}

// FindByUsername implements auth.UserStore.
func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// FindByEmail implements auth.UserStore.
func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if email == "" {
		return nil, auth.ErrUserNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// Create implements auth.UserStore. Uniqueness check and insert happen under
// one lock, mirroring the SQL store's constraint semantics.
func (s *MemoryUserStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return auth.ErrUserExists
	}
	if user.Email != "" {
		for _, existing := range s.users {
			if existing.Email == user.Email {
				return auth.ErrUserExists
			}
		}
	}

	s.nextID++
	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	s.users[user.Username] = &copied
	return nil
}

// TouchLogin implements auth.UserStore.
func (s *MemoryUserStore) TouchLogin(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[username]; ok {
		now := time.Now().UTC()
		user.LastLoginAt = &now
		user.UpdatedAt = now
	}
	return nil
}

// Count returns the number of stored users.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// MemoryResourceStore is an in-memory api.ResourceStore for development mode
// and tests.
type MemoryResourceStore struct {
	mu        sync.RWMutex
	nextID    int64
	resources map[int64]*api.Resource
}

// NewMemoryResourceStore creates an empty in-memory resource store.
func NewMemoryResourceStore() *MemoryResourceStore {
	return &MemoryResourceStore{resources: make(map[int64]*api.Resource)}
}

// Create implements api.ResourceStore.
func (s *MemoryResourceStore) Create(_ context.Context, resource *api.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	resource.ID = s.nextID
	resource.CreatedAt = now
	resource.UpdatedAt = now

	copied := *resource
	s.resources[resource.ID] = &copied
	return nil
}

// GetByID implements api.ResourceStore.
func (s *MemoryResourceStore) GetByID(_ context.Context, id int64) (*api.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resource, ok := s.resources[id]
	if !ok {
		return nil, api.ErrResourceNotFound
	}
	copied := *resource
	return &copied, nil
}

// List implements api.ResourceStore.
func (s *MemoryResourceStore) List(_ context.Context) ([]*api.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(*api.Resource) bool { return true }), nil
}

// Search implements api.ResourceStore.
func (s *MemoryResourceStore) Search(_ context.Context, filter api.ResourceFilter) ([]*api.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(r *api.Resource) bool {
		if filter.Type != "" && r.Type != filter.Type {
			return false
		}
		if filter.MinCapacity != nil && r.Capacity < *filter.MinCapacity {
			return false
		}
		if filter.Location != "" &&
			!strings.Contains(strings.ToLower(r.Location), strings.ToLower(filter.Location)) {
			return false
		}
		return true
	}), nil
}

// Update implements api.ResourceStore.
func (s *MemoryResourceStore) Update(_ context.Context, resource *api.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.resources[resource.ID]
	if !ok {
		return api.ErrResourceNotFound
	}

	resource.CreatedAt = existing.CreatedAt
	resource.UpdatedAt = time.Now().UTC()
	copied := *resource
	s.resources[resource.ID] = &copied
	return nil
}

// Delete implements api.ResourceStore.
func (s *MemoryResourceStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[id]; !ok {
		return api.ErrResourceNotFound
	}
	delete(s.resources, id)
	return nil
}

// Analytics implements api.ResourceStore.
func (s *MemoryResourceStore) Analytics(_ context.Context) (*api.ResourceAnalytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	analytics := &api.ResourceAnalytics{
		ResourcesByType: make(map[string]int64),
	}
	for _, r := range s.resources {
		analytics.TotalResources++
		switch r.Status {
		case api.StatusActive:
			analytics.ActiveResources++
		case api.StatusOutOfService:
			analytics.OutOfServiceResources++
		}
		analytics.ResourcesByType[r.Type]++
	}
	return analytics, nil
}

// snapshot returns matching resources ordered by ID. Callers must hold the
// read lock.
func (s *MemoryResourceStore) snapshot(match func(*api.Resource) bool) []*api.Resource {
	out := []*api.Resource{}
	for _, resource := range s.resources {
		if match(resource) {
			copied := *resource
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
