package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// MemoryRevocationList is a process-local revocation list. Suitable for
// single-instance deployments; entries are dropped once the underlying token
// would have expired anyway.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty in-memory revocation list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke implements RevocationList.
func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[tokenID] = expiresAt
	return nil
}

// IsRevoked implements RevocationList.
func (l *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiresAt, ok := l.revoked[tokenID]
	if !ok {
		return false, nil
	}
	// An entry past the token's own expiry is dead weight, not a live
	// revocation.
	return l.now().Before(expiresAt), nil
}

// Purge removes entries whose tokens have expired on their own. Called
// periodically by the janitor.
func (l *MemoryRevocationList) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for id, expiresAt := range l.revoked {
		if !now.Before(expiresAt) {
			delete(l.revoked, id)
			removed++
		}
	}
	return removed
}

// RedisRevocationList shares revocations across instances via Redis. Each
// entry carries a TTL matching the token's remaining lifetime, so Redis
// expires it for free.
type RedisRevocationList struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationList creates a Redis-backed revocation list. An empty
// prefix defaults to "revoked".
func NewRedisRevocationList(client *redis.Client, prefix string) *RedisRevocationList {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocationList{client: client, prefix: prefix}
}

func (l *RedisRevocationList) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", l.prefix, tokenID)
}

// Revoke implements RevocationList.
func (l *RedisRevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired; nothing to record.
		return nil
	}
	if err := l.client.Set(ctx, l.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

// IsRevoked implements RevocationList. Unlike rate limiting, a revocation
// check fails closed: a Redis outage surfaces as an error rather than
// silently accepting a possibly revoked token.
func (l *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := l.client.Get(ctx, l.key(tokenID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup: %w", err)
	}
	return true, nil
}
