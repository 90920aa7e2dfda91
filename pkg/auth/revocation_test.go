package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationList(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token is not revoked", func(t *testing.T) {
		l := NewMemoryRevocationList()
		revoked, err := l.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoked token stays revoked until expiry", func(t *testing.T) {
		l := NewMemoryRevocationList()
		require.NoError(t, l.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

		revoked, err := l.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("entry lapses once the token would have expired", func(t *testing.T) {
		l := NewMemoryRevocationList()
		expiry := time.Now().Add(time.Minute)
		require.NoError(t, l.Revoke(ctx, "jti-1", expiry))

		l.now = func() time.Time { return expiry.Add(time.Second) }
		revoked, err := l.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("purge drops only expired entries", func(t *testing.T) {
		l := NewMemoryRevocationList()
		now := time.Now()
		require.NoError(t, l.Revoke(ctx, "live", now.Add(time.Hour)))
		require.NoError(t, l.Revoke(ctx, "dead", now.Add(time.Minute)))

		l.now = func() time.Time { return now.Add(30 * time.Minute) }
		assert.Equal(t, 1, l.Purge())

		revoked, err := l.IsRevoked(ctx, "live")
		require.NoError(t, err)
		assert.True(t, revoked)
	})
}

func TestRedisRevocationList(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisRevocationList(client, "")

	t.Run("unknown token is not revoked", func(t *testing.T) {
		revoked, err := l.IsRevoked(ctx, "jti-unknown")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoke then check", func(t *testing.T) {
		require.NoError(t, l.Revoke(ctx, "jti-2", time.Now().Add(time.Hour)))

		revoked, err := l.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("entry expires with the token", func(t *testing.T) {
		require.NoError(t, l.Revoke(ctx, "jti-3", time.Now().Add(time.Minute)))

		mr.FastForward(2 * time.Minute)

		revoked, err := l.IsRevoked(ctx, "jti-3")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("already expired token is a no-op", func(t *testing.T) {
		require.NoError(t, l.Revoke(ctx, "jti-4", time.Now().Add(-time.Minute)))

		revoked, err := l.IsRevoked(ctx, "jti-4")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("fails closed when redis is down", func(t *testing.T) {
		mr.SetError("connection lost")
		defer mr.SetError("")

		_, err := l.IsRevoked(ctx, "jti-2")
		assert.Error(t, err)
	})
}

func TestRoleParsing(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"ADMIN", RoleAdmin, false},
		{"USER", RoleUser, false},
		{"admin", "", true},
		{"", "", true},
		{"SUPERUSER", "", true},
	}

	for _, tt := range tests {
		t.Run("parse "+tt.input, func(t *testing.T) {
			role, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
			assert.True(t, role.Valid())
		})
	}
}
