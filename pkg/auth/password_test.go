package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users map[string]*User
	err   error
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeUserStore) Create(_ context.Context, user *User) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[user.Username]; ok {
		return ErrUserExists
	}
	user.ID = int64(len(s.users) + 1)
	s.users[user.Username] = user
	return nil
}

func (s *fakeUserStore) TouchLogin(_ context.Context, _ string) error {
	return s.err
}

func seededStore(t *testing.T) *fakeUserStore {
	t.Helper()
	adminHash, err := HashPassword("admin123")
	require.NoError(t, err)
	userHash, err := HashPassword("user123")
	require.NoError(t, err)

	return &fakeUserStore{users: map[string]*User{
		"admin": {ID: 1, Username: "admin", PasswordHash: adminHash, Role: RoleAdmin},
		"user":  {ID: 2, Username: "user", PasswordHash: userHash, Role: RoleUser},
		"alice@example.edu": {
			ID:           3,
			Username:     "alice@example.edu",
			PasswordHash: FederatedCredentialPrefix + "1712345678",
			Role:         RoleUser,
			Email:        "alice@example.edu",
		},
	}}
}

func TestPasswordVerifier_Verify(t *testing.T) {
	verifier := NewPasswordVerifier(seededStore(t), nil)
	ctx := context.Background()

	t.Run("valid admin credentials", func(t *testing.T) {
		identity, err := verifier.Verify(ctx, "admin", "admin123")
		require.NoError(t, err)
		assert.Equal(t, Identity{Username: "admin", Role: RoleAdmin}, identity)
	})

	t.Run("valid user credentials", func(t *testing.T) {
		identity, err := verifier.Verify(ctx, "user", "user123")
		require.NoError(t, err)
		assert.Equal(t, Identity{Username: "user", Role: RoleUser}, identity)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "admin", "wrongpw")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username is indistinguishable from wrong password", func(t *testing.T) {
		_, errUnknown := verifier.Verify(ctx, "nobody", "admin123")
		_, errWrong := verifier.Verify(ctx, "admin", "wrongpw")
		assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})

	t.Run("empty username or password", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "", "admin123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = verifier.Verify(ctx, "admin", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("federated account cannot use password login", func(t *testing.T) {
		// Even supplying the stored placeholder verbatim must fail.
		_, err := verifier.Verify(ctx, "alice@example.edu", FederatedCredentialPrefix+"1712345678")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPasswordVerifier_StoreUnavailable(t *testing.T) {
	store := &fakeUserStore{err: errors.New("connection refused")}
	verifier := NewPasswordVerifier(store, nil)

	_, err := verifier.Verify(context.Background(), "admin", "admin123")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-passphrase", hash)

	assert.NoError(t, BcryptComparer{}.Compare(hash, "s3cret-passphrase"))
	assert.Error(t, BcryptComparer{}.Compare(hash, "other"))
}
