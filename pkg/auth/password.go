package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// FederatedCredentialPrefix marks placeholder password hashes stored for
// accounts provisioned via federated login. Such accounts can never pass
// password verification; they authenticate only through the provider.
const FederatedCredentialPrefix = "OAUTH2_USER_"

// CredentialComparer compares a submitted secret against stored credential
// material. Pluggable per deployment; the default is bcrypt.
type CredentialComparer interface {
	Compare(storedHash, suppliedSecret string) error
}

// BcryptComparer verifies bcrypt hashes. CompareHashAndPassword is
// constant-time over the digest.
type BcryptComparer struct{}

// Compare implements CredentialComparer.
func (BcryptComparer) Compare(storedHash, suppliedSecret string) error {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(suppliedSecret))
}

// HashPassword hashes a plaintext password with bcrypt for storage.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// PasswordVerifier checks a (username, password) pair against the credential
// store. All failure modes collapse into ErrInvalidCredentials so the
// response cannot be used for username enumeration; only store outages are
// surfaced distinctly.
type PasswordVerifier struct {
	store    UserStore
	comparer CredentialComparer
}

// NewPasswordVerifier creates a verifier backed by the given store. A nil
// comparer defaults to bcrypt.
func NewPasswordVerifier(store UserStore, comparer CredentialComparer) *PasswordVerifier {
	if comparer == nil {
		comparer = BcryptComparer{}
	}
	return &PasswordVerifier{store: store, comparer: comparer}
}

// Verify authenticates the pair and returns the user's identity.
func (v *PasswordVerifier) Verify(ctx context.Context, username, password string) (Identity, error) {
	if username == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	user, err := v.store.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Federated accounts carry a placeholder credential that never verifies.
	if strings.HasPrefix(user.PasswordHash, FederatedCredentialPrefix) {
		return Identity{}, ErrInvalidCredentials
	}

	if err := v.comparer.Compare(user.PasswordHash, password); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{Username: user.Username, Role: user.Role}, nil
}
