package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL bounds token validity when no TTL is configured.
const DefaultTokenTTL = 24 * time.Hour

// SigningKeyLength is the size of a generated HMAC signing key (256 bits).
const SigningKeyLength = 32

// GenerateSigningKey returns fresh random key material for HS256 signing.
// Intended for deployments that do not configure a key: tokens then survive
// only until the process restarts.
func GenerateSigningKey() ([]byte, error) {
	key := make([]byte, SigningKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

// Claims is the payload embedded in session tokens. Role is captured at mint
// time and is authoritative for the token's lifetime.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// RevocationList tracks token IDs that have been revoked before natural
// expiry (logout). Implementations live in revocation.go.
type RevocationList interface {
	// Revoke marks the token ID as revoked until the given expiry.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	// IsRevoked reports whether the token ID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenService mints and validates compact signed session tokens (JWT,
// HS256). The signing key is process-wide and immutable after construction;
// issuer and verifier are the same process, so a symmetric scheme suffices.
type TokenService struct {
	key        []byte
	ttl        time.Duration
	revocation RevocationList
	now        func() time.Time
}

// NewTokenService creates a token service with the given signing key and TTL.
// A nil revocation list disables revocation checks; ttl <= 0 falls back to
// DefaultTokenTTL.
func NewTokenService(key []byte, ttl time.Duration, revocation RevocationList) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		key:        key,
		ttl:        ttl,
		revocation: revocation,
		now:        time.Now,
	}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Mint creates a signed token for the identity.
func (s *TokenService) Mint(identity Identity) (string, error) {
	if identity.Username == "" {
		return "", fmt.Errorf("cannot mint token without subject")
	}
	if !identity.Role.Valid() {
		return "", fmt.Errorf("cannot mint token with role %q", identity.Role)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		Role: string(identity.Role),
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns the embedded identity.
// Malformed input, a bad signature, expiry, and revocation are all reported
// uniformly as ErrTokenInvalid; callers must not leak which one occurred.
func (s *TokenService) Validate(ctx context.Context, tokenText string) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenText, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrTokenInvalid
	}

	role, err := ParseRole(claims.Role)
	if err != nil || claims.Subject == "" {
		return Identity{}, ErrTokenInvalid
	}

	if s.revocation != nil && claims.ID != "" {
		revoked, err := s.revocation.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if revoked {
			return Identity{}, ErrTokenInvalid
		}
	}

	return Identity{Username: claims.Subject, Role: role}, nil
}

// Revoke invalidates a previously minted token before its natural expiry.
// Validating the token text first keeps forged input out of the list.
func (s *TokenService) Revoke(ctx context.Context, tokenText string) error {
	if s.revocation == nil {
		return errors.New("revocation is not enabled")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenText, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.ID == "" {
		return ErrTokenInvalid
	}

	return s.revocation.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
