package sso

import "errors"

// ErrMissingEmail is returned when the upstream provider asserts an identity
// without an email address. Email is the account linkage key, so such
// assertions cannot be provisioned.
var ErrMissingEmail = errors.New("identity provider returned no email")

// ExternalIdentity is an identity asserted by an upstream provider.
type ExternalIdentity interface {
	// Email returns the verified email address. Never empty.
	Email() string
	// DisplayName returns the human-readable name. May be empty.
	DisplayName() string
}

// externalIdentity is the provider-agnostic ExternalIdentity carrier.
type externalIdentity struct {
	email       string
	displayName string
}

func (e externalIdentity) Email() string       { return e.email }
func (e externalIdentity) DisplayName() string { return e.displayName }

// NewExternalIdentity builds an ExternalIdentity from raw provider claims.
// Used by provider adapters and tests.
func NewExternalIdentity(email, displayName string) (ExternalIdentity, error) {
	if email == "" {
		return nil, ErrMissingEmail
	}
	return externalIdentity{email: email, displayName: displayName}, nil
}
