package sso

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/smartcampus/facilities/pkg/config"
)

// Provider abstracts the upstream identity provider so handlers and tests do
// not depend on a live OIDC discovery endpoint.
type Provider interface {
	// AuthCodeURL builds the provider authorization URL for the given
	// anti-forgery state.
	AuthCodeURL(state string) string
	// Authenticate exchanges the authorization code and returns the
	// asserted identity.
	Authenticate(ctx context.Context, code string) (ExternalIdentity, error)
}

// OIDCProvider implements Provider over an OpenID Connect issuer.
type OIDCProvider struct {
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewOIDCProvider discovers the issuer and builds the provider.
func NewOIDCProvider(ctx context.Context, cfg config.OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
	}

	return &OIDCProvider{
		provider:     provider,
		verifier:     verifier,
		oauth2Config: oauth2Config,
	}, nil
}

// AuthCodeURL implements Provider.
func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Authenticate implements Provider. It exchanges the code, verifies the ID
// token signature and audience, and maps the standard claims.
func (p *OIDCProvider) Authenticate(ctx context.Context, code string) (ExternalIdentity, error) {
	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
	}

	// Some providers omit claims from the ID token and only serve them
	// from the userinfo endpoint.
	if claims.Email == "" {
		if userInfo, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(oauth2Token)); err == nil {
			var info struct {
				Email string `json:"email"`
				Name  string `json:"name"`
			}
			if err := userInfo.Claims(&info); err == nil {
				if claims.Email == "" {
					claims.Email = info.Email
				}
				if claims.Name == "" {
					claims.Name = info.Name
				}
			}
		}
	}

	return NewExternalIdentity(claims.Email, claims.Name)
}
