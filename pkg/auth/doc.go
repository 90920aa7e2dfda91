// Package auth implements credential verification and session tokens for the
// campus facility registry.
//
// # Overview
//
// Three pieces make up the core:
//
// PasswordVerifier checks a submitted (username, password) pair against the
// credential store using a pluggable comparer (bcrypt by default). Every
// failure mode is reported as ErrInvalidCredentials so responses cannot be
// used to enumerate usernames.
//
// TokenService mints and validates compact signed session tokens (JWT with
// HMAC-SHA-256). Tokens are self-contained: subject, role, issued-at and
// expiry travel inside the token, so validation needs no session store. The
// role embedded at mint time is authoritative for the token's lifetime.
//
//	svc := auth.NewTokenService(key, 24*time.Hour, revocation)
//	token, err := svc.Mint(auth.Identity{Username: "admin", Role: auth.RoleAdmin})
//	identity, err := svc.Validate(ctx, token)
//
// RevocationList closes the staleness window for logout: revoked token IDs
// are denied until the token would have expired on its own. Two
// implementations exist, an in-process map and a Redis-backed list for
// multi-instance deployments.
//
// # Roles
//
// Role is a closed two-value enumeration, RoleAdmin and RoleUser. The access
// policy in pkg/middleware matches roles exactly; there is no hierarchy.
//
// # Related Packages
//
//   - pkg/sso: federated login and just-in-time user provisioning
//   - pkg/middleware: bearer token extraction and the access policy table
//   - pkg/storage: the SQL-backed UserStore implementation
package auth
