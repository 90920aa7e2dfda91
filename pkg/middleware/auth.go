package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/smartcampus/facilities/pkg/auth"
	"github.com/smartcampus/facilities/pkg/contextkeys"
	"github.com/smartcampus/facilities/pkg/httputil"
	"github.com/smartcampus/facilities/pkg/observability"
)

// AccessGate authenticates requests and enforces the route policy table.
// Callers presenting no token and callers presenting an invalid token get
// the same anonymous treatment, so a probe cannot tell a bad token from a
// missing one.
type AccessGate struct {
	tokens  *auth.TokenService
	policy  Policy
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAccessGate creates a gate over the given token service and policy.
func NewAccessGate(tokens *auth.TokenService, policy Policy, logger *observability.Logger, metrics *observability.Metrics) *AccessGate {
	return &AccessGate{
		tokens:  tokens,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// Middleware resolves the caller's identity and applies the policy table
// before the request reaches its handler.
func (g *AccessGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok, err := g.resolveIdentity(r)
		if err != nil {
			g.logger.WithError(err).Error("Token validation backend unavailable")
			httputil.WriteServiceUnavailable(w, "authentication temporarily unavailable")
			return
		}

		level := g.policy.Evaluate(r.Method, r.URL.Path)

		if level != AccessAnyone && !ok {
			g.countVerdict("unauthorized")
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if ok && !roleSatisfies(level, identity.Role) {
			g.countVerdict("forbidden")
			g.logger.WithFields(map[string]interface{}{
				"username": identity.Username,
				"path":     r.URL.Path,
				"method":   r.Method,
			}).Warn("Access denied by policy")
			httputil.WriteForbidden(w, "insufficient permissions")
			return
		}

		g.countVerdict("allowed")
		if ok {
			r = r.WithContext(contextkeys.WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

// resolveIdentity extracts and validates the bearer token. The second return
// is false for anonymous callers, which covers both the missing-header and
// invalid-token cases. An error is returned only when the revocation backend
// cannot be reached.
func (g *AccessGate) resolveIdentity(r *http.Request) (auth.Identity, bool, error) {
	tokenText, ok := BearerToken(r)
	if !ok {
		return auth.Identity{}, false, nil
	}

	identity, err := g.tokens.Validate(r.Context(), tokenText)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			return auth.Identity{}, false, err
		}
		g.countValidation("invalid")
		return auth.Identity{}, false, nil
	}

	g.countValidation("valid")
	return identity, true, nil
}

func (g *AccessGate) countVerdict(verdict string) {
	if g.metrics != nil {
		g.metrics.AccessVerdictsTotal.WithLabelValues(verdict).Inc()
	}
}

func (g *AccessGate) countValidation(outcome string) {
	if g.metrics != nil {
		g.metrics.TokenValidationsTotal.WithLabelValues(outcome).Inc()
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(auth.Identity)
	return identity, ok
}

// RequireAuthenticated wraps a handler so it only runs for authenticated
// callers. Route-level guard for handlers registered outside the policy
// table.
func RequireAuthenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next(w, r)
	}
}

// RequireRole wraps a handler so it only runs for callers holding the given
// role.
func RequireRole(role auth.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if identity.Role != role {
			httputil.WriteForbidden(w, "insufficient permissions")
			return
		}
		next(w, r)
	}
}
