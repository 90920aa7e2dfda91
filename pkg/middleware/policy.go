package middleware

import (
	"strings"

	"github.com/smartcampus/facilities/pkg/auth"
)

// AccessLevel describes who may reach a route.
type AccessLevel string

const (
	// AccessAnyone admits every caller, authenticated or not.
	AccessAnyone AccessLevel = "anyone"
	// AccessAuthenticated admits any caller with a valid token.
	AccessAuthenticated AccessLevel = "authenticated"
	// AccessAdmin admits only callers holding the ADMIN role.
	AccessAdmin AccessLevel = "admin"
)

// PolicyRule binds a path and optional method to an access level. A
// PathPrefix of "/" matches only the root path exactly; every other prefix
// matches by strings.HasPrefix. An empty Method matches all methods.
type PolicyRule struct {
	PathPrefix string
	Method     string
	Access     AccessLevel
}

// Matches reports whether the rule applies to the given method and path.
func (r PolicyRule) Matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if r.PathPrefix == "/" {
		return path == "/"
	}
	return strings.HasPrefix(path, r.PathPrefix)
}

// Policy is an ordered rule table. The first matching rule wins; requests
// matching no rule require authentication.
type Policy []PolicyRule

// Evaluate returns the access level for a request.
func (p Policy) Evaluate(method, path string) AccessLevel {
	for _, rule := range p {
		if rule.Matches(method, path) {
			return rule.Access
		}
	}
	return AccessAuthenticated
}

// DefaultPolicy is the access table for the campus facilities API. Reads on
// the resource catalog are public; writes are reserved for administrators.
func DefaultPolicy() Policy {
	return Policy{
		{PathPrefix: "/api/auth/logout", Access: AccessAuthenticated},
		{PathPrefix: "/api/auth/", Access: AccessAnyone},
		{PathPrefix: "/api/resources", Method: "GET", Access: AccessAnyone},
		{PathPrefix: "/api/resources", Access: AccessAdmin},
		{PathPrefix: "/metrics", Access: AccessAnyone},
		{PathPrefix: "/healthz", Access: AccessAnyone},
		{PathPrefix: "/", Method: "GET", Access: AccessAnyone},
	}
}

// roleSatisfies reports whether the given role meets the required level.
func roleSatisfies(level AccessLevel, role auth.Role) bool {
	switch level {
	case AccessAnyone, AccessAuthenticated:
		return true
	case AccessAdmin:
		return role == auth.RoleAdmin
	default:
		return false
	}
}
