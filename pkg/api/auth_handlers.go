package api

import (
	"errors"
	"net/http"

	"github.com/smartcampus/facilities/pkg/auth"
	"github.com/smartcampus/facilities/pkg/httputil"
	"github.com/smartcampus/facilities/pkg/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// handleLogin authenticates a username/password pair and returns a signed
// token. The failure response carries no hint of whether the username
// exists.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	identity, err := s.verifier.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			s.countLogin("error")
			s.logger.WithError(err).Error("Credential store unavailable")
			httputil.WriteServiceUnavailable(w, "login temporarily unavailable")
			return
		}
		s.countLogin("invalid_credentials")
		httputil.WriteUnauthorized(w, "invalid username or password")
		return
	}

	if err := s.users.TouchLogin(r.Context(), identity.Username); err != nil {
		s.logger.WithError(err).WithField("username", identity.Username).Warn("Failed to record login time")
	}

	token, err := s.tokens.Mint(identity)
	if err != nil {
		s.countLogin("error")
		s.logger.WithError(err).Error("Failed to mint token")
		httputil.WriteInternalError(w, err)
		return
	}

	s.countLogin("success")
	if s.metrics != nil {
		s.metrics.TokensMintedTotal.WithLabelValues("password").Inc()
	}
	s.logger.WithField("username", identity.Username).Info("User logged in")

	httputil.WriteSuccess(w, loginResponse{
		Token:    token,
		Username: identity.Username,
		Role:     string(identity.Role),
	})
}

// handleLogout revokes the presented token. The token stays invalid until
// its natural expiry even if presented again.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	tokenText, ok := middleware.BearerToken(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	err := s.tokens.Revoke(r.Context(), tokenText)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			s.logger.WithError(err).Error("Revocation store unavailable")
			httputil.WriteServiceUnavailable(w, "logout temporarily unavailable")
			return
		}
		httputil.WriteUnauthorized(w, "invalid token")
		return
	}

	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		s.logger.WithField("username", identity.Username).Info("User logged out")
	}
	httputil.WriteNoContent(w)
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}
