package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/smartcampus/facilities/pkg/auth"
	"github.com/smartcampus/facilities/pkg/httputil"
	"github.com/smartcampus/facilities/pkg/observability"
)

const stateCookieName = "sso_state"

// Handler serves the federated login flow: it initiates the provider
// redirect, completes the callback, provisions first-time accounts, and
// hands the browser back to the frontend with a freshly minted token.
type Handler struct {
	provider    Provider
	users       auth.UserStore
	tokens      *auth.TokenService
	frontendURL string
	logger      *observability.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewHandler creates a federated login handler.
func NewHandler(provider Provider, users auth.UserStore, tokens *auth.TokenService,
	frontendURL string, logger *observability.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		provider:    provider,
		users:       users,
		tokens:      tokens,
		frontendURL: frontendURL,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// RegisterRoutes mounts the federated login endpoints.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/oauth2/login", h.HandleLogin).Methods("GET")
	router.HandleFunc("/api/auth/oauth2/callback", h.HandleCallback).Methods("GET")
}

// HandleLogin starts the provider flow with a fresh anti-forgery state.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	stateBytes := make([]byte, 32)
	if _, err := rand.Read(stateBytes); err != nil {
		h.logger.WithError(err).Error("Failed to generate login state")
		httputil.WriteInternalError(w, err)
		return
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback completes the provider flow and redirects to the frontend.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if errCode := r.URL.Query().Get("error"); errCode != "" {
		h.logger.WithField("error", errCode).Warn("Provider returned an error")
		httputil.WriteBadRequest(w, "provider rejected the login")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		httputil.WriteBadRequest(w, "missing state cookie")
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		httputil.WriteBadRequest(w, "invalid state parameter")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "missing authorization code")
		return
	}

	identity, err := h.provider.Authenticate(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).Error("Provider authentication failed")
		if errors.Is(err, ErrMissingEmail) {
			httputil.WriteBadGateway(w, "provider did not supply an email address")
			return
		}
		httputil.WriteBadGateway(w, "provider authentication failed")
		return
	}

	user, token, err := h.CompleteLogin(r.Context(), identity)
	if err != nil {
		h.logger.WithError(err).Error("Failed to complete federated login")
		if errors.Is(err, auth.ErrStoreUnavailable) {
			httputil.WriteServiceUnavailable(w, "login temporarily unavailable")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	http.Redirect(w, r, h.frontendRedirect(user, token), http.StatusFound)
}

// CompleteLogin links the asserted identity to a local account, creating one
// on first login, and mints a token for it. Concurrent first logins for the
// same email are resolved by the store's uniqueness guarantee: losers of the
// create race re-read the winner's row.
func (h *Handler) CompleteLogin(ctx context.Context, identity ExternalIdentity) (*auth.User, string, error) {
	email := identity.Email()
	if email == "" {
		return nil, "", ErrMissingEmail
	}

	user, err := h.users.FindByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		user, err = h.provisionUser(ctx, identity)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", auth.ErrStoreUnavailable, err)
	}

	if err := h.users.TouchLogin(ctx, user.Username); err != nil {
		h.logger.WithError(err).WithField("username", user.Username).Warn("Failed to record login time")
	}

	token, err := h.tokens.Mint(auth.Identity{Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint token: %w", err)
	}

	if h.metrics != nil {
		h.metrics.TokensMintedTotal.WithLabelValues("federated").Inc()
	}
	h.logger.WithFields(map[string]interface{}{
		"username": user.Username,
		"role":     string(user.Role),
	}).Info("Federated login completed")

	return user, token, nil
}

// provisionUser creates the local account for a first-time federated login.
// The stored credential is a non-verifiable placeholder, so the account can
// never be entered with a password.
func (h *Handler) provisionUser(ctx context.Context, identity ExternalIdentity) (*auth.User, error) {
	email := identity.Email()

	displayName := identity.DisplayName()
	if strings.TrimSpace(displayName) == "" {
		displayName = email[:strings.Index(email+"@", "@")]
	}

	user := &auth.User{
		Username:     email,
		PasswordHash: fmt.Sprintf("%s%d", auth.FederatedCredentialPrefix, h.now().UnixMilli()),
		Role:         auth.RoleUser,
		Email:        email,
		DisplayName:  displayName,
	}

	err := h.users.Create(ctx, user)
	if errors.Is(err, auth.ErrUserExists) {
		// Another login for the same email won the race.
		return h.users.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// frontendRedirect builds the token-bearing frontend URL.
func (h *Handler) frontendRedirect(user *auth.User, token string) string {
	query := url.Values{}
	query.Set("token", token)
	query.Set("username", user.Username)
	query.Set("role", string(user.Role))
	query.Set("name", user.DisplayName)
	query.Set("email", user.Email)
	return h.frontendURL + "?" + query.Encode()
}
