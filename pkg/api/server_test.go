package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcampus/facilities/pkg/api"
	"github.com/smartcampus/facilities/pkg/auth"
	"github.com/smartcampus/facilities/pkg/middleware"
	"github.com/smartcampus/facilities/pkg/observability"
	"github.com/smartcampus/facilities/pkg/storage"
)

// testApp is the assembled service under test: the API server behind the
// access gate, backed by in-memory stores.
type testApp struct {
	handler   http.Handler
	users     *storage.MemoryUserStore
	resources *storage.MemoryResourceStore
	tokens    *auth.TokenService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	key, err := auth.GenerateSigningKey()
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	users := storage.NewMemoryUserStore()
	resources := storage.NewMemoryResourceStore()
	tokens := auth.NewTokenService(key, time.Hour, auth.NewMemoryRevocationList())

	require.NoError(t, storage.SeedDefaultUsers(context.Background(), users, logger))

	server := api.NewServer(resources, users, tokens, logger, metrics)
	gate := middleware.NewAccessGate(tokens, middleware.DefaultPolicy(), logger, metrics)

	return &testApp{
		handler:   gate.Middleware(server),
		users:     users,
		resources: resources,
		tokens:    tokens,
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()

	rec := a.do(t, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	t.Run("admin credentials", func(t *testing.T) {
		rec := app.do(t, "POST", "/api/auth/login", "", map[string]string{
			"username": "admin", "password": "admin123",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Token    string `json:"token"`
			Username string `json:"username"`
			Role     string `json:"role"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "admin", resp.Username)
		assert.Equal(t, "ADMIN", resp.Role)

		identity, err := app.tokens.Validate(context.Background(), resp.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, identity.Role)
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		wrongPassword := app.do(t, "POST", "/api/auth/login", "", map[string]string{
			"username": "admin", "password": "nope",
		})
		unknownUser := app.do(t, "POST", "/api/auth/login", "", map[string]string{
			"username": "ghost", "password": "nope",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "admin", "admin123")

	rec := app.do(t, "POST", "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked token no longer opens protected routes.
	rec = app.do(t, "POST", "/api/resources", token, validResource())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out again with the dead token fails at the gate.
	rec = app.do(t, "POST", "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func validResource() map[string]interface{} {
	return map[string]interface{}{
		"name":     "Lecture Hall A",
		"type":     "CLASSROOM",
		"capacity": 120,
		"location": "North Building",
		"status":   "ACTIVE",
	}
}

func TestResourceLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "admin", "admin123")

	rec := app.do(t, "POST", "/api/resources", token, validResource())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created api.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	path := fmt.Sprintf("/api/resources/%d", created.ID)

	t.Run("anonymous read", func(t *testing.T) {
		rec := app.do(t, "GET", path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var fetched api.Resource
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
		assert.Equal(t, "Lecture Hall A", fetched.Name)
	})

	t.Run("anonymous list", func(t *testing.T) {
		rec := app.do(t, "GET", "/api/resources", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var listed []api.Resource
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
		assert.Len(t, listed, 1)
	})

	t.Run("update", func(t *testing.T) {
		body := validResource()
		body["status"] = "MAINTENANCE"
		rec := app.do(t, "PUT", path, token, body)
		require.Equal(t, http.StatusOK, rec.Code)

		var updated api.Resource
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, api.StatusMaintenance, updated.Status)
		assert.Equal(t, created.ID, updated.ID)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(t, "DELETE", path, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestResourceWritePermissions(t *testing.T) {
	app := newTestApp(t)

	t.Run("anonymous write", func(t *testing.T) {
		rec := app.do(t, "POST", "/api/resources", "", validResource())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin write", func(t *testing.T) {
		token := app.login(t, "user", "user123")
		rec := app.do(t, "POST", "/api/resources", token, validResource())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestResourceValidation(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "admin", "admin123")

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"blank name", func(b map[string]interface{}) { b["name"] = "  " }},
		{"missing type", func(b map[string]interface{}) { delete(b, "type") }},
		{"negative capacity", func(b map[string]interface{}) { b["capacity"] = -1 }},
		{"unknown status", func(b map[string]interface{}) { b["status"] = "BROKEN" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validResource()
			tt.mutate(body)
			rec := app.do(t, "POST", "/api/resources", token, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestResourceNotFound(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "admin", "admin123")

	assert.Equal(t, http.StatusNotFound, app.do(t, "GET", "/api/resources/99", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, "PUT", "/api/resources/99", token, validResource()).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, "DELETE", "/api/resources/99", token, nil).Code)
}

func TestResourceSearch(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "admin", "admin123")

	seed := []map[string]interface{}{
		{"name": "Hall", "type": "CLASSROOM", "capacity": 120, "location": "North", "status": "ACTIVE"},
		{"name": "Lab", "type": "LAB", "capacity": 24, "location": "South", "status": "ACTIVE"},
	}
	for _, body := range seed {
		require.Equal(t, http.StatusCreated, app.do(t, "POST", "/api/resources", token, body).Code)
	}

	t.Run("by type and capacity", func(t *testing.T) {
		rec := app.do(t, "GET", "/api/resources/search?type=CLASSROOM&min_capacity=100", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var results []api.Resource
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "Hall", results[0].Name)
	})

	t.Run("bad min_capacity", func(t *testing.T) {
		rec := app.do(t, "GET", "/api/resources/search?min_capacity=lots", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestResourceAnalytics(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "admin", "admin123")

	bodies := []map[string]interface{}{
		{"name": "Hall", "type": "CLASSROOM", "capacity": 120, "location": "North", "status": "ACTIVE"},
		{"name": "Gym", "type": "SPORTS", "capacity": 300, "location": "East", "status": "OUT_OF_SERVICE"},
	}
	for _, body := range bodies {
		require.Equal(t, http.StatusCreated, app.do(t, "POST", "/api/resources", token, body).Code)
	}

	rec := app.do(t, "GET", "/api/resources/analytics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var analytics api.ResourceAnalytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analytics))
	assert.Equal(t, int64(2), analytics.TotalResources)
	assert.Equal(t, int64(1), analytics.ActiveResources)
	assert.Equal(t, int64(1), analytics.OutOfServiceResources)
	assert.Equal(t, int64(1), analytics.ResourcesByType["SPORTS"])
}

func TestRootAndHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "GET", "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var welcome map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &welcome))
	assert.Equal(t, "ok", welcome["status"])
	assert.NotEmpty(t, welcome["version"])

	assert.Equal(t, http.StatusOK, app.do(t, "GET", "/healthz", "", nil).Code)
}

func TestUnknownRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, "GET", "/api/unknown", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := app.login(t, "user", "user123")
	rec = app.do(t, "GET", "/api/unknown", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
