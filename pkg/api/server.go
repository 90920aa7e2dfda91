package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smartcampus/facilities/pkg/auth"
	"github.com/smartcampus/facilities/pkg/httputil"
	"github.com/smartcampus/facilities/pkg/observability"
)

// Version is the API version reported by the root endpoint.
const Version = "1.0.0"

// Server hosts the campus facilities HTTP API.
type Server struct {
	router    *mux.Router
	resources ResourceStore
	users     auth.UserStore
	verifier  *auth.PasswordVerifier
	tokens    *auth.TokenService
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewServer creates the API server and wires its routes.
func NewServer(resources ResourceStore, users auth.UserStore, tokens *auth.TokenService,
	logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		resources: resources,
		users:     users,
		verifier:  auth.NewPasswordVerifier(users, nil),
		tokens:    tokens,
		logger:    logger,
		metrics:   metrics,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// Authentication
	s.router.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")
	s.router.HandleFunc("/api/auth/logout", s.handleLogout).Methods("POST")

	// Resource catalog. Fixed paths register before the {id} wildcard.
	s.router.HandleFunc("/api/resources/search", s.searchResources).Methods("GET")
	s.router.HandleFunc("/api/resources/analytics", s.resourceAnalytics).Methods("GET")
	s.router.HandleFunc("/api/resources", s.createResource).Methods("POST")
	s.router.HandleFunc("/api/resources", s.listResources).Methods("GET")
	s.router.HandleFunc("/api/resources/{id}", s.getResource).Methods("GET")
	s.router.HandleFunc("/api/resources/{id}", s.updateResource).Methods("PUT")
	s.router.HandleFunc("/api/resources/{id}", s.deleteResource).Methods("DELETE")
}

// Router exposes the underlying router so the entrypoint can wrap it in the
// middleware chain.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterFederation mounts the federated login routes onto this server.
type federationRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

func (s *Server) RegisterFederation(handler federationRegistrar) {
	handler.RegisterRoutes(s.router)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{
		"message": "Smart Campus Facilities API",
		"status":  "ok",
		"version": Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "healthy"})
}
