package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/middleware"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/rbac"
	"github.com/bcforms/formgate/pkg/sso"
	"github.com/bcforms/formgate/pkg/tokens"
)

// Server wires the HTTP API: authentication endpoints, role and assignment
// management, and audit log access, each behind the authorization gate.
type Server struct {
	router *mux.Router

	auth        *AuthHandlers
	roles       *RoleHandlers
	users       *UserHandlers
	auditAccess *AuditHandlers

	authMW *middleware.AuthMiddleware
	rbacMW *rbac.Middleware
}

// Deps carries everything the API server needs. Metrics and Recorder may
// be nil.
type Deps struct {
	Store       *rbac.Store
	Resolver    *rbac.Resolver
	Gate        *rbac.Gate
	Tokens      *tokens.Service
	Provider    IdentityProvider
	States      *sso.StateStore
	Provisioner *sso.Provisioner
	Recorder    *audit.Recorder
	Logger      *observability.Logger
	Metrics     *observability.Metrics
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		auth:        NewAuthHandlers(deps.Provider, deps.States, deps.Provisioner, deps.Tokens, deps.Store, deps.Logger),
		roles:       NewRoleHandlers(deps.Store, deps.Recorder),
		users:       NewUserHandlers(deps.Store, deps.Resolver, deps.Recorder),
		auditAccess: NewAuditHandlers(deps.Recorder),
		authMW:      middleware.NewAuthMiddleware(deps.Tokens, false, deps.Metrics),
		rbacMW:      rbac.NewMiddleware(deps.Gate),
	}

	s.router.Use(middleware.RequestID)
	if deps.Logger != nil {
		s.router.Use(observability.HTTPLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}

	s.setupRoutes()
	return s
}

// Router exposes the configured router for the HTTP server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	// Login flow is unauthenticated by nature.
	s.router.HandleFunc("/api/auth/login", s.auth.Login).Methods("GET")
	s.router.HandleFunc("/api/auth/callback", s.auth.Callback).Methods("GET")
	s.router.HandleFunc("/api/auth/refresh", s.auth.Refresh).Methods("POST")

	s.router.Handle("/api/auth/logout", s.authed(http.HandlerFunc(s.auth.Logout))).Methods("POST")
	s.router.Handle("/api/auth/me", s.authed(http.HandlerFunc(s.auth.Me))).Methods("GET")

	// Role management
	s.router.Handle("/api/roles", s.gated("roles", "create", s.roles.CreateRole)).Methods("POST")
	s.router.Handle("/api/roles", s.gated("roles", "read", s.roles.ListRoles)).Methods("GET")
	s.router.Handle("/api/roles/{id}", s.gated("roles", "read", s.roles.GetRole)).Methods("GET")
	s.router.Handle("/api/roles/{id}", s.gated("roles", "update", s.roles.UpdateRole)).Methods("PUT")
	s.router.Handle("/api/roles/{id}", s.gated("roles", "delete", s.roles.DeleteRole)).Methods("DELETE")

	// User role assignments
	s.router.Handle("/api/users/{id}/roles", s.gated("users", "read", s.users.GetUserRoles)).Methods("GET")
	s.router.Handle("/api/users/{id}/roles", s.gated("users", "manage_roles", s.users.AssignRole)).Methods("POST")
	s.router.Handle("/api/users/{id}/roles/{role_id}", s.gated("users", "manage_roles", s.users.RevokeRole)).Methods("DELETE")
	s.router.Handle("/api/users/{id}/permissions", s.gated("users", "read", s.users.GetUserPermissions)).Methods("GET")

	// Audit log access
	s.router.Handle("/api/audit", s.gated("audit", "view", s.auditAccess.Search)).Methods("GET")
	s.router.Handle("/api/audit/export", s.gated("audit", "export", s.auditAccess.Export)).Methods("GET")
}

// authed wraps a handler with bearer-token authentication
func (s *Server) authed(h http.Handler) http.Handler {
	return s.authMW.Handler(h)
}

// gated wraps a handler with authentication plus a permission requirement
func (s *Server) gated(resource, action string, h http.HandlerFunc) http.Handler {
	return s.authMW.Handler(s.rbacMW.RequirePermission(resource, action)(h))
}
