package rbac

import (
	"errors"
	"net/http"

	"github.com/bcforms/formgate/pkg/catalog"
	"github.com/bcforms/formgate/pkg/contextkeys"
	"github.com/bcforms/formgate/pkg/tokens"
)

// Middleware wraps the gate for use in HTTP handler chains. It expects the
// authentication middleware to have placed the principal in the request
// context.
type Middleware struct {
	gate *Gate
}

// NewMiddleware creates permission-checking HTTP middleware over the gate
func NewMiddleware(gate *Gate) *Middleware {
	return &Middleware{gate: gate}
}

// RequirePermission requires the permission registered for (resource, action)
func (m *Middleware) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFrom(r)
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			err := m.gate.RequirePermission(r.Context(), principal, resource, action)
			if err != nil {
				writeGateError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny requires at least one of the permissions
func (m *Middleware) RequireAny(permissions ...catalog.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFrom(r)
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			if err := m.gate.RequireAny(r.Context(), principal, permissions...); err != nil {
				writeGateError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll requires every one of the permissions
func (m *Middleware) RequireAll(permissions ...catalog.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFrom(r)
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			if err := m.gate.RequireAll(r.Context(), principal, permissions...); err != nil {
				writeGateError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func principalFrom(r *http.Request) (*tokens.Principal, bool) {
	principal, ok := r.Context().Value(contextkeys.PrincipalKey).(*tokens.Principal)
	return principal, ok && principal != nil
}

// writeGateError maps gate failures to HTTP status codes: a denial is 403,
// an unregistered resource/action pair is a server misconfiguration.
func writeGateError(w http.ResponseWriter, err error) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		http.Error(w, "Insufficient permissions: "+denied.Permission, http.StatusForbidden)
		return
	}

	var unknown *catalog.ErrUnknownResourceAction
	if errors.As(err, &unknown) {
		http.Error(w, "Permission misconfigured", http.StatusInternalServerError)
		return
	}

	http.Error(w, "Permission check failed", http.StatusInternalServerError)
}
