package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bcforms/formgate/pkg/contextkeys"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/tokens"
)

// AuthMiddleware authenticates requests by validating the bearer token and
// placing the resulting principal in the request context.
type AuthMiddleware struct {
	service  *tokens.Service
	optional bool // If true, allow requests without a token
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates new authentication middleware. The metrics
// argument may be nil.
func NewAuthMiddleware(service *tokens.Service, optional bool, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		service:  service,
		optional: optional,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with bearer-token authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		principal, err := m.service.Validate(parts[1], tokens.TypeAccess)
		if err != nil {
			if m.metrics != nil {
				m.metrics.TokenValidationFailuresTotal.WithLabelValues(failureKind(err)).Inc()
			}
			unauthorizedResponse(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.PrincipalKey, principal)
		ctx = context.WithValue(ctx, contextkeys.UserIDKey, principal.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPrincipal extracts the authenticated principal from the request, or nil
func GetPrincipal(r *http.Request) *tokens.Principal {
	principal, ok := r.Context().Value(contextkeys.PrincipalKey).(*tokens.Principal)
	if !ok {
		return nil
	}
	return principal
}

// failureKind maps a token validation error to a metric label
func failureKind(err error) string {
	switch {
	case errors.Is(err, tokens.ErrExpired):
		return "expired"
	case errors.Is(err, tokens.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, tokens.ErrBadIssuer):
		return "bad_issuer"
	case errors.Is(err, tokens.ErrBadAudience):
		return "bad_audience"
	case errors.Is(err, tokens.ErrTypeMismatch):
		return "type_mismatch"
	default:
		return "malformed"
	}
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
