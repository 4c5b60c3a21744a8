package api

import (
	"context"
	"net/http"

	"github.com/bcforms/formgate/pkg/httputil"
	"github.com/bcforms/formgate/pkg/middleware"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/rbac"
	"github.com/bcforms/formgate/pkg/sso"
	"github.com/bcforms/formgate/pkg/tokens"
)

// IdentityProvider is the slice of the OIDC provider the auth handlers
// consume: redirect-URL construction and code exchange.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*sso.FederatedUser, error)
}

// AuthHandlers implements the login, refresh and identity endpoints.
type AuthHandlers struct {
	provider    IdentityProvider
	states      *sso.StateStore
	provisioner *sso.Provisioner
	tokens      *tokens.Service
	store       *rbac.Store
	logger      *observability.Logger
}

// NewAuthHandlers creates the authentication handlers.
func NewAuthHandlers(provider IdentityProvider, states *sso.StateStore, provisioner *sso.Provisioner, tokenService *tokens.Service, store *rbac.Store, logger *observability.Logger) *AuthHandlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &AuthHandlers{
		provider:    provider,
		states:      states,
		provisioner: provisioner,
		tokens:      tokenService,
		store:       store,
		logger:      logger,
	}
}

// Login starts the OIDC flow: it mints a state token and redirects to the
// identity provider's authorization endpoint.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to issue login state")
		httputil.WriteInternalError(w, err)
		return
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the OIDC flow: it verifies and consumes the state,
// exchanges the authorization code, provisions the user, and returns
// application tokens.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		httputil.WriteBadRequest(w, "code and state are required")
		return
	}

	ok, err := h.states.Consume(ctx, state)
	if err != nil {
		h.logger.WithError(err).Error("failed to consume login state")
		httputil.WriteInternalError(w, err)
		return
	}
	if !ok {
		h.logger.Warn("login callback with invalid or expired state")
		httputil.WriteBadRequest(w, "Invalid state parameter. Please try logging in again.")
		return
	}

	fu, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.WithError(err).Warn("authorization code exchange failed")
		httputil.WriteUnauthorized(w, "Authentication failed")
		return
	}

	session, err := h.provisioner.Login(ctx, fu)
	if err != nil {
		h.logger.WithError(err).Error("failed to provision federated user")
		httputil.WriteInternalError(w, err)
		return
	}

	h.logger.WithField("email", session.User.Email).Info("user authenticated")
	httputil.WriteSuccess(w, session)
}

// Refresh exchanges a valid refresh token for a new access token, rebinding
// the user's current email, name and roles.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "refresh_token is required")
		return
	}

	principal, err := h.tokens.Validate(req.RefreshToken, tokens.TypeRefresh)
	if err != nil {
		httputil.WriteUnauthorized(w, "Invalid refresh token")
		return
	}

	user, err := h.store.GetUserByID(ctx, principal.Subject)
	if err != nil || !user.IsActive {
		httputil.WriteUnauthorized(w, "User not found or inactive")
		return
	}

	roles, err := h.store.GetUserRoles(ctx, user.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}

	accessToken, err := h.tokens.RefreshAccessToken(req.RefreshToken, user.ID, user.Email, user.Name, roleNames)
	if err != nil {
		httputil.WriteUnauthorized(w, "Invalid refresh token")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   h.tokens.AccessTTLSeconds(),
	})
}

// Logout acknowledges a logout. Tokens are stateless, so the client simply
// discards them; the endpoint exists so the action lands in the request log.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if principal := middleware.GetPrincipal(r); principal != nil {
		h.logger.WithField("user_id", principal.Subject).Info("user logged out")
	}

	httputil.WriteSuccess(w, map[string]string{
		"message": "Successfully logged out",
		"detail":  "Please discard your tokens",
	})
}

// Me returns the authenticated user's stored profile plus the remaining
// lifetime of the presented access token.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.store.GetUserByID(ctx, principal.Subject)
	if err != nil {
		httputil.WriteNotFound(w, "User not found")
		return
	}

	roles, err := h.store.GetUserRoles(ctx, user.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}

	resp := map[string]interface{}{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"roles":      roleNames,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}

	if token := bearerToken(r); token != "" {
		if remaining, err := h.tokens.RemainingTTL(token, tokens.TypeAccess); err == nil {
			resp["token_expires_in"] = remaining
		}
	}

	httputil.WriteSuccess(w, resp)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
