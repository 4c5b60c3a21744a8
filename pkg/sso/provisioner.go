package sso

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/catalog"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/rbac"
	"github.com/bcforms/formgate/pkg/tokens"
)

// federatedRoleNames maps provider-side role names to local role names.
// Aliases cover common naming drift between the identity provider's realm
// and this service.
var federatedRoleNames = map[string]string{
	"admin":         catalog.RoleAdmin,
	"administrator": catalog.RoleAdmin,
	"staff_manager": catalog.RoleStaffManager,
	"manager":       catalog.RoleStaffManager,
	"reviewer":      catalog.RoleReviewer,
	"approver":      catalog.RoleReviewer,
	"staff_viewer":  catalog.RoleStaffViewer,
	"viewer":        catalog.RoleStaffViewer,
}

// MapFederatedRoles translates provider role names into local role names,
// dropping names with no local counterpart and deduplicating the result.
func MapFederatedRoles(providerRoles []string) []string {
	var local []string
	seen := make(map[string]bool)
	for _, name := range providerRoles {
		mapped, ok := federatedRoleNames[strings.ToLower(name)]
		if !ok || seen[mapped] {
			continue
		}
		seen[mapped] = true
		local = append(local, mapped)
	}
	return local
}

// Provisioner turns a completed federated login into a local session: it
// upserts the user, syncs role assignments to what the provider reported,
// and mints application tokens.
type Provisioner struct {
	store    *rbac.Store
	tokens   *tokens.Service
	recorder audit.Sink
	logger   *observability.Logger
}

// NewProvisioner creates a provisioner. The recorder may be nil.
func NewProvisioner(store *rbac.Store, tokenService *tokens.Service, recorder audit.Sink, logger *observability.Logger) *Provisioner {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Provisioner{
		store:    store,
		tokens:   tokenService,
		recorder: recorder,
		logger:   logger,
	}
}

// Login provisions the federated user and returns a session with fresh
// application tokens. Role assignments are resynchronized from the
// provider's role list on every login; a user whose provider roles map to
// nothing gets the viewer role so they can at least sign in.
func (p *Provisioner) Login(ctx context.Context, fu *FederatedUser) (*Session, error) {
	if fu == nil || fu.Email == "" {
		return nil, fmt.Errorf("federated user has no email")
	}

	user, created, err := p.store.UpsertUserByEmail(ctx, fu.Email, fu.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}
	if created {
		p.logger.WithFields(map[string]interface{}{
			"user_id": user.ID,
			"email":   user.Email,
		}).Info("provisioned new user from federated login")
	}

	roleNames := MapFederatedRoles(fu.Roles)
	if len(roleNames) == 0 {
		roleNames = []string{catalog.RoleStaffViewer}
		p.logger.WithField("email", fu.Email).Warn("no mappable roles from identity provider, defaulting to staff_viewer")
	}

	if err := p.syncRoles(ctx, user.ID, roleNames); err != nil {
		return nil, fmt.Errorf("failed to sync roles: %w", err)
	}

	roles, err := p.store.GetUserRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}
	assigned := make([]string, 0, len(roles))
	for _, r := range roles {
		assigned = append(assigned, r.Name)
	}

	accessToken, err := p.tokens.IssueAccessToken(user.ID, user.Email, user.Name, assigned, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refreshToken, err := p.tokens.IssueRefreshToken(user.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if p.recorder != nil {
		p.recorder.Record(ctx, audit.Entry{
			EntityType: audit.EntityTypeAuth,
			EntityID:   user.ID,
			Action:     audit.ActionLogin,
			UserID:     &user.ID,
			NewValues: map[string]interface{}{
				"email": user.Email,
				"roles": assigned,
			},
			CreatedAt: time.Now().UTC(),
		})
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.tokens.AccessTTLSeconds(),
		User: SessionUser{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Roles: assigned,
		},
	}, nil
}

// syncRoles makes the user's active assignments match want exactly: roles
// the provider no longer grants are revoked, new ones are assigned.
func (p *Provisioner) syncRoles(ctx context.Context, userID string, want []string) error {
	wanted := make(map[string]bool, len(want))
	for _, name := range want {
		wanted[name] = true
	}

	current, err := p.store.GetUserAssignments(ctx, userID)
	if err != nil {
		return err
	}

	held := make(map[string]bool)
	for _, a := range current {
		role, err := p.store.GetRoleByID(ctx, a.RoleID)
		if err != nil {
			if errors.Is(err, rbac.ErrRoleNotFound) {
				continue
			}
			return err
		}
		if !wanted[role.Name] {
			if err := p.store.RevokeRole(ctx, userID, role.ID); err != nil && !errors.Is(err, rbac.ErrAssignmentNotFound) {
				return err
			}
			continue
		}
		held[role.Name] = true
	}

	for _, name := range want {
		if held[name] {
			continue
		}
		role, err := p.store.GetRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, rbac.ErrRoleNotFound) {
				p.logger.WithField("role", name).Warn("federated role has no local counterpart")
				continue
			}
			return err
		}
		err = p.store.AssignRole(ctx, &rbac.RoleAssignment{UserID: userID, RoleID: role.ID})
		if err != nil && !errors.Is(err, rbac.ErrDuplicateAssignment) {
			return err
		}
	}

	return nil
}
