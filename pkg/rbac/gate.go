package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/catalog"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/tokens"
)

// Gate is the single enforcement point for permission checks.
//
// Every denial and every successful check of a sensitive permission is
// recorded through the audit sink; successful checks of ordinary
// permissions are not, to keep audit volume bounded.
type Gate struct {
	resolver *Resolver
	store    *Store
	recorder audit.Sink
	metrics  *observability.Metrics
}

// NewGate creates a new authorization gate. The recorder and metrics
// arguments may be nil.
func NewGate(resolver *Resolver, store *Store, recorder audit.Sink, metrics *observability.Metrics) *Gate {
	return &Gate{
		resolver: resolver,
		store:    store,
		recorder: recorder,
		metrics:  metrics,
	}
}

// RequirePermission resolves (resource, action) through the catalog and
// checks the principal's effective permission set. An unregistered pair
// surfaces as catalog.ErrUnknownResourceAction, a configuration defect
// distinct from an authorization denial. A missing permission returns a
// *DeniedError carrying the requirement.
func (g *Gate) RequirePermission(ctx context.Context, principal *tokens.Principal, resource, action string) error {
	permission, err := catalog.Resolve(resource, action)
	if err != nil {
		return err
	}

	ok, err := g.resolver.HasPermission(ctx, subjectOf(principal), permission)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}

	label := string(permission)
	if !ok {
		g.deny(ctx, principal, label)
		return &DeniedError{Permission: label}
	}

	g.allow(ctx, principal, label, catalog.IsSensitive(permission))
	return nil
}

// RequireAny checks that the principal holds at least one of the permissions
func (g *Gate) RequireAny(ctx context.Context, principal *tokens.Principal, permissions ...catalog.Permission) error {
	ok, err := g.resolver.HasAny(ctx, subjectOf(principal), permissions...)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}

	// The join character is presentation only, for audit messages.
	label := joinPermissions(permissions, "|")
	if !ok {
		g.deny(ctx, principal, label)
		return &DeniedError{Permission: label}
	}

	g.allow(ctx, principal, label, anySensitive(permissions))
	return nil
}

// RequireAll checks that the principal holds every one of the permissions
func (g *Gate) RequireAll(ctx context.Context, principal *tokens.Principal, permissions ...catalog.Permission) error {
	ok, err := g.resolver.HasAll(ctx, subjectOf(principal), permissions...)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}

	label := joinPermissions(permissions, "&")
	if !ok {
		g.deny(ctx, principal, label)
		return &DeniedError{Permission: label}
	}

	g.allow(ctx, principal, label, anySensitive(permissions))
	return nil
}

// IsAdmin reports whether the principal holds the admin role. The token's
// embedded role list is trusted as a fast path; when it is empty the stored
// assignments are consulted instead. A revoked admin can therefore retain
// access for the remainder of the token TTL.
func (g *Gate) IsAdmin(ctx context.Context, principal *tokens.Principal) (bool, error) {
	if principal == nil {
		return false, nil
	}

	if len(principal.Roles) > 0 {
		return principal.HasRole(catalog.RoleAdmin), nil
	}

	roles, err := g.store.GetUserRoles(ctx, principal.Subject)
	if err != nil {
		return false, fmt.Errorf("failed to look up roles: %w", err)
	}
	for _, role := range roles {
		if role.Name == catalog.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gate) deny(ctx context.Context, principal *tokens.Principal, label string) {
	if g.metrics != nil {
		g.metrics.AuthzDecisionsTotal.WithLabelValues(observability.DecisionDenied).Inc()
	}
	g.record(ctx, principal, audit.ActionAccessDenied, label)
}

func (g *Gate) allow(ctx context.Context, principal *tokens.Principal, label string, sensitive bool) {
	if g.metrics != nil {
		g.metrics.AuthzDecisionsTotal.WithLabelValues(observability.DecisionAllowed).Inc()
	}
	if sensitive {
		g.record(ctx, principal, audit.ActionSensitiveAccess, label)
	}
}

func (g *Gate) record(ctx context.Context, principal *tokens.Principal, action, label string) {
	if g.recorder == nil {
		return
	}

	entry := audit.Entry{
		EntityType: audit.EntityTypePermission,
		EntityID:   label,
		Action:     action,
		NewValues: map[string]interface{}{
			"required": label,
		},
	}
	if principal != nil {
		subject := principal.Subject
		entry.UserID = &subject
		entry.NewValues["roles"] = principal.Roles
	}

	g.recorder.Record(ctx, entry)
}

func subjectOf(principal *tokens.Principal) string {
	if principal == nil {
		return ""
	}
	return principal.Subject
}

func joinPermissions(permissions []catalog.Permission, sep string) string {
	parts := make([]string, len(permissions))
	for i, p := range permissions {
		parts[i] = string(p)
	}
	return strings.Join(parts, sep)
}

func anySensitive(permissions []catalog.Permission) bool {
	for _, p := range permissions {
		if catalog.IsSensitive(p) {
			return true
		}
	}
	return false
}
