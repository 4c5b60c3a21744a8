package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcforms/formgate/pkg/catalog"
)

// SeedDefaultRoles creates the built-in roles from the catalog templates.
// Seeding is idempotent: existing roles are updated in place to the current
// template so that repeated runs converge on the same rows.
func SeedDefaultRoles(ctx context.Context, store *Store) error {
	for _, tmpl := range catalog.DefaultRoleTemplates() {
		existing, err := store.GetRoleByName(ctx, tmpl.Name)
		if errors.Is(err, ErrRoleNotFound) {
			role := &Role{
				Name:        tmpl.Name,
				Description: tmpl.Description,
				Permissions: tmpl.Permissions,
				IsSystem:    tmpl.IsSystem,
				IsActive:    true,
			}
			if err := store.CreateRole(ctx, role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", tmpl.Name, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up role %s: %w", tmpl.Name, err)
		}

		existing.Description = tmpl.Description
		existing.Permissions = tmpl.Permissions
		existing.IsActive = true
		if err := store.UpdateRole(ctx, existing); err != nil {
			return fmt.Errorf("failed to update seeded role %s: %w", tmpl.Name, err)
		}
	}

	return nil
}
