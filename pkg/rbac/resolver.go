package rbac

import (
	"context"
	"fmt"

	"github.com/bcforms/formgate/pkg/catalog"
)

// Resolver computes a user's effective permission set from stored role
// assignments. Resolution is performed fresh on every call so that role
// revocations take effect immediately; results are never cached.
type Resolver struct {
	store *Store
}

// NewResolver creates a new permission resolver
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// ResolvePermissions returns the inheritance-expanded permission set held by
// the user through active role assignments. An unknown or empty user ID
// yields an empty set, not an error.
func (r *Resolver) ResolvePermissions(ctx context.Context, userID string) (map[catalog.Permission]struct{}, error) {
	permissions := make(map[catalog.Permission]struct{})
	if userID == "" {
		return permissions, nil
	}

	roles, err := r.store.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}

	for _, role := range roles {
		for _, p := range role.Permissions {
			permissions[p] = struct{}{}
		}
	}

	return catalog.ExpandInherited(permissions), nil
}

// HasPermission reports whether the user's resolved set contains the permission
func (r *Resolver) HasPermission(ctx context.Context, userID string, permission catalog.Permission) (bool, error) {
	resolved, err := r.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := resolved[permission]
	return ok, nil
}

// HasAny reports whether the user holds at least one of the permissions
func (r *Resolver) HasAny(ctx context.Context, userID string, permissions ...catalog.Permission) (bool, error) {
	resolved, err := r.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range permissions {
		if _, ok := resolved[p]; ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAll reports whether the user holds every one of the permissions
func (r *Resolver) HasAll(ctx context.Context, userID string, permissions ...catalog.Permission) (bool, error) {
	resolved, err := r.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range permissions {
		if _, ok := resolved[p]; !ok {
			return false, nil
		}
	}
	return true, nil
}
