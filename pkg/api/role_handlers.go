package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/catalog"
	"github.com/bcforms/formgate/pkg/httputil"
	"github.com/bcforms/formgate/pkg/middleware"
	"github.com/bcforms/formgate/pkg/rbac"
)

// RoleHandlers implements role CRUD. System roles can be read but never
// deleted; custom roles are fully managed here.
type RoleHandlers struct {
	store    *rbac.Store
	recorder *audit.Recorder
}

// NewRoleHandlers creates the role management handlers.
func NewRoleHandlers(store *rbac.Store, recorder *audit.Recorder) *RoleHandlers {
	return &RoleHandlers{store: store, recorder: recorder}
}

// CreateRole creates a new custom role
func (h *RoleHandlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Permissions []string `json:"permissions"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	permissions, err := parsePermissions(req.Permissions)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	role := &rbac.Role{
		Name:        req.Name,
		Description: req.Description,
		Permissions: permissions,
		IsActive:    true,
	}

	if err := h.store.CreateRole(ctx, role); err != nil {
		if errors.Is(err, rbac.ErrDuplicateRoleName) {
			httputil.WriteConflict(w, "A role with this name already exists")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.record(r, audit.Entry{
		EntityType: audit.EntityTypeRole,
		EntityID:   role.ID,
		Action:     audit.ActionCreate,
		NewValues: map[string]interface{}{
			"name":        role.Name,
			"permissions": role.Permissions,
		},
	})

	httputil.WriteCreated(w, role)
}

// ListRoles lists all roles, system roles first
func (h *RoleHandlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, roles)
}

// GetRole retrieves a single role by ID
func (h *RoleHandlers) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.store.GetRoleByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			httputil.WriteNotFound(w, "Role not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, role)
}

// UpdateRole updates a role's description, permissions or active flag
func (h *RoleHandlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.store.GetRoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			httputil.WriteNotFound(w, "Role not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	var req struct {
		Description *string  `json:"description"`
		Permissions []string `json:"permissions"`
		IsActive    *bool    `json:"is_active"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	oldValues := map[string]interface{}{
		"description": role.Description,
		"permissions": role.Permissions,
		"is_active":   role.IsActive,
	}

	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Permissions != nil {
		permissions, err := parsePermissions(req.Permissions)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		role.Permissions = permissions
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}

	if err := h.store.UpdateRole(ctx, role); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.record(r, audit.Entry{
		EntityType: audit.EntityTypeRole,
		EntityID:   role.ID,
		Action:     audit.ActionUpdate,
		OldValues:  oldValues,
		NewValues: map[string]interface{}{
			"description": role.Description,
			"permissions": role.Permissions,
			"is_active":   role.IsActive,
		},
	})

	httputil.WriteSuccess(w, role)
}

// DeleteRole soft-deletes a custom role. System roles are refused.
func (h *RoleHandlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.SoftDeleteRole(ctx, id); err != nil {
		switch {
		case errors.Is(err, rbac.ErrRoleNotFound):
			httputil.WriteNotFound(w, "Role not found")
		case errors.Is(err, rbac.ErrSystemRole):
			httputil.WriteForbidden(w, "System roles cannot be deleted")
		default:
			httputil.WriteInternalError(w, err)
		}
		return
	}

	h.record(r, audit.Entry{
		EntityType: audit.EntityTypeRole,
		EntityID:   id,
		Action:     audit.ActionDelete,
	})

	httputil.WriteNoContent(w)
}

func (h *RoleHandlers) record(r *http.Request, entry audit.Entry) {
	if h.recorder == nil {
		return
	}
	if principal := middleware.GetPrincipal(r); principal != nil {
		entry.UserID = &principal.Subject
	}
	entry.IPAddress = r.RemoteAddr
	entry.UserAgent = r.UserAgent()
	h.recorder.Record(r.Context(), entry)
}

// parsePermissions validates permission strings against the catalog
func parsePermissions(raw []string) ([]catalog.Permission, error) {
	permissions := make([]catalog.Permission, 0, len(raw))
	for _, s := range raw {
		p := catalog.Permission(s)
		if !catalog.Valid(p) {
			return nil, fmt.Errorf("unknown permission: %s", s)
		}
		permissions = append(permissions, p)
	}
	return permissions, nil
}
