package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/httputil"
	"github.com/bcforms/formgate/pkg/middleware"
	"github.com/bcforms/formgate/pkg/rbac"
)

// UserHandlers implements role assignment management and effective
// permission inspection for individual users.
type UserHandlers struct {
	store    *rbac.Store
	resolver *rbac.Resolver
	recorder *audit.Recorder
}

// NewUserHandlers creates the user role-assignment handlers.
func NewUserHandlers(store *rbac.Store, resolver *rbac.Resolver, recorder *audit.Recorder) *UserHandlers {
	return &UserHandlers{store: store, resolver: resolver, recorder: recorder}
}

// GetUserRoles lists a user's active roles
func (h *UserHandlers) GetUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	exists, err := h.store.UserExists(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !exists {
		httputil.WriteNotFound(w, "User not found")
		return
	}

	roles, err := h.store.GetUserRoles(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, roles)
}

// AssignRole assigns a role to a user
func (h *UserHandlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		RoleID string `json:"role_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.RoleID == "" {
		httputil.WriteBadRequest(w, "role_id is required")
		return
	}

	exists, err := h.store.UserExists(ctx, userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !exists {
		httputil.WriteNotFound(w, "User not found")
		return
	}

	role, err := h.store.GetRoleByID(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			httputil.WriteNotFound(w, "Role not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	assignment := &rbac.RoleAssignment{UserID: userID, RoleID: role.ID}
	if principal := middleware.GetPrincipal(r); principal != nil {
		assignment.AssignedBy = &principal.Subject
	}

	if err := h.store.AssignRole(ctx, assignment); err != nil {
		if errors.Is(err, rbac.ErrDuplicateAssignment) {
			httputil.WriteConflict(w, "User already has this role")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.record(r, audit.Entry{
		EntityType: audit.EntityTypeAssignment,
		EntityID:   assignment.ID,
		Action:     audit.ActionAssign,
		NewValues: map[string]interface{}{
			"user_id": userID,
			"role":    role.Name,
		},
	})

	httputil.WriteCreated(w, assignment)
}

// RevokeRole revokes a role from a user
func (h *UserHandlers) RevokeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := httputil.ParsePathStringOrError(w, r, "role_id")
	if !ok {
		return
	}

	if err := h.store.RevokeRole(ctx, userID, roleID); err != nil {
		if errors.Is(err, rbac.ErrAssignmentNotFound) {
			httputil.WriteNotFound(w, "Assignment not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.record(r, audit.Entry{
		EntityType: audit.EntityTypeAssignment,
		EntityID:   roleID,
		Action:     audit.ActionRevoke,
		NewValues: map[string]interface{}{
			"user_id": userID,
			"role_id": roleID,
		},
	})

	httputil.WriteNoContent(w)
}

// GetUserPermissions reports a user's effective permission set, resolved
// fresh from current role data.
func (h *UserHandlers) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	permissions, err := h.resolver.ResolvePermissions(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	list := make([]string, 0, len(permissions))
	for p := range permissions {
		list = append(list, string(p))
	}
	sort.Strings(list)

	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":     userID,
		"permissions": list,
	})
}

func (h *UserHandlers) record(r *http.Request, entry audit.Entry) {
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
