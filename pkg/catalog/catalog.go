package catalog

import (
	"fmt"
)

// Permission is a fine-grained capability identifier of the form "resource:action".
type Permission string

// Form management permissions
const (
	FormCreate Permission = "form:create"
	FormRead   Permission = "form:read"
	FormEdit   Permission = "form:edit"
	FormDelete Permission = "form:delete"
	FormArchive Permission = "form:archive"
)

// Form workflow permissions
const (
	FormSubmitForReview Permission = "form:submit_for_review"
	FormReview          Permission = "form:review"
	FormApprove         Permission = "form:approve"
	FormPublish         Permission = "form:publish"
)

// Business area permissions
const (
	BusinessAreaCreate Permission = "business_area:create"
	BusinessAreaRead   Permission = "business_area:read"
	BusinessAreaEdit   Permission = "business_area:edit"
	BusinessAreaDelete Permission = "business_area:delete"
	BusinessAreaManage Permission = "business_area:manage"
)

// Category permissions
const (
	CategoryCreate Permission = "category:create"
	CategoryRead   Permission = "category:read"
	CategoryEdit   Permission = "category:edit"
	CategoryDelete Permission = "category:delete"
)

// User management permissions
const (
	UserCreate            Permission = "user:create"
	UserRead              Permission = "user:read"
	UserEdit              Permission = "user:edit"
	UserDelete            Permission = "user:delete"
	UserManageRoles       Permission = "user:manage_roles"
	UserManagePermissions Permission = "user:manage_permissions"
)

// Role management permissions
const (
	RoleCreate Permission = "role:create"
	RoleRead   Permission = "role:read"
	RoleEdit   Permission = "role:edit"
	RoleDelete Permission = "role:delete"
)

// Audit and reporting permissions
const (
	AuditLogView   Permission = "audit_log:view"
	AuditLogExport Permission = "audit_log:export"
	ReportView     Permission = "report:view"
)

// System permissions
const (
	SystemConfig Permission = "system:config"
	SystemHealth Permission = "system:health"
)

// ErrUnknownResourceAction indicates a resource/action pair that is not
// registered in the catalog. This is a configuration defect, not an
// authorization denial.
type ErrUnknownResourceAction struct {
	Resource string
	Action   string
}

func (e *ErrUnknownResourceAction) Error() string {
	return fmt.Sprintf("unknown resource-action pair: %s/%s", e.Resource, e.Action)
}

// resourceActions maps (resource, action) pairs to permission identifiers.
// The catalog is fixed at compile time and not user-extensible.
var resourceActions = map[string]map[string]Permission{
	"forms": {
		"create":  FormCreate,
		"read":    FormRead,
		"update":  FormEdit,
		"delete":  FormDelete,
		"archive": FormArchive,
		"submit":  FormSubmitForReview,
		"review":  FormReview,
		"approve": FormApprove,
		"publish": FormPublish,
	},
	"business_areas": {
		"create": BusinessAreaCreate,
		"read":   BusinessAreaRead,
		"update": BusinessAreaEdit,
		"delete": BusinessAreaDelete,
		"manage": BusinessAreaManage,
	},
	"categories": {
		"create": CategoryCreate,
		"read":   CategoryRead,
		"update": CategoryEdit,
		"delete": CategoryDelete,
	},
	"users": {
		"create":             UserCreate,
		"read":               UserRead,
		"update":             UserEdit,
		"delete":             UserDelete,
		"manage_roles":       UserManageRoles,
		"manage_permissions": UserManagePermissions,
	},
	"roles": {
		"create": RoleCreate,
		"read":   RoleRead,
		"update": RoleEdit,
		"delete": RoleDelete,
	},
	"audit": {
		"view":   AuditLogView,
		"export": AuditLogExport,
	},
	"reports": {
		"view": ReportView,
	},
	"system": {
		"config": SystemConfig,
		"health": SystemHealth,
	},
}

// Resolve maps a resource/action pair to its permission identifier. Unknown
// pairs fail with *ErrUnknownResourceAction; the catalog never silently
// defaults.
func Resolve(resource, action string) (Permission, error) {
	actions, ok := resourceActions[resource]
	if !ok {
		return "", &ErrUnknownResourceAction{Resource: resource, Action: action}
	}
	perm, ok := actions[action]
	if !ok {
		return "", &ErrUnknownResourceAction{Resource: resource, Action: action}
	}
	return perm, nil
}

// All returns every permission registered in the catalog.
func All() []Permission {
	var perms []Permission
	for _, actions := range resourceActions {
		for _, p := range actions {
			perms = append(perms, p)
		}
	}
	return perms
}

// Valid reports whether p is registered in the catalog.
func Valid(p Permission) bool {
	for _, actions := range resourceActions {
		for _, reg := range actions {
			if reg == p {
				return true
			}
		}
	}
	return false
}

// Sensitive permissions: successful checks against these are audit-logged in
// addition to all denials.
var sensitive = map[Permission]bool{
	UserManageRoles:       true,
	UserManagePermissions: true,
	RoleCreate:            true,
	RoleEdit:              true,
	RoleDelete:            true,
	SystemConfig:          true,
	AuditLogExport:        true,
}

// IsSensitive reports whether successful checks of the permission must be
// audit-logged.
func IsSensitive(p Permission) bool {
	return sensitive[p]
}
