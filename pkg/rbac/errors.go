package rbac

import "errors"

var (
	// ErrRoleNotFound is returned when a role lookup matches no non-deleted row.
	ErrRoleNotFound = errors.New("rbac: role not found")

	// ErrUserNotFound is returned when a user lookup matches no non-deleted row.
	ErrUserNotFound = errors.New("rbac: user not found")

	// ErrAssignmentNotFound is returned when revoking a role the user does not hold.
	ErrAssignmentNotFound = errors.New("rbac: role assignment not found")

	// ErrDuplicateRoleName is returned when creating a role whose name is already
	// taken by a non-deleted role.
	ErrDuplicateRoleName = errors.New("rbac: role name already in use")

	// ErrDuplicateAssignment is returned when assigning a role the user already
	// holds through an active assignment.
	ErrDuplicateAssignment = errors.New("rbac: role already assigned to user")

	// ErrSystemRole is returned when attempting to delete a seeded built-in role.
	ErrSystemRole = errors.New("rbac: system roles cannot be deleted")
)

// DeniedError is returned by the gate when the principal lacks a required
// permission. Permission holds the unmet requirement; for ANY/ALL checks it is
// the permission strings joined with "|" or "&" (presentation only).
type DeniedError struct {
	Permission string
}

func (e *DeniedError) Error() string {
	return "rbac: permission denied: " + e.Permission
}
