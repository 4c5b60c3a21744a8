package rbac

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bcforms/formgate/pkg/catalog"
)

// Store handles role, assignment and user persistence.
//
// Queries stay within the portable subset shared by PostgreSQL and SQLite:
// $N placeholders, permissions serialized as JSON text, timestamps passed
// as arguments rather than computed by the engine.
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRole creates a new role. The role name must be unique among
// non-deleted roles.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE name = $1 AND deleted_at IS NULL)`,
		role.Name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRoleName, role.Name)
	}

	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO roles (id, name, description, permissions, is_system, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		string(permissionsJSON),
		role.IsSystem,
		role.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRoleByID retrieves a non-deleted role by ID
func (s *Store) GetRoleByID(ctx context.Context, roleID string) (*Role, error) {
	query := `
		SELECT id, name, description, permissions, is_system, is_active, created_at, updated_at, deleted_at
		FROM roles
		WHERE id = $1 AND deleted_at IS NULL
	`
	role, err := scanRole(s.db.QueryRowContext(ctx, query, roleID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, roleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetRoleByName retrieves a non-deleted role by name
func (s *Store) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	query := `
		SELECT id, name, description, permissions, is_system, is_active, created_at, updated_at, deleted_at
		FROM roles
		WHERE name = $1 AND deleted_at IS NULL
	`
	role, err := scanRole(s.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// ListRoles lists all non-deleted roles, system roles first
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	query := `
		SELECT id, name, description, permissions, is_system, is_active, created_at, updated_at, deleted_at
		FROM roles
		WHERE deleted_at IS NULL
		ORDER BY is_system DESC, name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}

	return roles, rows.Err()
}

// UpdateRole updates a role's description, permissions and active flag
func (s *Store) UpdateRole(ctx context.Context, role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		UPDATE roles
		SET description = $1, permissions = $2, is_active = $3, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`

	role.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		role.Description,
		string(permissionsJSON),
		role.IsActive,
		role.UpdatedAt,
		role.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRoleNotFound, role.ID)
	}
	return nil
}

// SoftDeleteRole marks a role deleted. System roles cannot be deleted.
func (s *Store) SoftDeleteRole(ctx context.Context, roleID string) error {
	role, err := s.GetRoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("%w: %s", ErrSystemRole, role.Name)
	}

	query := `UPDATE roles SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	_, err = s.db.ExecContext(ctx, query, time.Now().UTC(), roleID)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

// AssignRole assigns a role to a user. At most one active assignment of a
// role to a user may exist at a time.
func (s *Store) AssignRole(ctx context.Context, assignment *RoleAssignment) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2 AND deleted_at IS NULL)`,
		assignment.UserID, assignment.RoleID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existing assignment: %w", err)
	}
	if exists {
		return ErrDuplicateAssignment
	}

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO user_roles (id, user_id, role_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.UserID,
		assignment.RoleID,
		assignment.AssignedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	assignment.AssignedAt = now
	return nil
}

// RevokeRole soft-deletes the active assignment of a role to a user
func (s *Store) RevokeRole(ctx context.Context, userID, roleID string) error {
	query := `
		UPDATE user_roles
		SET deleted_at = $1
		WHERE user_id = $2 AND role_id = $3 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revoke result: %w", err)
	}
	if affected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// GetUserAssignments retrieves all active role assignments for a user
func (s *Store) GetUserAssignments(ctx context.Context, userID string) ([]RoleAssignment, error) {
	query := `
		SELECT id, user_id, role_id, assigned_by, assigned_at, deleted_at
		FROM user_roles
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY assigned_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user assignments: %w", err)
	}
	defer rows.Close()

	var assignments []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		var assignedBy sql.NullString
		var deletedAt sql.NullTime

		err := rows.Scan(&a.ID, &a.UserID, &a.RoleID, &assignedBy, &a.AssignedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}

		if assignedBy.Valid {
			by := assignedBy.String
			a.AssignedBy = &by
		}
		if deletedAt.Valid {
			at := deletedAt.Time
			a.DeletedAt = &at
		}

		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// GetUserRoles retrieves all roles held by a user through active assignments.
// Inactive and soft-deleted roles are excluded.
func (s *Store) GetUserRoles(ctx context.Context, userID string) ([]Role, error) {
	query := `
		SELECT r.id, r.name, r.description, r.permissions, r.is_system, r.is_active, r.created_at, r.updated_at, r.deleted_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		  AND ur.deleted_at IS NULL
		  AND r.deleted_at IS NULL
		  AND r.is_active = $2
		ORDER BY r.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}

	return roles, rows.Err()
}

// CreateUser creates a new user
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO users (id, email, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a non-deleted user by ID
func (s *Store) GetUserByID(ctx context.Context, userID string) (*User, error) {
	query := `
		SELECT id, email, name, is_active, created_at, updated_at, deleted_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a non-deleted user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, name, is_active, created_at, updated_at, deleted_at
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpsertUserByEmail finds the user with the given email, updating the stored
// name when it changed, or creates the user when absent. Returns the user and
// whether it was created.
func (s *Store) UpsertUserByEmail(ctx context.Context, email, name string) (*User, bool, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		if user.Name != name {
			query := `UPDATE users SET name = $1, updated_at = $2 WHERE id = $3`
			user.UpdatedAt = time.Now().UTC()
			if _, err := s.db.ExecContext(ctx, query, name, user.UpdatedAt, user.ID); err != nil {
				return nil, false, fmt.Errorf("failed to update user: %w", err)
			}
			user.Name = name
		}
		return user, false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	user = &User{
		Email:    email,
		Name:     name,
		IsActive: true,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// UserExists reports whether a non-deleted user with the given ID exists
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrRoleNotFound)
}

// scanRole scans a role from a database row
func scanRole(scanner interface {
	Scan(dest ...interface{}) error
}) (*Role, error) {
	var role Role
	var permissionsJSON string
	var deletedAt sql.NullTime

	err := scanner.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&permissionsJSON,
		&role.IsSystem,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		at := deletedAt.Time
		role.DeletedAt = &at
	}

	if permissionsJSON != "" {
		if err := json.Unmarshal([]byte(permissionsJSON), &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}
	if role.Permissions == nil {
		role.Permissions = []catalog.Permission{}
	}

	return &role, nil
}

// scanUser scans a user from a database row
func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*User, error) {
	var user User
	var deletedAt sql.NullTime

	err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		at := deletedAt.Time
		user.DeletedAt = &at
	}

	return &user, nil
}
