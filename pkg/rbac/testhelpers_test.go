package rbac

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bcforms/formgate/pkg/catalog"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);

		CREATE TABLE roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			permissions TEXT NOT NULL DEFAULT '[]',
			is_system INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);

		CREATE TABLE user_roles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			assigned_by TEXT,
			assigned_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);

		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			user_id TEXT,
			old_values TEXT,
			new_values TEXT,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, store *Store, email string) *User {
	t.Helper()

	user := &User{
		Email:    email,
		Name:     "Test User",
		IsActive: true,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestRole(t *testing.T, store *Store, name string, permissions ...catalog.Permission) *Role {
	t.Helper()

	role := &Role{
		Name:        name,
		Description: "test role",
		Permissions: permissions,
		IsActive:    true,
	}
	if err := store.CreateRole(context.Background(), role); err != nil {
		t.Fatalf("Failed to create test role: %v", err)
	}
	return role
}

func assignTestRole(t *testing.T, store *Store, userID, roleID string) {
	t.Helper()

	assignment := &RoleAssignment{UserID: userID, RoleID: roleID}
	if err := store.AssignRole(context.Background(), assignment); err != nil {
		t.Fatalf("Failed to assign test role: %v", err)
	}
}
