package audit

import "time"

// Entry is a single immutable audit record. Rows are append-only: a
// deleted_at column exists in the schema for symmetry with the other tables
// but the recorder never sets it.
type Entry struct {
	ID         string                 `json:"id"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Action     string                 `json:"action"`
	UserID     *string                `json:"user_id,omitempty"`
	OldValues  map[string]interface{} `json:"old_values,omitempty"`
	NewValues  map[string]interface{} `json:"new_values,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Common entity types
const (
	EntityTypeRole       = "role"
	EntityTypeUser       = "user"
	EntityTypeAssignment = "role_assignment"
	EntityTypePermission = "permission"
	EntityTypeAuth       = "auth"
)

// Common action verbs
const (
	ActionCreate          = "create"
	ActionUpdate          = "update"
	ActionDelete          = "delete"
	ActionAssign          = "assign"
	ActionRevoke          = "revoke"
	ActionLogin           = "login"
	ActionAccessDenied    = "access_denied"
	ActionSensitiveAccess = "sensitive_access"
	ActionExport          = "export"
)

// Filter selects audit entries for search and export
type Filter struct {
	EntityType string
	EntityID   string
	Action     string
	UserID     string
	StartTime  *time.Time
	EndTime    *time.Time

	Limit  int
	Offset int
}

// Format is an export output format
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)
