package catalog

// RoleTemplate defines a built-in role: a description plus an explicit
// permission list. Templates are compiled-in configuration consumed by the
// role seeder at bootstrap.
type RoleTemplate struct {
	Name        string
	Description string
	IsSystem    bool
	Permissions []Permission
}

// Built-in role names
const (
	RoleAdmin        = "admin"
	RoleStaffManager = "staff_manager"
	RoleReviewer     = "reviewer"
	RoleStaffViewer  = "staff_viewer"
)

// DefaultRoleTemplates returns the fixed set of built-in roles.
func DefaultRoleTemplates() []RoleTemplate {
	return []RoleTemplate{
		{
			Name:        RoleAdmin,
			Description: "System administrator with full access",
			IsSystem:    true,
			Permissions: All(),
		},
		{
			Name:        RoleStaffManager,
			Description: "Staff manager responsible for form workflow and staff coordination",
			IsSystem:    true,
			Permissions: []Permission{
				FormCreate,
				FormRead,
				FormEdit,
				FormDelete,
				FormArchive,
				FormSubmitForReview,
				FormReview,
				FormApprove,
				BusinessAreaRead,
				BusinessAreaManage,
				CategoryRead,
				UserRead,
				AuditLogView,
				ReportView,
			},
		},
		{
			Name:        RoleReviewer,
			Description: "Form reviewer responsible for reviewing and approving forms",
			IsSystem:    true,
			Permissions: []Permission{
				FormRead,
				FormReview,
				FormApprove,
				BusinessAreaRead,
				CategoryRead,
				AuditLogView,
			},
		},
		{
			Name:        RoleStaffViewer,
			Description: "Staff member with read-only access to published forms",
			IsSystem:    true,
			Permissions: []Permission{
				FormRead,
				BusinessAreaRead,
				CategoryRead,
			},
		},
	}
}
