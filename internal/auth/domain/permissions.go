package domain

// Permission catalog for the BMS resources. The wider web application
// gates its CRUD endpoints on these; the auth service only resolves and
// embeds them.
const (
	PermCustomersRead      = "customers:read"
	PermCustomersWrite     = "customers:write"
	PermProjectsRead       = "projects:read"
	PermProjectsWrite      = "projects:write"
	PermAppointmentsRead   = "appointments:read"
	PermAppointmentsWrite  = "appointments:write"
	PermServicesRead       = "services:read"
	PermServicesWrite      = "services:write"
	PermInvoicesRead       = "invoices:read"
	PermInvoicesWrite      = "invoices:write"
	PermNotificationsRead  = "notifications:read"
	PermNotificationsWrite = "notifications:write"
	PermReportsRead        = "reports:read"
	PermSettingsRead       = "settings:read"
	PermSettingsWrite      = "settings:write"
	PermUsersManage        = "users:manage"
)

// Built-in role names seeded on first boot.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// AllPermissions returns the full catalog, used to seed the admin role.
func AllPermissions() []string {
	return []string{
		PermCustomersRead, PermCustomersWrite,
		PermProjectsRead, PermProjectsWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
		PermServicesRead, PermServicesWrite,
		PermInvoicesRead, PermInvoicesWrite,
		PermNotificationsRead, PermNotificationsWrite,
		PermReportsRead,
		PermSettingsRead, PermSettingsWrite,
		PermUsersManage,
	}
}

// StaffPermissions returns the default grant set for day-to-day staff.
func StaffPermissions() []string {
	return []string{
		PermCustomersRead, PermCustomersWrite,
		PermProjectsRead, PermProjectsWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
		PermServicesRead,
		PermInvoicesRead,
		PermNotificationsRead,
	}
}
