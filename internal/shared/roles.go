package shared

// Platform roles. Role names are stored per company membership.
const (
	RoleAdmin            = "admin"
	RoleAccounts         = "accounts"
	RoleWarehouseManager = "warehouse_manager"
	RoleSales            = "sales"
)

// KnownRoles lists every role the platform assigns.
func KnownRoles() []string {
	return []string{
		RoleAdmin,
		RoleAccounts,
		RoleWarehouseManager,
		RoleSales,
	}
}
