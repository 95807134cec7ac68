package auth

import "restaurant-pos/internal/models"

// Capabilities checked by route middleware.
const (
	PermAll = "*"

	PermMenuRead   = "menu.read"
	PermMenuCreate = "menu.create"
	PermMenuUpdate = "menu.update"
	PermMenuDelete = "menu.delete"

	PermOrdersRead   = "orders.read"
	PermOrdersCreate = "orders.create"
	PermOrdersUpdate = "orders.update"
	PermOrdersCancel = "orders.cancel"

	PermKOTsRead   = "kots.read"
	PermKOTsUpdate = "kots.update"

	PermBillsRead   = "bills.read"
	PermBillsCreate = "bills.create"
	PermBillsUpdate = "bills.update"
	PermBillsVoid   = "bills.void"

	PermHeldBills = "held_bills.manage"

	PermTablesRead   = "tables.read"
	PermTablesUpdate = "tables.update"
	PermTablesManage = "tables.manage"

	PermCustomersRead   = "customers.read"
	PermCustomersManage = "customers.manage"

	PermInventoryRead   = "inventory.read"
	PermInventoryManage = "inventory.manage"

	PermEmployeesManage = "employees.manage"
	PermSettingsRead    = "settings.read"
	PermSettingsManage  = "settings.manage"
	PermReportsRead     = "reports.read"
)

var rolePermissions = map[string][]string{
	models.RoleAdmin: {PermAll},
	models.RoleManager: {
		PermMenuRead, PermMenuCreate, PermMenuUpdate, PermMenuDelete,
		PermOrdersRead, PermOrdersCreate, PermOrdersUpdate, PermOrdersCancel,
		PermKOTsRead, PermKOTsUpdate,
		PermBillsRead, PermBillsCreate, PermBillsUpdate, PermBillsVoid,
		PermHeldBills,
		PermTablesRead, PermTablesUpdate, PermTablesManage,
		PermCustomersRead, PermCustomersManage,
		PermInventoryRead, PermInventoryManage,
		PermSettingsRead, PermReportsRead,
	},
	models.RoleCashier: {
		PermMenuRead,
		PermOrdersRead, PermOrdersCreate, PermOrdersUpdate,
		PermKOTsRead,
		PermBillsRead, PermBillsCreate, PermBillsUpdate,
		PermHeldBills,
		PermTablesRead, PermTablesUpdate,
		PermCustomersRead, PermCustomersManage,
		PermSettingsRead,
	},
	models.RoleWaiter: {
		PermMenuRead,
		PermOrdersRead, PermOrdersCreate, PermOrdersUpdate,
		PermKOTsRead,
		PermBillsRead,
		PermHeldBills,
		PermTablesRead, PermTablesUpdate,
		PermCustomersRead,
	},
	models.RoleKitchen: {
		PermMenuRead,
		PermOrdersRead,
		PermKOTsRead, PermKOTsUpdate,
		PermInventoryRead,
	},
}

// KnownRole reports whether role appears in the permission table.
func KnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// Can reports whether role holds capability.
func Can(role, capability string) bool {
	for _, p := range rolePermissions[role] {
		if p == PermAll || p == capability {
			return true
		}
	}
	return false
}

// Permissions lists the capabilities granted to role.
func Permissions(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
