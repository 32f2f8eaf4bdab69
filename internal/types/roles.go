package types

// Role is a user's permission class.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleManager         Role = "manager"
	RoleWarehouseWorker Role = "warehouse_worker"
	RoleViewer          Role = "viewer"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleWarehouseWorker, RoleViewer:
		return true
	}
	return false
}

// Operation names the permission-checked actions. Read-only operations are
// not listed; every active user may read.
type Operation string

const (
	OpReceive       Operation = "receive"
	OpDispatch      Operation = "dispatch"
	OpAdjust        Operation = "adjust"
	OpScrap         Operation = "scrap"
	OpTransfer      Operation = "transfer"
	OpManageCatalog Operation = "manage_catalog"
	OpManageDN      Operation = "manage_delivery_notes"
	OpCancelDN      Operation = "cancel_delivery_note"
	OpRunChecks     Operation = "run_checks"
	OpManageAlerts  Operation = "manage_alerts"
	OpManageUsers   Operation = "manage_users"
	OpSeed          Operation = "seed"
)

// rolePermissions is the single source of truth for who may do what.
// Permissions are data, not scattered conditionals; extending a role means
// editing this table.
var rolePermissions = map[Operation][]Role{
	OpReceive:       {RoleAdmin, RoleManager, RoleWarehouseWorker},
	OpDispatch:      {RoleAdmin, RoleManager, RoleWarehouseWorker},
	OpAdjust:        {RoleAdmin, RoleManager},
	OpScrap:         {RoleAdmin, RoleManager, RoleWarehouseWorker},
	OpTransfer:      {RoleAdmin, RoleManager, RoleWarehouseWorker},
	OpManageCatalog: {RoleAdmin, RoleManager},
	OpManageDN:      {RoleAdmin, RoleManager, RoleWarehouseWorker},
	OpCancelDN:      {RoleAdmin, RoleManager},
	OpRunChecks:     {RoleAdmin, RoleManager},
	OpManageAlerts:  {RoleAdmin, RoleManager, RoleWarehouseWorker},
	OpManageUsers:   {RoleAdmin},
	OpSeed:          {RoleAdmin, RoleManager},
}

// CanPerform reports whether a role may perform an operation. Unknown
// operations are denied.
func CanPerform(role Role, op Operation) bool {
	allowed, ok := rolePermissions[op]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RequirePermission returns a ValidationError with CodePermissionDenied
// when the role may not perform op.
func RequirePermission(role Role, op Operation) error {
	if CanPerform(role, op) {
		return nil
	}
	return Validation(CodePermissionDenied, "role %s may not perform %s", role, op)
}
