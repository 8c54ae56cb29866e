package auth

// Permission represents a named capability in the API.
type Permission string

// Permission constants.
const (
	PermRadioRead      Permission = "radio:read"
	PermRadioConfigure Permission = "radio:configure"
	PermRadioConnect   Permission = "radio:connect"
	PermRadioRaw       Permission = "radio:raw"
	PermJournalRead    Permission = "journal:read"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermRadioRead,
		PermJournalRead,
	},
	RoleOperator: {
		PermRadioRead,
		PermJournalRead,
		PermRadioConfigure,
		PermRadioConnect,
	},
	RoleAdmin: {
		PermRadioRead,
		PermJournalRead,
		PermRadioConfigure,
		PermRadioConnect,
		PermRadioRaw,
	},
}

// HasPermission returns true if role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the permissions granted to role,
// or nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
