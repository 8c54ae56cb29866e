package auth

import "errors"

// Role is an API authorisation tier.
type Role string

const (
	// RoleViewer may read radio state and the command journal.
	RoleViewer Role = "viewer"

	// RoleOperator may also change component configuration and connect
	// or disconnect radios.
	RoleOperator Role = "operator"

	// RoleAdmin may also send raw commands.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role, least privileged first.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
