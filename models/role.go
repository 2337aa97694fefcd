package models

import "fmt"

// Role represents the access role stored on a user profile
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RolePilot         Role = "Pilot"
	RoleViewer        Role = "Viewer"
)

// AllRoles returns every role known to the system
func AllRoles() []Role {
	return []Role{RoleAdministrator, RolePilot, RoleViewer}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RolePilot, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a stored role string into a Role. Matching is exact.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ContainsRole reports whether role is present in roles
func ContainsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
