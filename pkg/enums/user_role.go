package enums

import "fmt"

// UserRole is the actor role attached to every authenticated request.
type UserRole string

const (
	RoleUser          UserRole = "user"
	RoleBranchAdmin   UserRole = "branch-admin"
	RolePlatformAdmin UserRole = "platform-admin"
)

var validUserRoles = []UserRole{RoleUser, RoleBranchAdmin, RolePlatformAdmin}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
