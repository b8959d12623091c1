// Package roles defines the user role enumeration shared by every service
package roles

import "slices"

// Role is a profile role
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// All lists every valid role
var All = []Role{RoleUser, RoleEditor, RoleAdmin}

// Staff is the set of roles allowed into the dashboard
var Staff = []Role{RoleEditor, RoleAdmin}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	return slices.Contains(All, r)
}

// In reports whether r is one of allowed
func (r Role) In(allowed ...Role) bool {
	return slices.Contains(allowed, r)
}

// Parse converts s into a Role, returning false for unknown values
func Parse(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}
