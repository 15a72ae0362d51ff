package identity

import "strings"

// Role is the closed set of authorization roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
	RoleAdmin   Role = "admin"
)

// ParseRole canonicalizes a role string. Unknown values default to student,
// which is the least-privileged role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleAlumni):
		return RoleAlumni
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// In reports whether r is a member of allowed.
// This is the authorization predicate: it never consults request input,
// only the server-resolved role.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
