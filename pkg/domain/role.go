package domain

import "fmt"

// Role is the role bound to an authentication commitment at registration.
// A commitment holds exactly one role for its lifetime.
type Role uint8

const (
	RoleUnassigned Role = iota
	RoleStudent
	RoleUniversity
	RoleEmployer
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUnassigned: "unassigned",
	RoleStudent:    "student",
	RoleUniversity: "university",
	RoleEmployer:   "employer",
	RoleAdmin:      "admin",
}

// ParseRole validates and returns a Role. Unassigned is not accepted as an
// input role; it only describes unknown commitments.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s && role != RoleUnassigned {
			return role, nil
		}
	}
	return RoleUnassigned, fmt.Errorf("unknown role: %q", s)
}

func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok && r != RoleUnassigned
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}
