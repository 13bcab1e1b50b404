package identity

import (
	"fmt"
	"strings"
)

// Role is the clinic role a user holds. It is fixed once the user is created.
type Role string

const (
	RolePatient    Role = "PATIENT"
	RoleDoctor     Role = "DOCTOR"
	RoleStaffAdmin Role = "STAFF_ADMIN"
)

// ParseRole normalises a stored or claimed role value.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("identity: unknown role %q", raw)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleStaffAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
