package domain

import "fmt"

// Role selects which kind of node the host is provisioned into.
type Role string

const (
	// RoleController runs the API, scheduler, object store, network
	// manager, message broker and database alongside compute.
	RoleController Role = "controller"

	// RoleWorker runs compute only and points at an existing controller.
	RoleWorker Role = "worker"
)

// Roles returns every supported role in its external string encoding.
func Roles() []Role {
	return []Role{RoleController, RoleWorker}
}

// ParseRole maps an external role name onto a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unsupported role %q (valid: %s, %s)", s, RoleController, RoleWorker)
}

// IsController reports whether r is the controller role.
func (r Role) IsController() bool { return r == RoleController }

func (r Role) String() string { return string(r) }
