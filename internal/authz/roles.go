package authz

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of account roles. The zero value is not a valid role.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// rank gives the total order super_admin > admin > user.
var rank = map[Role]int{
	RoleUser:       10,
	RoleAdmin:      20,
	RoleSuperAdmin: 30,
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := rank[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether r is min or above. Unknown roles never qualify.
func (r Role) AtLeast(min Role) bool {
	rr, ok := rank[r]
	if !ok {
		return false
	}
	return rr >= rank[min]
}

// Compare returns -1, 0 or 1 following the role order.
func (r Role) Compare(other Role) int {
	a, b := rank[r], rank[other]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r Role) String() string { return string(r) }

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Invitable reports whether an account with role r may be created through the
// API. Super admins only come from the first sign-in.
func (r Role) Invitable() bool {
	return r == RoleAdmin || r == RoleUser
}
