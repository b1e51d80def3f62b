package authz

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID        string
	Email         string
	Role          Role
	CompanyID     *string
	CanAddDevices bool
}

func (c Caller) IsSuperAdmin() bool { return c.Role == RoleSuperAdmin }

// InCompany reports whether the caller belongs to companyID.
func (c Caller) InCompany(companyID string) bool {
	return c.CompanyID != nil && *c.CompanyID == companyID
}

// CanAccessCompany: super admins see every tenant, everyone else only their own.
func CanAccessCompany(c Caller, companyID string) bool {
	if c.IsSuperAdmin() {
		return true
	}
	return c.InCompany(companyID)
}

// Target describes the account an operation acts on.
type Target struct {
	UserID    string
	Role      Role
	CompanyID *string
}

// CanViewUser: super admin anyone, admin anyone in the same company, user only self.
func CanViewUser(c Caller, t Target) bool {
	switch {
	case c.IsSuperAdmin():
		return true
	case c.Role == RoleAdmin:
		return t.CompanyID != nil && c.InCompany(*t.CompanyID)
	default:
		return c.UserID == t.UserID
	}
}

// CanManageUser: super admin anyone, admin only plain users of its own company.
func CanManageUser(c Caller, t Target) bool {
	if c.IsSuperAdmin() {
		return true
	}
	if c.Role != RoleAdmin || t.CompanyID == nil || !c.InCompany(*t.CompanyID) {
		return false
	}
	return t.Role == RoleUser
}

// CanPairDevices reports whether the caller may link a device to its account.
func CanPairDevices(c Caller) bool {
	return c.CanAddDevices || c.Role.AtLeast(RoleAdmin)
}
