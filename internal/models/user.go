package models

import (
	"time"

	"signage/internal/authz"
)

type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	GoogleID          *string    `json:"google_id,omitempty"`
	FullName          string     `json:"full_name"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	Role              authz.Role `json:"role"`
	CompanyID         *string    `json:"company_id"`
	CanAddDevices     bool       `json:"can_add_devices"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastLogin         *time.Time `json:"last_login,omitempty"`

	// sealed provider refresh token, never leaves the server
	GoogleRefreshToken *string `json:"-"`
}

// Caller projects the user onto the authorization principal.
func (u *User) Caller() authz.Caller {
	return authz.Caller{
		UserID:        u.ID,
		Email:         u.Email,
		Role:          u.Role,
		CompanyID:     u.CompanyID,
		CanAddDevices: u.CanAddDevices,
	}
}

func (u *User) Target() authz.Target {
	return authz.Target{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}

type UserFilter struct {
	CompanyID *string
	Role      *authz.Role
	IsActive  *bool
	Offset    int
	Limit     int
}

type CreateUserRequest struct {
	Email         string     `json:"email" binding:"required,email"`
	FullName      string     `json:"full_name" binding:"required,min=2,max=255"`
	Role          authz.Role `json:"role"`
	CompanyID     *string    `json:"company_id"`
	CanAddDevices bool       `json:"can_add_devices"`
}

// UpdateUserRequest never carries role or company_id: those are fixed after creation.
type UpdateUserRequest struct {
	FullName          *string `json:"full_name" binding:"omitempty,min=2,max=255"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	CanAddDevices     *bool   `json:"can_add_devices"`
	IsActive          *bool   `json:"is_active"`
}

type UpdatePermissionsRequest struct {
	CanAddDevices *bool `json:"can_add_devices" binding:"required"`
}
