package models

import "time"

type Company struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Subdomain  *string   `json:"subdomain"`
	LogoURL    *string   `json:"logo_url"`
	IsActive   bool      `json:"is_active"`
	MaxUsers   int       `json:"max_users"`
	MaxDevices int       `json:"max_devices"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CompanyWithCounts is the list view used by super admins.
type CompanyWithCounts struct {
	Company
	CurrentUsers   int `json:"current_users"`
	CurrentDevices int `json:"current_devices"`
}

type UsageStats struct {
	Total      int `json:"total"`
	Active     int `json:"active,omitempty"`
	Admins     int `json:"admins,omitempty"`
	Online     int `json:"online,omitempty"`
	Linked     int `json:"linked,omitempty"`
	MaxAllowed int `json:"max_allowed"`
	Remaining  int `json:"remaining"`
}

type CompanyStats struct {
	CompanyID   string     `json:"company_id"`
	CompanyName string     `json:"company_name"`
	Users       UsageStats `json:"users"`
	Devices     UsageStats `json:"devices"`
}

type CreateCompanyRequest struct {
	Name       string  `json:"name" binding:"required,min=2,max=255"`
	Subdomain  *string `json:"subdomain" binding:"omitempty,max=100"`
	LogoURL    *string `json:"logo_url"`
	MaxUsers   *int    `json:"max_users" binding:"omitempty,min=1"`
	MaxDevices *int    `json:"max_devices" binding:"omitempty,min=1"`
}

type UpdateCompanyRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=2,max=255"`
	Subdomain  *string `json:"subdomain" binding:"omitempty,max=100"`
	LogoURL    *string `json:"logo_url"`
	MaxUsers   *int    `json:"max_users" binding:"omitempty,min=1"`
	MaxDevices *int    `json:"max_devices" binding:"omitempty,min=1"`
	IsActive   *bool   `json:"is_active"`
}
