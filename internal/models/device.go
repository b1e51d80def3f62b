package models

import "time"

type Device struct {
	ID            string     `json:"id"`
	DeviceUID     string     `json:"device_uid"`
	DeviceName    string     `json:"device_name"`
	DeviceCode    *string    `json:"device_code,omitempty"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
	UserID        *string    `json:"user_id"`
	CompanyID     string     `json:"company_id"`
	IsOnline      bool       `json:"is_online"`
	IsLinked      bool       `json:"is_linked"`
	LastSeen      *time.Time `json:"last_seen"`
	LinkedAt      *time.Time `json:"linked_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type DeviceFilter struct {
	CompanyID *string
	UserID    *string
	IsLinked  *bool
	Offset    int
	Limit     int
}

type GenerateCodeRequest struct {
	DeviceUID  string `json:"device_uid" binding:"required,max=255"`
	DeviceName string `json:"device_name" binding:"required,max=255"`
	Subdomain  string `json:"subdomain" binding:"required,max=100"`
}

type PairingCode struct {
	DeviceUID        string `json:"device_uid"`
	DeviceCode       string `json:"device_code"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

type LinkDeviceRequest struct {
	DeviceCode string `json:"device_code" binding:"required,len=4,numeric"`
}

type HeartbeatRequest struct {
	DeviceUID string `json:"device_uid" binding:"required"`
}

type RenameDeviceRequest struct {
	DeviceName string `json:"device_name" binding:"required,max=255"`
}
