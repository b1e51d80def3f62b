package models

import (
	"encoding/json"
	"time"
)

const (
	AuditLogin              = "auth.login"
	AuditLoginFailed        = "auth.login_failed"
	AuditTokenRefresh       = "auth.token_refresh"
	AuditLogout             = "auth.logout"
	AuditUserCreated        = "user.created"
	AuditUserUpdated        = "user.updated"
	AuditUserDeleted        = "user.deleted"
	AuditUserActivated      = "user.activated"
	AuditUserDeactivated    = "user.deactivated"
	AuditUserPermission     = "user.permission_changed"
	AuditCompanyCreated     = "company.created"
	AuditCompanyUpdated     = "company.updated"
	AuditCompanyDeleted     = "company.deleted"
	AuditCompanyActivated   = "company.activated"
	AuditCompanyDeactivated = "company.deactivated"
	AuditInvitationSent     = "invitation.sent"
	AuditInvitationAccepted = "invitation.accepted"
	AuditInvitationCanceled = "invitation.cancelled"
	AuditInvitationExpired  = "invitation.expired"
	AuditDeviceCreated      = "device.created"
	AuditDeviceLinked       = "device.linked"
	AuditDeviceUnlinked     = "device.unlinked"
	AuditDeviceUpdated      = "device.updated"
	AuditDeviceDeleted      = "device.deleted"
)

type AuditLog struct {
	ID           string          `json:"id"`
	UserID       *string         `json:"user_id"`
	CompanyID    *string         `json:"company_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   *string         `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type AuditFilter struct {
	CompanyID *string
	UserID    *string
	Action    string
	Offset    int
	Limit     int
}

// RequestMeta is the client information attached to audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}
