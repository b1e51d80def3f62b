package models

import (
	"time"

	"signage/internal/authz"
)

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

type Invitation struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Role       authz.Role       `json:"role"`
	CompanyID  string           `json:"company_id"`
	InvitedBy  *string          `json:"invited_by"`
	Token      string           `json:"-"`
	Status     InvitationStatus `json:"status"`
	ExpiresAt  time.Time        `json:"expires_at"`
	CreatedAt  time.Time        `json:"created_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
}

func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Redeemable: still pending and not past its expiry.
func (i *Invitation) Redeemable(now time.Time) bool {
	return i.Status == InvitationPending && !i.Expired(now)
}

type InvitationFilter struct {
	CompanyID *string
	Status    *InvitationStatus
}

type CreateInvitationRequest struct {
	Email     string     `json:"email" binding:"required,email"`
	Role      authz.Role `json:"role" binding:"required"`
	CompanyID *string    `json:"company_id"`
}
