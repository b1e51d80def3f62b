package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/logs"
	"signage/internal/models"
	"signage/internal/repositories"
	"signage/internal/utils"
)

// InvitationInfo is the public view shown on the accept page.
type InvitationInfo struct {
	Email       string                  `json:"email"`
	Role        authz.Role              `json:"role"`
	CompanyName string                  `json:"company_name"`
	Status      models.InvitationStatus `json:"status"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

type InvitationService interface {
	Create(ctx context.Context, caller authz.Caller, req models.CreateInvitationRequest) (*models.Invitation, error)
	List(ctx context.Context, caller authz.Caller, status *models.InvitationStatus) ([]*models.Invitation, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*models.Invitation, error)
	Cancel(ctx context.Context, caller authz.Caller, id string) error
	Lookup(ctx context.Context, token string) (*InvitationInfo, error)
}

type invitationService struct {
	invitations repositories.InvitationRepository
	users       repositories.UserRepository
	companies   repositories.CompanyRepository
	email       EmailService
	audit       AuditService
	ttl         time.Duration
	frontendURL string
	now         func() time.Time
}

func NewInvitationService(
	invitations repositories.InvitationRepository,
	users repositories.UserRepository,
	companies repositories.CompanyRepository,
	email EmailService,
	audit AuditService,
	ttl time.Duration,
	frontendURL string,
) InvitationService {
	return &invitationService{
		invitations: invitations,
		users:       users,
		companies:   companies,
		email:       email,
		audit:       audit,
		ttl:         ttl,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

func (s *invitationService) Create(ctx context.Context, caller authz.Caller, req models.CreateInvitationRequest) (*models.Invitation, error) {
	if !req.Role.Invitable() {
		return nil, apperr.New(apperr.ErrValidation, "Role must be admin or user")
	}

	var companyID string
	switch {
	case caller.IsSuperAdmin():
		if req.CompanyID == nil || *req.CompanyID == "" {
			return nil, apperr.New(apperr.ErrValidation, "company_id is required")
		}
		companyID = *req.CompanyID
	case caller.Role == authz.RoleAdmin && caller.CompanyID != nil:
		if req.Role != authz.RoleUser {
			return nil, apperr.New(apperr.ErrForbidden, "Admins can only invite regular users")
		}
		if req.CompanyID != nil && *req.CompanyID != *caller.CompanyID {
			return nil, apperr.New(apperr.ErrForbidden, "Cannot invite users to another company")
		}
		companyID = *caller.CompanyID
	default:
		return nil, apperr.ErrForbidden
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, apperr.New(apperr.ErrValidation, "Company is inactive")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.ErrConflict, "User with this email already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	pending, err := s.invitations.HasPending(ctx, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperr.New(apperr.ErrConflict, "Pending invitation already exists for this email")
	}

	token, err := utils.NewURLToken(32)
	if err != nil {
		return nil, err
	}
	inv := &models.Invitation{
		Email:     email,
		Role:      req.Role,
		CompanyID: companyID,
		InvitedBy: actor(caller),
		Token:     token,
		Status:    models.InvitationPending,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	if err := s.email.SendInvitation(email, company.Name, inv.Role.String(), s.acceptLink(token), inv.ExpiresAt); err != nil {
		logs.Logger.WithError(err).Warnf("[invitation][create] email to %s", email)
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &companyID, Action: models.AuditInvitationSent,
		ResourceType: "invitation", ResourceID: inv.ID, Details: map[string]any{"email": email, "role": inv.Role}})
	logs.Logger.Infof("[invitation][create] id=%s company=%s role=%s", inv.ID, companyID, inv.Role)
	return inv, nil
}

func (s *invitationService) acceptLink(token string) string {
	return s.frontendURL + "/accept-invitation?token=" + url.QueryEscape(token)
}

func (s *invitationService) List(ctx context.Context, caller authz.Caller, status *models.InvitationStatus) ([]*models.Invitation, error) {
	f := models.InvitationFilter{Status: status}
	switch {
	case caller.IsSuperAdmin():
	case caller.Role == authz.RoleAdmin && caller.CompanyID != nil:
		f.CompanyID = caller.CompanyID
	default:
		return nil, apperr.ErrForbidden
	}
	return s.invitations.List(ctx, f)
}

func (s *invitationService) Get(ctx context.Context, caller authz.Caller, id string) (*models.Invitation, error) {
	if !caller.Role.AtLeast(authz.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireCompanyAccess(caller, inv.CompanyID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invitationService) Cancel(ctx context.Context, caller authz.Caller, id string) error {
	inv, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if inv.Status != models.InvitationPending {
		return apperr.New(apperr.ErrValidation, "Can only cancel pending invitations")
	}
	if err := s.invitations.Transition(ctx, id, models.InvitationPending, models.InvitationCancelled); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &inv.CompanyID, Action: models.AuditInvitationCanceled,
		ResourceType: "invitation", ResourceID: inv.ID})
	return nil
}

func (s *invitationService) Lookup(ctx context.Context, token string) (*InvitationInfo, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvitationPending && inv.Expired(s.now()) {
		if err := s.invitations.Transition(ctx, inv.ID, models.InvitationPending, models.InvitationExpired); err == nil {
			inv.Status = models.InvitationExpired
		}
	}
	info := &InvitationInfo{
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    inv.Status,
		ExpiresAt: inv.ExpiresAt,
	}
	if c, err := s.companies.GetByID(ctx, inv.CompanyID); err == nil {
		info.CompanyName = c.Name
	}
	return info, nil
}
