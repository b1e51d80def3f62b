package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/logs"
	"signage/internal/models"
	"signage/internal/repositories"
	"signage/internal/utils"
)

type VerifyResult struct {
	Valid     bool       `json:"valid"`
	UserID    string     `json:"user_id,omitempty"`
	Role      string     `json:"role,omitempty"`
	CompanyID *string    `json:"company_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type AuthService interface {
	LoginURL(invitationToken string) (string, error)
	Callback(ctx context.Context, code, state string) (*models.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	// Authenticate resolves a bearer access token to an active user.
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	VerifyToken(token string) *VerifyResult
}

type authService struct {
	users       repositories.UserRepository
	invitations repositories.InvitationRepository
	companies   repositories.CompanyRepository
	tokens      TokenService
	provider    IdentityProvider
	sealer      *utils.Sealer
	email       EmailService
	audit       AuditService
	now         func() time.Time
}

func NewAuthService(
	users repositories.UserRepository,
	invitations repositories.InvitationRepository,
	companies repositories.CompanyRepository,
	tokens TokenService,
	provider IdentityProvider,
	sealer *utils.Sealer,
	email EmailService,
	audit AuditService,
) AuthService {
	return &authService{
		users:       users,
		invitations: invitations,
		companies:   companies,
		tokens:      tokens,
		provider:    provider,
		sealer:      sealer,
		email:       email,
		audit:       audit,
		now:         time.Now,
	}
}

func (s *authService) LoginURL(invitationToken string) (string, error) {
	state, err := s.tokens.IssueState(invitationToken)
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

func (s *authService) Callback(ctx context.Context, code, state string) (*models.TokenResponse, error) {
	invitationToken, err := s.tokens.ValidateState(state)
	if err != nil {
		return nil, err
	}
	ident, err := s.provider.Exchange(ctx, code)
	if err != nil {
		logs.Logger.WithError(err).Warn("[auth][callback] provider exchange failed")
		return nil, apperr.New(apperr.ErrUnauthorized, "Failed to authenticate with Google")
	}
	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))

	var sealed *string
	if ident.RefreshToken != "" && s.sealer != nil {
		v, err := s.sealer.Seal(ident.RefreshToken)
		if err != nil {
			return nil, err
		}
		sealed = &v
	}

	u, err := s.findExisting(ctx, ident)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return s.signInExisting(ctx, u, ident, sealed)
	}
	return s.register(ctx, ident, sealed, invitationToken)
}

// findExisting looks the identity up by provider subject, then by email.
func (s *authService) findExisting(ctx context.Context, ident *models.GoogleIdentity) (*models.User, error) {
	u, err := s.users.GetByGoogleID(ctx, ident.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	u, err = s.users.GetByEmail(ctx, ident.Email)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

func (s *authService) signInExisting(ctx context.Context, u *models.User, ident *models.GoogleIdentity, sealed *string) (*models.TokenResponse, error) {
	if !u.IsActive {
		s.audit.Record(ctx, AuditEntry{ActorID: &u.ID, CompanyID: u.CompanyID, Action: models.AuditLoginFailed,
			ResourceType: "user", ResourceID: u.ID, Details: map[string]any{"reason": "inactive"}})
		return nil, apperr.New(apperr.ErrForbidden, "Account is deactivated")
	}
	if u.GoogleID != nil && *u.GoogleID != ident.Subject {
		return nil, apperr.New(apperr.ErrForbidden, "Email is linked to a different Google account")
	}
	sub := ident.Subject
	u.GoogleID = &sub
	if ident.Picture != "" {
		pic := ident.Picture
		u.ProfilePictureURL = &pic
	}
	u.GoogleRefreshToken = sealed
	if err := s.users.RecordLogin(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: &u.ID, CompanyID: u.CompanyID, Action: models.AuditLogin,
		ResourceType: "user", ResourceID: u.ID})
	logs.Logger.Infof("[auth][callback] user=%s role=%s signed in", u.ID, u.Role)
	return s.tokens.IssuePair(u)
}

func (s *authService) register(ctx context.Context, ident *models.GoogleIdentity, sealed *string, invitationToken string) (*models.TokenResponse, error) {
	now := s.now().UTC()
	sub := ident.Subject
	u := &models.User{
		Email:              ident.Email,
		GoogleID:           &sub,
		FullName:           displayName(ident),
		IsActive:           true,
		GoogleRefreshToken: sealed,
		LastLogin:          &now,
	}
	if ident.Picture != "" {
		pic := ident.Picture
		u.ProfilePictureURL = &pic
	}

	u.Role = authz.RoleSuperAdmin
	u.CanAddDevices = true
	created, err := s.users.CreateFirstSuperAdmin(ctx, u)
	if err != nil {
		return nil, err
	}
	if created {
		s.audit.Record(ctx, AuditEntry{ActorID: &u.ID, Action: models.AuditUserCreated,
			ResourceType: "user", ResourceID: u.ID, Details: map[string]any{"bootstrap": true}})
		logs.Logger.Infof("[auth][callback] first account %s created as super admin", u.Email)
		return s.tokens.IssuePair(u)
	}

	inv, err := s.findInvitation(ctx, ident.Email, invitationToken)
	if err != nil {
		return nil, err
	}
	if inv.Expired(now) {
		if err := s.invitations.Transition(ctx, inv.ID, models.InvitationPending, models.InvitationExpired); err != nil {
			logs.Logger.WithError(err).Warnf("[auth][callback] mark invitation %s expired", inv.ID)
		}
		s.audit.Record(ctx, AuditEntry{CompanyID: &inv.CompanyID, Action: models.AuditInvitationExpired,
			ResourceType: "invitation", ResourceID: inv.ID})
		return nil, apperr.New(apperr.ErrUserNotInvited, "Invitation has expired. Please ask for a new one.")
	}

	companyID := inv.CompanyID
	u.Role = inv.Role
	u.CompanyID = &companyID
	u.CanAddDevices = inv.Role == authz.RoleAdmin
	if err := s.users.CreateFromInvitation(ctx, u, inv.ID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{ActorID: &u.ID, CompanyID: u.CompanyID, Action: models.AuditInvitationAccepted,
		ResourceType: "invitation", ResourceID: inv.ID, Details: map[string]any{"role": inv.Role}})
	if c, err := s.companies.GetByID(ctx, companyID); err == nil {
		if err := s.email.SendWelcome(u.Email, u.FullName, c.Name); err != nil {
			logs.Logger.WithError(err).Warnf("[auth][callback] welcome email to %s", u.Email)
		}
	}
	logs.Logger.Infof("[auth][callback] user %s joined company %s as %s", u.Email, companyID, u.Role)
	return s.tokens.IssuePair(u)
}

// findInvitation prefers the invitation named in the login link and falls
// back to the newest pending one for the email.
func (s *authService) findInvitation(ctx context.Context, email, token string) (*models.Invitation, error) {
	if token != "" {
		inv, err := s.invitations.GetByToken(ctx, token)
		if err == nil && strings.EqualFold(inv.Email, email) && inv.Status == models.InvitationPending {
			return inv, nil
		}
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	inv, err := s.invitations.LatestPendingByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		s.audit.Record(ctx, AuditEntry{Action: models.AuditLoginFailed,
			Details: map[string]any{"email": email, "reason": "not invited"}})
		return nil, apperr.ErrUserNotInvited
	}
	return inv, err
}

func displayName(ident *models.GoogleIdentity) string {
	if n := strings.TrimSpace(ident.Name); n != "" {
		return n
	}
	if at := strings.IndexByte(ident.Email, '@'); at > 0 {
		return ident.Email[:at]
	}
	return ident.Email
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	claims, err := s.tokens.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.New(apperr.ErrUnauthorized, "User not found")
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.New(apperr.ErrUnauthorized, "User is inactive")
	}
	s.audit.Record(ctx, AuditEntry{ActorID: &u.ID, CompanyID: u.CompanyID, Action: models.AuditTokenRefresh,
		ResourceType: "user", ResourceID: u.ID})
	return s.tokens.IssuePair(u)
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.Validate(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.New(apperr.ErrUnauthorized, "User not found")
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.New(apperr.ErrUnauthorized, "User is inactive")
	}
	return u, nil
}

func (s *authService) VerifyToken(token string) *VerifyResult {
	claims, err := s.tokens.Validate(token, TokenTypeAccess)
	if err != nil {
		return &VerifyResult{Valid: false}
	}
	res := &VerifyResult{
		Valid:     true,
		UserID:    claims.Subject,
		Role:      claims.Role,
		CompanyID: claims.CompanyID,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		res.ExpiresAt = &exp
	}
	return res
}
