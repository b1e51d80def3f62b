package services

import (
	"context"
	"errors"
	"strings"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/logs"
	"signage/internal/models"
	"signage/internal/repositories"
)

type UserService interface {
	Create(ctx context.Context, caller authz.Caller, req models.CreateUserRequest) (*models.User, error)
	List(ctx context.Context, caller authz.Caller, f models.UserFilter) ([]*models.User, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*models.User, error)
	UpdateMe(ctx context.Context, caller authz.Caller, req models.UpdateUserRequest) (*models.User, error)
	Update(ctx context.Context, caller authz.Caller, id string, req models.UpdateUserRequest) (*models.User, error)
	SetPermissions(ctx context.Context, caller authz.Caller, id string, canAddDevices bool) (*models.User, error)
	SetActive(ctx context.Context, caller authz.Caller, id string, active bool) (*models.User, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
}

type userService struct {
	users     repositories.UserRepository
	companies repositories.CompanyRepository
	email     EmailService
	audit     AuditService
}

func NewUserService(
	users repositories.UserRepository,
	companies repositories.CompanyRepository,
	email EmailService,
	audit AuditService,
) UserService {
	return &userService{users: users, companies: companies, email: email, audit: audit}
}

func (s *userService) Create(ctx context.Context, caller authz.Caller, req models.CreateUserRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = authz.RoleUser
	}
	if !role.Invitable() {
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
		if role != authz.RoleUser {
			return nil, apperr.New(apperr.ErrForbidden, "Admins can only create regular users")
		}
		if req.CompanyID != nil && *req.CompanyID != *caller.CompanyID {
			return nil, apperr.New(apperr.ErrForbidden, "Cannot create users in another company")
		}
		companyID = *caller.CompanyID
	default:
		return nil, apperr.ErrForbidden
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.ErrConflict, "User with this email already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	u := &models.User{
		Email:         email,
		FullName:      strings.TrimSpace(req.FullName),
		Role:          role,
		CompanyID:     &companyID,
		CanAddDevices: req.CanAddDevices || role == authz.RoleAdmin,
		IsActive:      true,
	}
	if err := s.users.CreateInCompany(ctx, u); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: u.CompanyID, Action: models.AuditUserCreated,
		ResourceType: "user", ResourceID: u.ID, Details: map[string]any{"email": u.Email, "role": u.Role}})
	if c, err := s.companies.GetByID(ctx, companyID); err == nil {
		if err := s.email.SendWelcome(u.Email, u.FullName, c.Name); err != nil {
			logs.Logger.WithError(err).Warnf("[user][create] welcome email to %s", u.Email)
		}
	}
	logs.Logger.Infof("[user][create] id=%s company=%s role=%s", u.ID, companyID, u.Role)
	return u, nil
}

func (s *userService) List(ctx context.Context, caller authz.Caller, f models.UserFilter) ([]*models.User, error) {
	switch {
	case caller.IsSuperAdmin():
	case caller.Role == authz.RoleAdmin && caller.CompanyID != nil:
		if f.CompanyID != nil && *f.CompanyID != *caller.CompanyID {
			return nil, apperr.New(apperr.ErrForbidden, "You don't have access to this company")
		}
		f.CompanyID = caller.CompanyID
	default:
		return nil, apperr.ErrForbidden
	}
	return s.users.List(ctx, f)
}

func (s *userService) Get(ctx context.Context, caller authz.Caller, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewUser(caller, u.Target()) {
		return nil, apperr.New(apperr.ErrForbidden, "You don't have access to this user")
	}
	return u, nil
}

// manageable loads id and checks the caller may modify it.
func (s *userService) manageable(ctx context.Context, caller authz.Caller, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageUser(caller, u.Target()) {
		return nil, apperr.New(apperr.ErrForbidden, "You don't have permission to manage this user")
	}
	return u, nil
}

func (s *userService) UpdateMe(ctx context.Context, caller authz.Caller, req models.UpdateUserRequest) (*models.User, error) {
	u, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.ProfilePictureURL != nil {
		u.ProfilePictureURL = req.ProfilePictureURL
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Update(ctx context.Context, caller authz.Caller, id string, req models.UpdateUserRequest) (*models.User, error) {
	u, err := s.manageable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.ProfilePictureURL != nil {
		u.ProfilePictureURL = req.ProfilePictureURL
	}
	if req.CanAddDevices != nil {
		u.CanAddDevices = *req.CanAddDevices
	}
	if req.IsActive != nil {
		if !*req.IsActive && u.ID == caller.UserID {
			return nil, apperr.New(apperr.ErrValidation, "Cannot deactivate yourself")
		}
		u.IsActive = *req.IsActive
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: u.CompanyID, Action: models.AuditUserUpdated,
		ResourceType: "user", ResourceID: u.ID})
	return u, nil
}

func (s *userService) SetPermissions(ctx context.Context, caller authz.Caller, id string, canAddDevices bool) (*models.User, error) {
	u, err := s.manageable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetCanAddDevices(ctx, id, canAddDevices); err != nil {
		return nil, err
	}
	u.CanAddDevices = canAddDevices
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: u.CompanyID, Action: models.AuditUserPermission,
		ResourceType: "user", ResourceID: u.ID, Details: map[string]any{"can_add_devices": canAddDevices}})
	return u, nil
}

func (s *userService) SetActive(ctx context.Context, caller authz.Caller, id string, active bool) (*models.User, error) {
	if id == caller.UserID && !active {
		return nil, apperr.New(apperr.ErrValidation, "Cannot deactivate yourself")
	}
	u, err := s.manageable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	u.IsActive = active
	action := models.AuditUserDeactivated
	if active {
		action = models.AuditUserActivated
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: u.CompanyID, Action: action,
		ResourceType: "user", ResourceID: u.ID})
	return u, nil
}

func (s *userService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if id == caller.UserID {
		return apperr.New(apperr.ErrValidation, "Cannot delete yourself")
	}
	u, err := s.manageable(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: u.CompanyID, Action: models.AuditUserDeleted,
		ResourceType: "user", ResourceID: u.ID, Details: map[string]any{"email": u.Email}})
	logs.Logger.Infof("[user][delete] id=%s by=%s", u.ID, caller.UserID)
	return nil
}
