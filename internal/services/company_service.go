package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/config"
	"signage/internal/logs"
	"signage/internal/models"
	"signage/internal/pdf"
	"signage/internal/repositories"
)

var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// NormalizeSubdomain lower-cases s and checks it only uses letters, digits
// and inner hyphens.
func NormalizeSubdomain(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !subdomainRe.MatchString(s) {
		return "", apperr.New(apperr.ErrValidation, "Subdomain can only contain letters, numbers, and hyphens")
	}
	return s, nil
}

type CompanyService interface {
	Create(ctx context.Context, caller authz.Caller, req models.CreateCompanyRequest) (*models.Company, error)
	List(ctx context.Context, caller authz.Caller, offset, limit int) ([]*models.CompanyWithCounts, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*models.Company, error)
	Update(ctx context.Context, caller authz.Caller, id string, req models.UpdateCompanyRequest) (*models.Company, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
	SetActive(ctx context.Context, caller authz.Caller, id string, active bool) error
	Stats(ctx context.Context, caller authz.Caller, id string) (*models.CompanyStats, error)
	Report(ctx context.Context, caller authz.Caller, id string) ([]byte, error)
}

type companyService struct {
	companies repositories.CompanyRepository
	users     repositories.UserRepository
	devices   repositories.DeviceRepository
	reports   pdf.Generator
	audit     AuditService
	limits    config.LimitsConfig
}

func NewCompanyService(
	companies repositories.CompanyRepository,
	users repositories.UserRepository,
	devices repositories.DeviceRepository,
	reports pdf.Generator,
	audit AuditService,
	limits config.LimitsConfig,
) CompanyService {
	return &companyService{
		companies: companies,
		users:     users,
		devices:   devices,
		reports:   reports,
		audit:     audit,
		limits:    limits,
	}
}

func requireSuperAdmin(caller authz.Caller) error {
	if !caller.IsSuperAdmin() {
		return apperr.New(apperr.ErrForbidden, "Super admin access required")
	}
	return nil
}

func requireCompanyAccess(caller authz.Caller, companyID string) error {
	if !authz.CanAccessCompany(caller, companyID) {
		return apperr.New(apperr.ErrForbidden, "You don't have access to this company")
	}
	return nil
}

func normalizeOptionalSubdomain(s *string) (*string, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v, err := NormalizeSubdomain(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *companyService) Create(ctx context.Context, caller authz.Caller, req models.CreateCompanyRequest) (*models.Company, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	sub, err := normalizeOptionalSubdomain(req.Subdomain)
	if err != nil {
		return nil, err
	}
	c := &models.Company{
		Name:       strings.TrimSpace(req.Name),
		Subdomain:  sub,
		LogoURL:    req.LogoURL,
		IsActive:   true,
		MaxUsers:   s.limits.DefaultMaxUsers,
		MaxDevices: s.limits.DefaultMaxDevices,
	}
	if req.MaxUsers != nil {
		c.MaxUsers = *req.MaxUsers
	}
	if req.MaxDevices != nil {
		c.MaxDevices = *req.MaxDevices
	}
	if err := s.companies.Create(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &c.ID, Action: models.AuditCompanyCreated,
		ResourceType: "company", ResourceID: c.ID, Details: map[string]any{"name": c.Name}})
	logs.Logger.Infof("[company][create] id=%s name=%q", c.ID, c.Name)
	return c, nil
}

func (s *companyService) List(ctx context.Context, caller authz.Caller, offset, limit int) ([]*models.CompanyWithCounts, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	return s.companies.List(ctx, offset, limit)
}

func (s *companyService) Get(ctx context.Context, caller authz.Caller, id string) (*models.Company, error) {
	if err := requireCompanyAccess(caller, id); err != nil {
		return nil, err
	}
	return s.companies.GetByID(ctx, id)
}

func (s *companyService) Update(ctx context.Context, caller authz.Caller, id string, req models.UpdateCompanyRequest) (*models.Company, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	c, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Subdomain != nil {
		if c.Subdomain, err = normalizeOptionalSubdomain(req.Subdomain); err != nil {
			return nil, err
		}
	}
	if req.LogoURL != nil {
		c.LogoURL = req.LogoURL
	}
	if req.MaxUsers != nil {
		c.MaxUsers = *req.MaxUsers
	}
	if req.MaxDevices != nil {
		c.MaxDevices = *req.MaxDevices
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if err := s.companies.Update(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &c.ID, Action: models.AuditCompanyUpdated,
		ResourceType: "company", ResourceID: c.ID})
	return c, nil
}

func (s *companyService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}
	if err := s.companies.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), Action: models.AuditCompanyDeleted,
		ResourceType: "company", ResourceID: id})
	logs.Logger.Infof("[company][delete] id=%s", id)
	return nil
}

func (s *companyService) SetActive(ctx context.Context, caller authz.Caller, id string, active bool) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}
	if err := s.companies.SetActive(ctx, id, active); err != nil {
		return err
	}
	action := models.AuditCompanyDeactivated
	if active {
		action = models.AuditCompanyActivated
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &id, Action: action,
		ResourceType: "company", ResourceID: id})
	return nil
}

func (s *companyService) Stats(ctx context.Context, caller authz.Caller, id string) (*models.CompanyStats, error) {
	if !caller.Role.AtLeast(authz.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	if err := requireCompanyAccess(caller, id); err != nil {
		return nil, err
	}
	return s.companies.Stats(ctx, id)
}

func (s *companyService) Report(ctx context.Context, caller authz.Caller, id string) ([]byte, error) {
	stats, err := s.Stats(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	c, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, models.UserFilter{CompanyID: &id, Limit: 100})
	if err != nil {
		return nil, err
	}
	devices, err := s.devices.List(ctx, models.DeviceFilter{CompanyID: &id, Limit: 100})
	if err != nil {
		return nil, err
	}
	return s.reports.CompanyReport(pdf.ReportData{
		Company:     c,
		Stats:       stats,
		Users:       users,
		Devices:     devices,
		GeneratedAt: time.Now(),
	})
}
