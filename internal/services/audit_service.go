package services

import (
	"context"
	"encoding/json"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/logs"
	"signage/internal/models"
	"signage/internal/repositories"
)

type metaKey struct{}

// WithRequestMeta attaches client details for audit entries written while
// serving the request.
func WithRequestMeta(ctx context.Context, m models.RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

func requestMeta(ctx context.Context) models.RequestMeta {
	m, _ := ctx.Value(metaKey{}).(models.RequestMeta)
	return m
}

type AuditEntry struct {
	ActorID      *string
	CompanyID    *string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
}

type AuditService interface {
	// Record never fails the calling operation; write errors are logged.
	Record(ctx context.Context, e AuditEntry)
	List(ctx context.Context, caller authz.Caller, f models.AuditFilter) ([]*models.AuditLog, error)
}

type auditService struct {
	repo repositories.AuditRepository
}

func NewAuditService(repo repositories.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Record(ctx context.Context, e AuditEntry) {
	meta := requestMeta(ctx)
	l := &models.AuditLog{
		UserID:       e.ActorID,
		CompanyID:    e.CompanyID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	}
	if e.ResourceID != "" {
		id := e.ResourceID
		l.ResourceID = &id
	}
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			l.Details = b
		}
	}
	if err := s.repo.Create(ctx, l); err != nil {
		logs.Logger.WithError(err).Warnf("[audit][record] action=%s", e.Action)
	}
}

func (s *auditService) List(ctx context.Context, caller authz.Caller, f models.AuditFilter) ([]*models.AuditLog, error) {
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
	return s.repo.List(ctx, f)
}

func actor(c authz.Caller) *string {
	if c.UserID == "" {
		return nil
	}
	id := c.UserID
	return &id
}
