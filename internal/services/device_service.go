package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/config"
	"signage/internal/logs"
	"signage/internal/models"
	"signage/internal/realtime"
	"signage/internal/repositories"
	"signage/internal/utils"
)

// maxCodeAttempts bounds the draws made before giving up on a free code.
const maxCodeAttempts = 10

// HeartbeatResult is returned to unauthenticated devices, so it carries
// link state only.
type HeartbeatResult struct {
	DeviceUID string `json:"device_uid"`
	IsLinked  bool   `json:"is_linked"`
}

// DeviceEvents receives device state changes; *realtime.Hub implements it.
type DeviceEvents interface {
	Publish(eventType string, d *models.Device)
}

type noEvents struct{}

func (noEvents) Publish(string, *models.Device) {}

type DeviceService interface {
	// GenerateCode registers (or re-codes) an unlinked device of the company
	// identified by subdomain and returns its pairing code.
	GenerateCode(ctx context.Context, req models.GenerateCodeRequest) (*models.PairingCode, error)
	Heartbeat(ctx context.Context, deviceUID string) (*HeartbeatResult, error)
	Link(ctx context.Context, caller authz.Caller, code string) (*models.Device, error)
	MyDevices(ctx context.Context, caller authz.Caller) ([]*models.Device, error)
	List(ctx context.Context, caller authz.Caller, f models.DeviceFilter) ([]*models.Device, error)
	Get(ctx context.Context, caller authz.Caller, id string) (*models.Device, error)
	Rename(ctx context.Context, caller authz.Caller, id, name string) (*models.Device, error)
	Unlink(ctx context.Context, caller authz.Caller, id string) (*models.PairingCode, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
}

type deviceService struct {
	devices   repositories.DeviceRepository
	companies repositories.CompanyRepository
	email     EmailService
	audit     AuditService
	events    DeviceEvents
	limits    config.LimitsConfig
	newCode   func() (string, error)
	now       func() time.Time
}

func NewDeviceService(
	devices repositories.DeviceRepository,
	companies repositories.CompanyRepository,
	email EmailService,
	audit AuditService,
	events DeviceEvents,
	limits config.LimitsConfig,
) DeviceService {
	if events == nil {
		events = noEvents{}
	}
	return &deviceService{
		devices:   devices,
		companies: companies,
		email:     email,
		audit:     audit,
		events:    events,
		limits:    limits,
		newCode:   utils.NewPairingCode,
		now:       time.Now,
	}
}

// withFreshCode draws codes until write accepts one or the attempts run out.
func (s *deviceService) withFreshCode(write func(code string, expiresAt time.Time) error) (*models.PairingCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		expiresAt := s.now().Add(s.limits.DeviceCodeTTL())
		err = write(code, expiresAt)
		if errors.Is(err, repositories.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &models.PairingCode{
			DeviceCode:       code,
			ExpiresInMinutes: s.limits.DeviceCodeExpireMinutes,
		}, nil
	}
	logs.Logger.Warnf("[device][code] no free code after %d attempts", maxCodeAttempts)
	return nil, apperr.ErrCodeSpaceExhausted
}

func (s *deviceService) GenerateCode(ctx context.Context, req models.GenerateCodeRequest) (*models.PairingCode, error) {
	sub, err := NormalizeSubdomain(req.Subdomain)
	if err != nil {
		return nil, err
	}
	company, err := s.companies.GetBySubdomain(ctx, sub)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, apperr.New(apperr.ErrForbidden, "Company is inactive")
	}

	existing, err := s.devices.GetByUID(ctx, req.DeviceUID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	var pc *models.PairingCode
	if existing != nil {
		if existing.CompanyID != company.ID {
			return nil, apperr.New(apperr.ErrConflict, "Device is registered to another company")
		}
		if existing.IsLinked {
			return nil, apperr.New(apperr.ErrConflict, "Device is already linked")
		}
		pc, err = s.withFreshCode(func(code string, exp time.Time) error {
			return s.devices.SetCode(ctx, existing.ID, code, exp)
		})
	} else {
		var d *models.Device
		pc, err = s.withFreshCode(func(code string, exp time.Time) error {
			d = &models.Device{
				DeviceUID:     req.DeviceUID,
				DeviceName:    strings.TrimSpace(req.DeviceName),
				DeviceCode:    &code,
				CodeExpiresAt: &exp,
				CompanyID:     company.ID,
			}
			return s.devices.CreateWithCode(ctx, d)
		})
		if err == nil {
			s.audit.Record(ctx, AuditEntry{CompanyID: &company.ID, Action: models.AuditDeviceCreated,
				ResourceType: "device", ResourceID: d.ID, Details: map[string]any{"device_uid": d.DeviceUID}})
			s.events.Publish(realtime.EventDeviceRegistered, d)
		}
	}
	if err != nil {
		return nil, err
	}
	pc.DeviceUID = req.DeviceUID
	return pc, nil
}

func (s *deviceService) Heartbeat(ctx context.Context, deviceUID string) (*HeartbeatResult, error) {
	d, err := s.devices.Heartbeat(ctx, deviceUID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(realtime.EventDeviceHeartbeat, d)
	return &HeartbeatResult{DeviceUID: d.DeviceUID, IsLinked: d.IsLinked}, nil
}

func (s *deviceService) Link(ctx context.Context, caller authz.Caller, code string) (*models.Device, error) {
	if !authz.CanPairDevices(caller) {
		return nil, apperr.New(apperr.ErrForbidden, "You don't have permission to add devices")
	}
	if caller.CompanyID == nil {
		return nil, apperr.New(apperr.ErrForbidden, "Device pairing requires a company account")
	}
	d, err := s.devices.Link(ctx, *caller.CompanyID, strings.TrimSpace(code), caller.UserID, s.limits.MaxDevicesPerUser)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCode) {
			logs.Logger.Infof("[device][link] user=%s rejected code", caller.UserID)
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: caller.CompanyID, Action: models.AuditDeviceLinked,
		ResourceType: "device", ResourceID: d.ID, Details: map[string]any{"device_name": d.DeviceName}})
	if err := s.email.SendDeviceLinked(caller.Email, d.DeviceName); err != nil {
		logs.Logger.WithError(err).Warnf("[device][link] notify %s", caller.Email)
	}
	s.events.Publish(realtime.EventDeviceLinked, d)
	logs.Logger.Infof("[device][link] device=%s user=%s", d.ID, caller.UserID)
	return d, nil
}

func (s *deviceService) MyDevices(ctx context.Context, caller authz.Caller) ([]*models.Device, error) {
	uid := caller.UserID
	return s.devices.List(ctx, models.DeviceFilter{UserID: &uid})
}

func (s *deviceService) List(ctx context.Context, caller authz.Caller, f models.DeviceFilter) ([]*models.Device, error) {
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
	return s.devices.List(ctx, f)
}

// canControl: the owner, an admin of the device's company, or a super admin.
func canControl(caller authz.Caller, d *models.Device) bool {
	if d.UserID != nil && *d.UserID == caller.UserID {
		return true
	}
	return caller.Role.AtLeast(authz.RoleAdmin) && authz.CanAccessCompany(caller, d.CompanyID)
}

func (s *deviceService) controlled(ctx context.Context, caller authz.Caller, id string) (*models.Device, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canControl(caller, d) {
		return nil, apperr.New(apperr.ErrForbidden, "You don't have access to this device")
	}
	return d, nil
}

func (s *deviceService) Get(ctx context.Context, caller authz.Caller, id string) (*models.Device, error) {
	return s.controlled(ctx, caller, id)
}

func (s *deviceService) Rename(ctx context.Context, caller authz.Caller, id, name string) (*models.Device, error) {
	d, err := s.controlled(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.ErrValidation, "device_name is required")
	}
	if err := s.devices.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	d.DeviceName = name
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &d.CompanyID, Action: models.AuditDeviceUpdated,
		ResourceType: "device", ResourceID: d.ID})
	s.events.Publish(realtime.EventDeviceRenamed, d)
	return d, nil
}

func (s *deviceService) Unlink(ctx context.Context, caller authz.Caller, id string) (*models.PairingCode, error) {
	d, err := s.controlled(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !d.IsLinked {
		return nil, apperr.New(apperr.ErrConflict, "Device is not linked")
	}
	pc, err := s.withFreshCode(func(code string, exp time.Time) error {
		return s.devices.Unlink(ctx, id, code, exp)
	})
	if err != nil {
		return nil, err
	}
	pc.DeviceUID = d.DeviceUID
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &d.CompanyID, Action: models.AuditDeviceUnlinked,
		ResourceType: "device", ResourceID: d.ID})
	d.UserID, d.IsLinked, d.LinkedAt, d.DeviceCode, d.CodeExpiresAt = nil, false, nil, nil, nil
	s.events.Publish(realtime.EventDeviceUnlinked, d)
	return pc, nil
}

func (s *deviceService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	d, err := s.controlled(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.devices.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: actor(caller), CompanyID: &d.CompanyID, Action: models.AuditDeviceDeleted,
		ResourceType: "device", ResourceID: d.ID})
	s.events.Publish(realtime.EventDeviceDeleted, d)
	return nil
}
