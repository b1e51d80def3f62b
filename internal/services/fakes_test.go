package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/config"
	"signage/internal/models"
	"signage/internal/repositories"
)

// memStore backs the fake repositories with the same transactional
// guarantees as the postgres ones: a single mutex plays the row locks.
type memStore struct {
	mu          sync.Mutex
	seq         int
	companies   map[string]*models.Company
	users       map[string]*models.User
	devices     map[string]*models.Device
	invitations map[string]*models.Invitation
	audits      []*models.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		companies:   map[string]*models.Company{},
		users:       map[string]*models.User{},
		devices:     map[string]*models.Device{},
		invitations: map[string]*models.Invitation{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func notFound(what string) error { return apperr.New(apperr.ErrNotFound, what+" not found") }

func strPtr(s string) *string { return &s }

// ---- companies

type fakeCompanies struct{ *memStore }

func (f fakeCompanies) Create(_ context.Context, c *models.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.Subdomain != nil {
		for _, o := range f.companies {
			if o.Subdomain != nil && *o.Subdomain == *c.Subdomain {
				return apperr.New(apperr.ErrConflict, "Subdomain already taken")
			}
		}
	}
	if c.ID == "" {
		c.ID = f.nextID("company")
	}
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	cp := *c
	f.companies[c.ID] = &cp
	return nil
}

func (f fakeCompanies) GetByID(_ context.Context, id string) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, notFound("Company")
	}
	cp := *c
	return &cp, nil
}

func (f fakeCompanies) GetBySubdomain(_ context.Context, sub string) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if c.Subdomain != nil && *c.Subdomain == sub {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("Company")
}

func (f fakeCompanies) List(_ context.Context, _, _ int) ([]*models.CompanyWithCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.CompanyWithCounts
	for _, c := range f.companies {
		row := &models.CompanyWithCounts{Company: *c}
		for _, u := range f.users {
			if u.CompanyID != nil && *u.CompanyID == c.ID {
				row.CurrentUsers++
			}
		}
		for _, d := range f.devices {
			if d.CompanyID == c.ID {
				row.CurrentDevices++
			}
		}
		res = append(res, row)
	}
	return res, nil
}

func (f fakeCompanies) Update(_ context.Context, c *models.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, ok := f.companies[c.ID]
	if !ok {
		return notFound("Company")
	}
	if c.Subdomain != nil {
		for id, o := range f.companies {
			if id != c.ID && o.Subdomain != nil && *o.Subdomain == *c.Subdomain {
				return apperr.New(apperr.ErrConflict, "Subdomain already taken")
			}
		}
	}
	var users, devices int
	for _, u := range f.users {
		if u.CompanyID != nil && *u.CompanyID == c.ID {
			users++
		}
	}
	for _, d := range f.devices {
		if d.CompanyID == c.ID {
			devices++
		}
	}
	if c.MaxUsers < prev.MaxUsers && c.MaxUsers < users ||
		c.MaxDevices < prev.MaxDevices && c.MaxDevices < devices {
		return apperr.New(apperr.ErrValidation, "Limit below current usage")
	}
	if prev.IsActive && !c.IsActive {
		f.deactivateLocked(c.ID)
	}
	cp := *c
	f.companies[c.ID] = &cp
	return nil
}

func (f fakeCompanies) deactivateLocked(id string) {
	for _, u := range f.users {
		if u.CompanyID != nil && *u.CompanyID == id {
			u.IsActive = false
		}
	}
	for _, d := range f.devices {
		if d.CompanyID == id {
			d.IsOnline = false
		}
	}
}

func (f fakeCompanies) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.companies[id]; !ok {
		return notFound("Company")
	}
	delete(f.companies, id)
	for k, u := range f.users {
		if u.CompanyID != nil && *u.CompanyID == id {
			delete(f.users, k)
		}
	}
	for k, d := range f.devices {
		if d.CompanyID == id {
			delete(f.devices, k)
		}
	}
	return nil
}

func (f fakeCompanies) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return notFound("Company")
	}
	c.IsActive = active
	if !active {
		f.deactivateLocked(id)
	}
	return nil
}

func (f fakeCompanies) Stats(_ context.Context, id string) (*models.CompanyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, notFound("Company")
	}
	s := &models.CompanyStats{CompanyID: id, CompanyName: c.Name}
	s.Users.MaxAllowed, s.Devices.MaxAllowed = c.MaxUsers, c.MaxDevices
	for _, u := range f.users {
		if u.CompanyID != nil && *u.CompanyID == id {
			s.Users.Total++
		}
	}
	for _, d := range f.devices {
		if d.CompanyID == id {
			s.Devices.Total++
		}
	}
	s.Users.Remaining = c.MaxUsers - s.Users.Total
	s.Devices.Remaining = c.MaxDevices - s.Devices.Total
	return s, nil
}

// ---- users

type fakeUsers struct{ *memStore }

func (f fakeUsers) insertLocked(u *models.User) error {
	for _, o := range f.users {
		if strings.EqualFold(o.Email, u.Email) {
			return apperr.New(apperr.ErrConflict, "User with this email already exists")
		}
	}
	if u.ID == "" {
		u.ID = f.nextID("user")
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) capacityLocked(u *models.User) error {
	c, ok := f.companies[*u.CompanyID]
	if !ok {
		return notFound("Company")
	}
	n := 0
	for _, o := range f.users {
		if o.CompanyID != nil && *o.CompanyID == c.ID {
			n++
		}
	}
	if n >= c.MaxUsers {
		return apperr.New(apperr.ErrLimitExceeded, fmt.Sprintf("Company has reached maximum user limit (%d)", c.MaxUsers))
	}
	return nil
}

func (f fakeUsers) CreateFirstSuperAdmin(_ context.Context, u *models.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.users) > 0 {
		return false, nil
	}
	return true, f.insertLocked(u)
}

func (f fakeUsers) CreateInCompany(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.capacityLocked(u); err != nil {
		return err
	}
	return f.insertLocked(u)
}

func (f fakeUsers) CreateFromInvitation(_ context.Context, u *models.User, invitationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invitations[invitationID]
	if !ok || inv.Status != models.InvitationPending || time.Now().After(inv.ExpiresAt) {
		return apperr.ErrUserNotInvited
	}
	if err := f.capacityLocked(u); err != nil {
		return err
	}
	if err := f.insertLocked(u); err != nil {
		return err
	}
	now := time.Now()
	inv.Status = models.InvitationAccepted
	inv.AcceptedAt = &now
	return nil
}

func (f fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("User")
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f fakeUsers) GetByGoogleID(_ context.Context, gid string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.GoogleID != nil && *u.GoogleID == gid })
}

func (f fakeUsers) List(_ context.Context, flt models.UserFilter) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.User
	for _, u := range f.users {
		if flt.CompanyID != nil && (u.CompanyID == nil || *u.CompanyID != *flt.CompanyID) {
			continue
		}
		if flt.Role != nil && u.Role != *flt.Role {
			continue
		}
		if flt.IsActive != nil && u.IsActive != *flt.IsActive {
			continue
		}
		cp := *u
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f fakeUsers) mutate(id string, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return notFound("User")
	}
	fn(u)
	return nil
}

func (f fakeUsers) Update(_ context.Context, u *models.User) error {
	return f.mutate(u.ID, func(s *models.User) {
		s.FullName, s.ProfilePictureURL = u.FullName, u.ProfilePictureURL
		s.CanAddDevices, s.IsActive = u.CanAddDevices, u.IsActive
	})
}

func (f fakeUsers) RecordLogin(_ context.Context, u *models.User) error {
	now := time.Now()
	u.LastLogin = &now
	return f.mutate(u.ID, func(s *models.User) {
		s.GoogleID, s.ProfilePictureURL, s.LastLogin = u.GoogleID, u.ProfilePictureURL, &now
		if u.GoogleRefreshToken != nil {
			s.GoogleRefreshToken = u.GoogleRefreshToken
		}
	})
}

func (f fakeUsers) SetActive(_ context.Context, id string, active bool) error {
	return f.mutate(id, func(s *models.User) { s.IsActive = active })
}

func (f fakeUsers) SetCanAddDevices(_ context.Context, id string, v bool) error {
	return f.mutate(id, func(s *models.User) { s.CanAddDevices = v })
}

func (f fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return notFound("User")
	}
	delete(f.users, id)
	return nil
}

// ---- devices

type fakeDevices struct{ *memStore }

func (f fakeDevices) codeTakenLocked(companyID, code, exceptID string) bool {
	for _, d := range f.devices {
		if d.ID != exceptID && d.CompanyID == companyID && d.DeviceCode != nil && *d.DeviceCode == code {
			return true
		}
	}
	return false
}

func (f fakeDevices) CreateWithCode(_ context.Context, d *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[d.CompanyID]
	if !ok {
		return notFound("Company")
	}
	n := 0
	for _, o := range f.devices {
		if o.CompanyID == c.ID {
			n++
		}
		if o.DeviceUID == d.DeviceUID {
			return apperr.New(apperr.ErrConflict, "Device already registered")
		}
	}
	if n >= c.MaxDevices {
		return apperr.New(apperr.ErrLimitExceeded, fmt.Sprintf("Company has reached maximum device limit (%d)", c.MaxDevices))
	}
	if f.codeTakenLocked(d.CompanyID, *d.DeviceCode, "") {
		return repositories.ErrCodeTaken
	}
	if d.ID == "" {
		d.ID = f.nextID("device")
	}
	cp := *d
	f.devices[d.ID] = &cp
	return nil
}

func (f fakeDevices) SetCode(_ context.Context, id, code string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok || d.IsLinked {
		return apperr.New(apperr.ErrConflict, "Device is already linked")
	}
	if f.codeTakenLocked(d.CompanyID, code, id) {
		return repositories.ErrCodeTaken
	}
	d.DeviceCode, d.CodeExpiresAt = &code, &exp
	return nil
}

func (f fakeDevices) Link(_ context.Context, companyID, code, userID string, maxPerUser int) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hit *models.Device
	for _, d := range f.devices {
		if d.CompanyID == companyID && d.DeviceCode != nil && *d.DeviceCode == code &&
			!d.IsLinked && d.UserID == nil && d.CodeExpiresAt != nil && d.CodeExpiresAt.After(time.Now()) {
			hit = d
			break
		}
	}
	if hit == nil {
		return nil, apperr.ErrInvalidCode
	}
	owned := 0
	for _, d := range f.devices {
		if d.UserID != nil && *d.UserID == userID {
			owned++
		}
	}
	if maxPerUser > 0 && owned+1 > maxPerUser {
		return nil, apperr.New(apperr.ErrLimitExceeded, "Maximum devices per user reached")
	}
	now := time.Now()
	hit.UserID, hit.IsLinked, hit.LinkedAt = strPtr(userID), true, &now
	hit.DeviceCode, hit.CodeExpiresAt = nil, nil
	cp := *hit
	return &cp, nil
}

func (f fakeDevices) Unlink(_ context.Context, id, code string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok || !d.IsLinked {
		return apperr.New(apperr.ErrConflict, "Device is not linked")
	}
	if f.codeTakenLocked(d.CompanyID, code, id) {
		return repositories.ErrCodeTaken
	}
	d.UserID, d.IsLinked, d.LinkedAt = nil, false, nil
	d.DeviceCode, d.CodeExpiresAt = &code, &exp
	return nil
}

func (f fakeDevices) find(match func(*models.Device) bool) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if match(d) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, notFound("Device")
}

func (f fakeDevices) GetByID(_ context.Context, id string) (*models.Device, error) {
	return f.find(func(d *models.Device) bool { return d.ID == id })
}

func (f fakeDevices) GetByUID(_ context.Context, uid string) (*models.Device, error) {
	return f.find(func(d *models.Device) bool { return d.DeviceUID == uid })
}

func (f fakeDevices) List(_ context.Context, flt models.DeviceFilter) ([]*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.Device
	for _, d := range f.devices {
		if flt.CompanyID != nil && d.CompanyID != *flt.CompanyID {
			continue
		}
		if flt.UserID != nil && (d.UserID == nil || *d.UserID != *flt.UserID) {
			continue
		}
		if flt.IsLinked != nil && d.IsLinked != *flt.IsLinked {
			continue
		}
		cp := *d
		res = append(res, &cp)
	}
	return res, nil
}

func (f fakeDevices) Rename(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok {
		return notFound("Device")
	}
	d.DeviceName = name
	return nil
}

func (f fakeDevices) Heartbeat(_ context.Context, uid string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.DeviceUID == uid {
			now := time.Now()
			d.IsOnline, d.LastSeen = true, &now
			cp := *d
			return &cp, nil
		}
	}
	return nil, notFound("Device")
}

func (f fakeDevices) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[id]; !ok {
		return notFound("Device")
	}
	delete(f.devices, id)
	return nil
}

// ---- invitations

type fakeInvitations struct{ *memStore }

func (f fakeInvitations) Create(_ context.Context, inv *models.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv.ID == "" {
		inv.ID = f.nextID("inv")
	}
	inv.CreatedAt = time.Now()
	cp := *inv
	f.invitations[inv.ID] = &cp
	return nil
}

func (f fakeInvitations) find(match func(*models.Invitation) bool) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.Invitation
	for _, i := range f.invitations {
		if match(i) && (best == nil || i.CreatedAt.After(best.CreatedAt)) {
			best = i
		}
	}
	if best == nil {
		return nil, notFound("Invitation")
	}
	cp := *best
	return &cp, nil
}

func (f fakeInvitations) GetByID(_ context.Context, id string) (*models.Invitation, error) {
	return f.find(func(i *models.Invitation) bool { return i.ID == id })
}

func (f fakeInvitations) GetByToken(_ context.Context, token string) (*models.Invitation, error) {
	return f.find(func(i *models.Invitation) bool { return i.Token == token })
}

func (f fakeInvitations) LatestPendingByEmail(_ context.Context, email string) (*models.Invitation, error) {
	return f.find(func(i *models.Invitation) bool {
		return strings.EqualFold(i.Email, email) && i.Status == models.InvitationPending
	})
}

func (f fakeInvitations) HasPending(_ context.Context, email string) (bool, error) {
	_, err := f.find(func(i *models.Invitation) bool {
		return strings.EqualFold(i.Email, email) && i.Status == models.InvitationPending && time.Now().Before(i.ExpiresAt)
	})
	return err == nil, nil
}

func (f fakeInvitations) List(_ context.Context, flt models.InvitationFilter) ([]*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.Invitation
	for _, i := range f.invitations {
		if flt.CompanyID != nil && i.CompanyID != *flt.CompanyID {
			continue
		}
		if flt.Status != nil && i.Status != *flt.Status {
			continue
		}
		cp := *i
		res = append(res, &cp)
	}
	return res, nil
}

func (f fakeInvitations) Transition(_ context.Context, id string, from, to models.InvitationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.invitations[id]
	if !ok || i.Status != from {
		return apperr.New(apperr.ErrConflict, "Invitation is not "+string(from))
	}
	i.Status = to
	return nil
}

// ---- audit

type fakeAudit struct{ *memStore }

func (f fakeAudit) Create(_ context.Context, l *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.audits = append(f.audits, &cp)
	return nil
}

func (f fakeAudit) List(_ context.Context, flt models.AuditFilter) ([]*models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*models.AuditLog
	for _, l := range f.audits {
		if flt.CompanyID != nil && (l.CompanyID == nil || *l.CompanyID != *flt.CompanyID) {
			continue
		}
		res = append(res, l)
	}
	return res, nil
}

func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, l := range m.audits {
		out = append(out, l.Action)
	}
	return out
}

// ---- collaborators

type sentMail struct{ kind, to string }

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (e *fakeEmail) record(kind, to string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, sentMail{kind, to})
	return nil
}

func (e *fakeEmail) SendInvitation(to, _, _, _ string, _ time.Time) error {
	return e.record("invitation", to)
}
func (e *fakeEmail) SendWelcome(to, _, _ string) error { return e.record("welcome", to) }

func (e *fakeEmail) SendDeviceLinked(to, _ string) error { return e.record("device", to) }

type fakeProvider struct {
	ident *models.GoogleIdentity
	err   error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, string) (*models.GoogleIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.ident
	return &cp, nil
}

// ---- fixture

var testLimits = config.LimitsConfig{
	DefaultMaxUsers:         10,
	DefaultMaxDevices:       5,
	MaxDevicesPerUser:       10,
	DeviceCodeExpireMinutes: 15,
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *fakeEvents) Publish(eventType string, _ *models.Device) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, eventType)
}

func (e *fakeEvents) published() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.types...)
}

type fixture struct {
	store    *memStore
	email    *fakeEmail
	events   *fakeEvents
	provider *fakeProvider
	tokens   TokenService
	audit    AuditService

	auth        AuthService
	users       UserService
	companies   CompanyService
	devices     DeviceService
	invitations InvitationService
}

func newFixture() *fixture {
	st := newMemStore()
	f := &fixture{
		store:    st,
		email:    &fakeEmail{},
		events:   &fakeEvents{},
		provider: &fakeProvider{},
		tokens:   NewTokenService("test-secret", 30*time.Minute, 7*24*time.Hour),
	}
	f.audit = NewAuditService(fakeAudit{st})
	f.auth = NewAuthService(fakeUsers{st}, fakeInvitations{st}, fakeCompanies{st}, f.tokens, f.provider, nil, f.email, f.audit)
	f.users = NewUserService(fakeUsers{st}, fakeCompanies{st}, f.email, f.audit)
	f.companies = NewCompanyService(fakeCompanies{st}, fakeUsers{st}, fakeDevices{st}, nil, f.audit, testLimits)
	f.devices = NewDeviceService(fakeDevices{st}, fakeCompanies{st}, f.email, f.audit, f.events, testLimits)
	f.invitations = NewInvitationService(fakeInvitations{st}, fakeUsers{st}, fakeCompanies{st}, f.email, f.audit, 72*time.Hour, "https://app.example")
	return f
}

func (f *fixture) company(name, sub string, maxUsers, maxDevices int) *models.Company {
	c := &models.Company{Name: name, Subdomain: strPtr(sub), IsActive: true, MaxUsers: maxUsers, MaxDevices: maxDevices}
	if err := (fakeCompanies{f.store}).Create(context.Background(), c); err != nil {
		panic(err)
	}
	return c
}

func (f *fixture) user(email string, role authz.Role, companyID *string) *models.User {
	u := &models.User{Email: email, FullName: email, Role: role, CompanyID: companyID, IsActive: true,
		CanAddDevices: role != authz.RoleUser}
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if err := (fakeUsers{f.store}).insertLocked(u); err != nil {
		panic(err)
	}
	return u
}
