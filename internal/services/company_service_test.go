package services

import (
	"context"
	"errors"
	"testing"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/models"
)

func TestNormalizeSubdomain(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{" Acme-TV ", "acme-tv", false},
		{"shop1", "shop1", false},
		{"-bad", "", true},
		{"under_score", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeSubdomain(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("NormalizeSubdomain(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCompanyLifecycle(t *testing.T) {
	f := newFixture()
	root := f.user("root@x.io", authz.RoleSuperAdmin, nil)
	ctx := context.Background()

	sub := "Acme"
	c, err := f.companies.Create(ctx, root.Caller(), models.CreateCompanyRequest{Name: "Acme", Subdomain: &sub})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if *c.Subdomain != "acme" || c.MaxUsers != 10 || c.MaxDevices != 5 || !c.IsActive {
		t.Errorf("company = %+v", c)
	}
	if _, err := f.companies.Create(ctx, root.Caller(), models.CreateCompanyRequest{Name: "Dup", Subdomain: &sub}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate subdomain: err = %v", err)
	}

	admin := f.user("admin@acme.io", authz.RoleAdmin, &c.ID)
	if _, err := f.companies.Create(ctx, admin.Caller(), models.CreateCompanyRequest{Name: "Nope"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("admin creating company: err = %v", err)
	}
	if _, err := f.companies.Get(ctx, admin.Caller(), c.ID); err != nil {
		t.Errorf("admin reading own company: %v", err)
	}

	_, _ = f.devices.GenerateCode(ctx, models.GenerateCodeRequest{DeviceUID: "tv", DeviceName: "TV", Subdomain: "acme"})
	_, _ = f.devices.Heartbeat(ctx, "tv")

	stats, err := f.companies.Stats(ctx, admin.Caller(), c.ID)
	if err != nil || stats.Users.Total != 1 || stats.Devices.Total != 1 || stats.Users.Remaining != 9 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}

	if err := f.companies.SetActive(ctx, root.Caller(), c.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	u, _ := fakeUsers{f.store}.GetByID(ctx, admin.ID)
	d, _ := fakeDevices{f.store}.GetByUID(ctx, "tv")
	if u.IsActive || d.IsOnline {
		t.Errorf("deactivation should cascade: user active=%v device online=%v", u.IsActive, d.IsOnline)
	}

	other := f.company("Other", "other", 10, 5)
	if _, err := f.companies.Get(ctx, admin.Caller(), other.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("admin reading other company: err = %v", err)
	}
	if err := f.companies.Delete(ctx, root.Caller(), c.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, err := (fakeUsers{f.store}).GetByID(ctx, admin.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("users should cascade with the company, err = %v", err)
	}
}

func TestCompanyUpdate(t *testing.T) {
	f := newFixture()
	root := f.user("root@x.io", authz.RoleSuperAdmin, nil)
	ctx := context.Background()
	acme := f.company("Acme", "acme", 10, 5)
	f.company("Other", "other", 10, 5)
	admin := f.user("admin@acme.io", authz.RoleAdmin, &acme.ID)
	f.user("u@acme.io", authz.RoleUser, &acme.ID)

	taken, off := "other", false
	_, err := f.companies.Update(ctx, root.Caller(), acme.ID, models.UpdateCompanyRequest{Subdomain: &taken, IsActive: &off})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("taken subdomain: err = %v", err)
	}
	c, _ := fakeCompanies{f.store}.GetByID(ctx, acme.ID)
	u, _ := fakeUsers{f.store}.GetByID(ctx, admin.ID)
	if !c.IsActive || !u.IsActive || *c.Subdomain != "acme" {
		t.Errorf("failed update left changes: company=%+v user active=%v", c, u.IsActive)
	}

	one := 1
	if _, err := f.companies.Update(ctx, root.Caller(), acme.ID, models.UpdateCompanyRequest{MaxUsers: &one}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("max_users below usage: err = %v", err)
	}
	two := 2
	if c, err := f.companies.Update(ctx, root.Caller(), acme.ID, models.UpdateCompanyRequest{MaxUsers: &two}); err != nil || c.MaxUsers != 2 {
		t.Errorf("max_users at usage: %+v, %v", c, err)
	}

	if _, err := f.companies.Update(ctx, root.Caller(), acme.ID, models.UpdateCompanyRequest{IsActive: &off}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	u, _ = fakeUsers{f.store}.GetByID(ctx, admin.ID)
	if u.IsActive {
		t.Error("deactivation through update should cascade to users")
	}
}

func TestAuditList_Scoped(t *testing.T) {
	f := newFixture()
	root := f.user("root@x.io", authz.RoleSuperAdmin, nil)
	ctx := context.Background()
	a, _ := f.companies.Create(ctx, root.Caller(), models.CreateCompanyRequest{Name: "A"})
	b, _ := f.companies.Create(ctx, root.Caller(), models.CreateCompanyRequest{Name: "B"})
	adminA := f.user("admin@a.io", authz.RoleAdmin, &a.ID)

	logs, err := f.audit.List(ctx, adminA.Caller(), models.AuditFilter{})
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range logs {
		if l.CompanyID == nil || *l.CompanyID != a.ID {
			t.Errorf("admin of A saw entry %+v", l)
		}
	}
	if len(logs) != 1 {
		t.Errorf("entries = %d, want 1", len(logs))
	}
	if _, err := f.audit.List(ctx, adminA.Caller(), models.AuditFilter{CompanyID: &b.ID}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("err = %v", err)
	}
	user := f.user("u@a.io", authz.RoleUser, &a.ID)
	if _, err := f.audit.List(ctx, user.Caller(), models.AuditFilter{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("user listing audit: err = %v", err)
	}
	if got := f.store.actions(); len(got) != 2 || got[0] != models.AuditCompanyCreated {
		t.Errorf("actions = %v", got)
	}
}
