package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/models"
)

func TestInvitationCreate(t *testing.T) {
	f := newFixture()
	root := f.user("root@x.io", authz.RoleSuperAdmin, nil)
	a := f.company("A", "a", 10, 5)
	b := f.company("B", "b", 10, 5)
	adminA := f.user("admin@a.io", authz.RoleAdmin, &a.ID)
	ctx := context.Background()

	inv, err := f.invitations.Create(ctx, adminA.Caller(), models.CreateInvitationRequest{Email: "New@A.io", Role: authz.RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.Email != "new@a.io" || inv.CompanyID != a.ID || inv.Status != models.InvitationPending || inv.Token == "" {
		t.Errorf("invitation = %+v", inv)
	}
	if d := time.Until(inv.ExpiresAt); d < 71*time.Hour || d > 73*time.Hour {
		t.Errorf("expires in %v, want ~72h", d)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].to != "new@a.io" {
		t.Errorf("emails = %+v", f.email.sent)
	}

	tests := []struct {
		name   string
		caller authz.Caller
		req    models.CreateInvitationRequest
		want   error
	}{
		{"pending exists", adminA.Caller(), models.CreateInvitationRequest{Email: "new@a.io", Role: authz.RoleUser}, apperr.ErrConflict},
		{"user exists", adminA.Caller(), models.CreateInvitationRequest{Email: "admin@a.io", Role: authz.RoleUser}, apperr.ErrConflict},
		{"admin invites admin", adminA.Caller(), models.CreateInvitationRequest{Email: "x@a.io", Role: authz.RoleAdmin}, apperr.ErrForbidden},
		{"admin invites into B", adminA.Caller(), models.CreateInvitationRequest{Email: "x@b.io", Role: authz.RoleUser, CompanyID: &b.ID}, apperr.ErrForbidden},
		{"super admin without company", root.Caller(), models.CreateInvitationRequest{Email: "x@b.io", Role: authz.RoleAdmin}, apperr.ErrValidation},
		{"super admin role", root.Caller(), models.CreateInvitationRequest{Email: "x@b.io", Role: authz.RoleSuperAdmin, CompanyID: &b.ID}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.invitations.Create(ctx, tt.caller, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.invitations.Create(ctx, root.Caller(), models.CreateInvitationRequest{Email: "boss@b.io", Role: authz.RoleAdmin, CompanyID: &b.ID}); err != nil {
		t.Errorf("super admin invites admin to B: %v", err)
	}
}

func TestInvitationCancelAndLookup(t *testing.T) {
	f := newFixture()
	a := f.company("A", "a", 10, 5)
	b := f.company("B", "b", 10, 5)
	adminA := f.user("admin@a.io", authz.RoleAdmin, &a.ID)
	adminB := f.user("admin@b.io", authz.RoleAdmin, &b.ID)
	ctx := context.Background()

	inv, _ := f.invitations.Create(ctx, adminA.Caller(), models.CreateInvitationRequest{Email: "u@a.io", Role: authz.RoleUser})

	if err := f.invitations.Cancel(ctx, adminB.Caller(), inv.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("cancel from B: err = %v", err)
	}
	if err := f.invitations.Cancel(ctx, adminA.Caller(), inv.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := f.invitations.Cancel(ctx, adminA.Caller(), inv.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("double cancel: err = %v", err)
	}

	info, err := f.invitations.Lookup(ctx, inv.Token)
	if err != nil || info.Status != models.InvitationCancelled || info.CompanyName != "A" {
		t.Errorf("Lookup = %+v, %v", info, err)
	}

	old := &models.Invitation{Email: "old@a.io", Role: authz.RoleUser, CompanyID: a.ID, Token: "old",
		Status: models.InvitationPending, ExpiresAt: time.Now().Add(-time.Hour)}
	_ = fakeInvitations{f.store}.Create(ctx, old)
	info, err = f.invitations.Lookup(ctx, "old")
	if err != nil || info.Status != models.InvitationExpired {
		t.Errorf("expired lookup = %+v, %v", info, err)
	}

	list, _ := f.invitations.List(ctx, adminB.Caller(), nil)
	if len(list) != 0 {
		t.Errorf("admin of B sees %d invitations of A", len(list))
	}
}
