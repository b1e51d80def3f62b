package services

import (
	"context"
	"errors"
	"testing"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/models"
)

func TestUserGet_TenantIsolation(t *testing.T) {
	f := newFixture()
	a := f.company("A", "a", 10, 5)
	b := f.company("B", "b", 10, 5)
	adminA := f.user("admin@a.io", authz.RoleAdmin, &a.ID)
	userA := f.user("user@a.io", authz.RoleUser, &a.ID)
	userB := f.user("user@b.io", authz.RoleUser, &b.ID)
	ctx := context.Background()

	if _, err := f.users.Get(ctx, adminA.Caller(), userB.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("admin of A reading B: err = %v, want ErrForbidden", err)
	}
	if _, err := f.users.Get(ctx, adminA.Caller(), userA.ID); err != nil {
		t.Errorf("admin of A reading A: %v", err)
	}
	if _, err := f.users.Get(ctx, userA.Caller(), adminA.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("user reading other user: err = %v", err)
	}
	if _, err := f.users.Get(ctx, userA.Caller(), userA.ID); err != nil {
		t.Errorf("user reading self: %v", err)
	}
}

func TestUserCreate_Capacity(t *testing.T) {
	f := newFixture()
	root := f.user("root@x.io", authz.RoleSuperAdmin, nil)
	c := f.company("One", "one", 1, 5)
	f.user("first@one.io", authz.RoleAdmin, &c.ID)

	_, err := f.users.Create(context.Background(), root.Caller(), models.CreateUserRequest{
		Email: "second@one.io", FullName: "Second", CompanyID: &c.ID,
	})
	if !errors.Is(err, apperr.ErrLimitExceeded) {
		t.Fatalf("err = %v, want ErrLimitExceeded", err)
	}
	users, _ := fakeUsers{f.store}.List(context.Background(), models.UserFilter{CompanyID: &c.ID})
	if len(users) != 1 {
		t.Errorf("company has %d users, want 1", len(users))
	}
}

func TestUserCreate_Rules(t *testing.T) {
	f := newFixture()
	root := f.user("root@x.io", authz.RoleSuperAdmin, nil)
	a := f.company("A", "a", 10, 5)
	b := f.company("B", "b", 10, 5)
	adminA := f.user("admin@a.io", authz.RoleAdmin, &a.ID)
	userA := f.user("user@a.io", authz.RoleUser, &a.ID)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller authz.Caller
		req    models.CreateUserRequest
		want   error
	}{
		{"admin creates admin", adminA.Caller(), models.CreateUserRequest{Email: "x@a.io", FullName: "X", Role: authz.RoleAdmin}, apperr.ErrForbidden},
		{"admin creates in other company", adminA.Caller(), models.CreateUserRequest{Email: "x@b.io", FullName: "X", CompanyID: &b.ID}, apperr.ErrForbidden},
		{"user creates", userA.Caller(), models.CreateUserRequest{Email: "x@a.io", FullName: "X"}, apperr.ErrForbidden},
		{"super admin without company", root.Caller(), models.CreateUserRequest{Email: "x@a.io", FullName: "X"}, apperr.ErrValidation},
		{"super admin role", root.Caller(), models.CreateUserRequest{Email: "x@a.io", FullName: "X", Role: authz.RoleSuperAdmin, CompanyID: &a.ID}, apperr.ErrValidation},
		{"duplicate email", root.Caller(), models.CreateUserRequest{Email: "USER@a.io", FullName: "X", CompanyID: &a.ID}, apperr.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.users.Create(ctx, tt.caller, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	u, err := f.users.Create(ctx, adminA.Caller(), models.CreateUserRequest{Email: "New@A.io", FullName: " New "})
	if err != nil {
		t.Fatalf("admin creates user: %v", err)
	}
	if u.Email != "new@a.io" || u.FullName != "New" || u.Role != authz.RoleUser || *u.CompanyID != a.ID {
		t.Errorf("created = %+v", u)
	}
}

func TestUserManage(t *testing.T) {
	f := newFixture()
	a := f.company("A", "a", 10, 5)
	adminA := f.user("admin@a.io", authz.RoleAdmin, &a.ID)
	admin2 := f.user("admin2@a.io", authz.RoleAdmin, &a.ID)
	userA := f.user("user@a.io", authz.RoleUser, &a.ID)
	ctx := context.Background()

	if _, err := f.users.SetActive(ctx, adminA.Caller(), admin2.ID, false); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("admin deactivating admin: err = %v", err)
	}
	if _, err := f.users.SetActive(ctx, adminA.Caller(), adminA.ID, false); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("self deactivation: err = %v", err)
	}
	got, err := f.users.SetPermissions(ctx, adminA.Caller(), userA.ID, true)
	if err != nil || !got.CanAddDevices {
		t.Errorf("SetPermissions = %+v, %v", got, err)
	}

	name := "Renamed"
	upd, err := f.users.Update(ctx, adminA.Caller(), userA.ID, models.UpdateUserRequest{FullName: &name})
	if err != nil || upd.FullName != "Renamed" || upd.Role != authz.RoleUser {
		t.Errorf("Update = %+v, %v", upd, err)
	}

	me, err := f.users.UpdateMe(ctx, userA.Caller(), models.UpdateUserRequest{FullName: &name})
	if err != nil || me.ID != userA.ID {
		t.Errorf("UpdateMe = %+v, %v", me, err)
	}

	if err := f.users.Delete(ctx, adminA.Caller(), userA.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, err := f.users.Get(ctx, adminA.Caller(), userA.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted user: err = %v", err)
	}
}

func TestUserList_Scoped(t *testing.T) {
	f := newFixture()
	a := f.company("A", "a", 10, 5)
	b := f.company("B", "b", 10, 5)
	adminA := f.user("admin@a.io", authz.RoleAdmin, &a.ID)
	f.user("user@a.io", authz.RoleUser, &a.ID)
	f.user("user@b.io", authz.RoleUser, &b.ID)

	list, err := f.users.List(context.Background(), adminA.Caller(), models.UserFilter{})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range list {
		if *u.CompanyID != a.ID {
			t.Errorf("admin of A saw user of %s", *u.CompanyID)
		}
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
	if _, err := f.users.List(context.Background(), adminA.Caller(), models.UserFilter{CompanyID: &b.ID}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("admin filtering B: err = %v", err)
	}
}
