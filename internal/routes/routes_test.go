package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/handlers"
	"signage/internal/logs"
	"signage/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	logs.Discard()
}

type stubAuth map[string]*models.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	u, ok := s[token]
	if !ok {
		return nil, apperr.ErrTokenInvalid
	}
	return u, nil
}

type pinger struct{}

func (pinger) PingContext(context.Context) error { return nil }

// newRouter mounts the real route table. Services are nil: the tests only
// hit endpoints that are rejected by middleware or never reach a service.
func newRouter() *gin.Engine {
	company := "c1"
	auth := stubAuth{
		"super": {ID: "s", Role: authz.RoleSuperAdmin, IsActive: true},
		"admin": {ID: "a", Role: authz.RoleAdmin, CompanyID: &company, IsActive: true},
		"user":  {ID: "u", Role: authz.RoleUser, CompanyID: &company, IsActive: true},
	}
	h := Handlers{
		Auth:        handlers.NewAuthHandler(nil, ""),
		Users:       handlers.NewUserHandler(nil),
		Companies:   handlers.NewCompanyHandler(nil),
		Devices:     handlers.NewDeviceHandler(nil),
		Invitations: handlers.NewInvitationHandler(nil),
		Audit:       handlers.NewAuditHandler(nil),
		Events:      handlers.NewEventsHandler(nil),
		Health:      handlers.NewHealthHandler(pinger{}, "signage", "test", "test"),
	}
	return SetupRoutes(gin.New(), h, auth)
}

func TestRouteGating(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{"liveness is public", http.MethodGet, "/api/v1/health/live", "", http.StatusOK},
		{"me needs a token", http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/auth/me", "forged", http.StatusUnauthorized},
		{"me", http.MethodGet, "/api/v1/auth/me", "user", http.StatusOK},
		{"logout", http.MethodPost, "/api/v1/auth/logout", "user", http.StatusOK},
		{"user cannot list users", http.MethodGet, "/api/v1/users", "user", http.StatusForbidden},
		{"user cannot create users", http.MethodPost, "/api/v1/users", "user", http.StatusForbidden},
		{"user cannot list devices", http.MethodGet, "/api/v1/devices", "user", http.StatusForbidden},
		{"user cannot invite", http.MethodPost, "/api/v1/invitations", "user", http.StatusForbidden},
		{"user cannot read audit", http.MethodGet, "/api/v1/audit-logs", "user", http.StatusForbidden},
		{"user cannot read stats", http.MethodGet, "/api/v1/companies/c1/stats", "user", http.StatusForbidden},
		{"admin cannot create companies", http.MethodPost, "/api/v1/companies", "admin", http.StatusForbidden},
		{"admin cannot list companies", http.MethodGet, "/api/v1/companies", "admin", http.StatusForbidden},
		{"admin cannot delete companies", http.MethodDelete, "/api/v1/companies/c1", "admin", http.StatusForbidden},
		{"user cannot watch events", http.MethodGet, "/api/v1/devices/events?access_token=user", "", http.StatusForbidden},
		{"events need a token", http.MethodGet, "/api/v1/devices/events", "", http.StatusUnauthorized},
		{"anonymous cannot link", http.MethodPost, "/api/v1/devices/link", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body)
			}
		})
	}
}
