package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"signage/internal/authz"
	"signage/internal/models"
)

// fakeAPI accepts access token "good" and trades refresh token "rt-ok" for
// the pair given in issue.
type fakeAPI struct {
	issue     Tokens
	meCalls   atomic.Int32
	refreshes atomic.Int32
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token has expired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.User{ID: "u1", Email: "u@example.com", Role: authz.RoleUser})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		var req models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != "rt-ok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.TokenResponse{
			AccessToken:  f.issue.AccessToken,
			RefreshToken: f.issue.RefreshToken,
			TokenType:    "bearer",
		})
	})
	return mux
}

func TestClient_RefreshAndRetry(t *testing.T) {
	tests := []struct {
		name          string
		start         Tokens
		issue         Tokens
		wantErr       bool
		wantMeCalls   int32
		wantRefreshes int32
		wantStored    Tokens
	}{
		{
			name:        "valid token, no refresh",
			start:       Tokens{AccessToken: "good", RefreshToken: "rt-ok"},
			wantMeCalls: 1,
			wantStored:  Tokens{AccessToken: "good", RefreshToken: "rt-ok"},
		},
		{
			name:          "expired token refreshed once then retried",
			start:         Tokens{AccessToken: "stale", RefreshToken: "rt-ok"},
			issue:         Tokens{AccessToken: "good", RefreshToken: "rt-new"},
			wantMeCalls:   2,
			wantRefreshes: 1,
			wantStored:    Tokens{AccessToken: "good", RefreshToken: "rt-new"},
		},
		{
			name:          "retry still unauthorized is returned, no loop",
			start:         Tokens{AccessToken: "stale", RefreshToken: "rt-ok"},
			issue:         Tokens{AccessToken: "also-stale", RefreshToken: "rt-ok"},
			wantErr:       true,
			wantMeCalls:   2,
			wantRefreshes: 1,
			wantStored:    Tokens{AccessToken: "also-stale", RefreshToken: "rt-ok"},
		},
		{
			name:          "failed refresh returns the first 401",
			start:         Tokens{AccessToken: "stale", RefreshToken: "revoked"},
			wantErr:       true,
			wantMeCalls:   1,
			wantRefreshes: 1,
			wantStored:    Tokens{AccessToken: "stale", RefreshToken: "revoked"},
		},
		{
			name:        "no refresh token",
			start:       Tokens{AccessToken: "stale"},
			wantErr:     true,
			wantMeCalls: 1,
			wantStored:  Tokens{AccessToken: "stale"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{issue: tt.issue}
			srv := httptest.NewServer(api.handler())
			defer srv.Close()

			store := &MemoryStore{Tokens: tt.start}
			c := New(srv.URL+"/api/v1", store, WithHTTPClient(srv.Client()))

			u, err := c.Me(context.Background())
			if tt.wantErr {
				if !IsUnauthorized(err) {
					t.Fatalf("err = %v, want 401", err)
				}
			} else if err != nil || u.ID != "u1" {
				t.Fatalf("Me = %+v, %v", u, err)
			}
			if got := api.meCalls.Load(); got != tt.wantMeCalls {
				t.Errorf("me calls = %d, want %d", got, tt.wantMeCalls)
			}
			if got := api.refreshes.Load(); got != tt.wantRefreshes {
				t.Errorf("refreshes = %d, want %d", got, tt.wantRefreshes)
			}
			if store.Tokens != tt.wantStored {
				t.Errorf("stored = %+v, want %+v", store.Tokens, tt.wantStored)
			}
		})
	}
}

func TestClient_APIErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Invalid device code"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, &MemoryStore{Tokens: Tokens{AccessToken: "x"}}, WithHTTPClient(srv.Client()))
	_, err := c.LinkDevice(context.Background(), "1234")
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status != http.StatusBadRequest || apiErr.Detail != "Invalid device code" {
		t.Fatalf("err = %#v", err)
	}
}

func TestClient_RefreshWithoutToken(t *testing.T) {
	c := New("http://127.0.0.1:0", &MemoryStore{})
	if _, err := c.Refresh(context.Background()); err != ErrNotLoggedIn {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestFileStore(t *testing.T) {
	s := FileStore{Path: filepath.Join(t.TempDir(), "nested", "tokens.yaml")}

	empty, err := s.Load()
	if err != nil || empty != (Tokens{}) {
		t.Fatalf("missing file: %+v, %v", empty, err)
	}
	want := Tokens{AccessToken: "a", RefreshToken: "r"}
	if err := s.Save(want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil || got != want {
		t.Fatalf("Load = %+v, %v", got, err)
	}
}
