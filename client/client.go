// Package client is a Go client for the signage API. Every request carries
// the stored access token; a 401 triggers one refresh and one retry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"signage/internal/models"
	"signage/internal/services"
)

// Tokens is the credential pair the client authenticates with.
type Tokens struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
}

// TokenStore persists tokens between runs. Save is called after every
// successful refresh.
type TokenStore interface {
	Load() (Tokens, error)
	Save(Tokens) error
}

// ErrNotLoggedIn is returned when no refresh token is available.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore

	mu     sync.Mutex
	tokens Tokens
	loaded bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL, e.g. "http://localhost:8000/api/v1".
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) current() (Tokens, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded && c.store != nil {
		t, err := c.store.Load()
		if err != nil {
			return Tokens{}, err
		}
		c.tokens, c.loaded = t, true
	}
	return c.tokens, nil
}

func (c *Client) setTokens(t Tokens) error {
	c.mu.Lock()
	c.tokens, c.loaded = t, true
	c.mu.Unlock()
	if c.store != nil {
		return c.store.Save(t)
	}
	return nil
}

// Refresh exchanges the stored refresh token for a new pair and stores it.
func (c *Client) Refresh(ctx context.Context) (*models.TokenResponse, error) {
	t, err := c.current()
	if err != nil {
		return nil, err
	}
	if t.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}
	var resp models.TokenResponse
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: t.RefreshToken}, &resp); err != nil {
		return nil, err
	}
	if err := c.setTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}
	return &resp, nil
}

// do performs an authenticated request. On 401 it refreshes once and retries
// once; the second outcome is returned as is.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	t, err := c.current()
	if err != nil {
		return err
	}
	err = c.send(ctx, method, path, t.AccessToken, in, out)
	if !IsUnauthorized(err) || t.RefreshToken == "" {
		return err
	}
	refreshed, rerr := c.Refresh(ctx)
	if rerr != nil {
		return err
	}
	return c.send(ctx, method, path, refreshed.AccessToken, in, out)
}

func (c *Client) send(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Detail string `json:"detail"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(raw, &e) == nil && e.Detail != "" {
			apiErr.Detail = e.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) LinkDevice(ctx context.Context, code string) (*models.Device, error) {
	var d models.Device
	if err := c.do(ctx, http.MethodPost, "/devices/link", models.LinkDeviceRequest{DeviceCode: code}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) MyDevices(ctx context.Context) ([]*models.Device, error) {
	var list []*models.Device
	if err := c.do(ctx, http.MethodGet, "/devices/my-devices", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) UnlinkDevice(ctx context.Context, id string) (*models.PairingCode, error) {
	var pc models.PairingCode
	if err := c.do(ctx, http.MethodPost, "/devices/"+id+"/unlink", nil, &pc); err != nil {
		return nil, err
	}
	return &pc, nil
}

// GenerateCode is the TV side of pairing and needs no token.
func (c *Client) GenerateCode(ctx context.Context, req models.GenerateCodeRequest) (*models.PairingCode, error) {
	var pc models.PairingCode
	if err := c.send(ctx, http.MethodPost, "/devices/generate-code", "", req, &pc); err != nil {
		return nil, err
	}
	return &pc, nil
}

func (c *Client) Heartbeat(ctx context.Context, deviceUID string) (*services.HeartbeatResult, error) {
	var res services.HeartbeatResult
	if err := c.send(ctx, http.MethodPost, "/devices/heartbeat", "", models.HeartbeatRequest{DeviceUID: deviceUID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health returns the raw /health/detailed document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.send(ctx, http.MethodGet, "/health/detailed", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
