// Package apperr is the error taxonomy shared by repositories, services and
// HTTP handlers. Every kind maps to exactly one HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrLimitExceeded      = errors.New("limit exceeded")
	ErrInvalidCode        = errors.New("invalid code")
	ErrCodeSpaceExhausted = errors.New("code space exhausted")
	ErrUserNotInvited     = errors.New("user not invited")
	ErrValidation         = errors.New("validation failed")
)

// Error pairs a kind with a message meant for the client.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

// Detail returns the client-facing message of err, or fallback when err
// carries none.
func Detail(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return fallback
}

var statuses = []struct {
	kind   error
	status int
	detail string
}{
	{ErrTokenExpired, http.StatusUnauthorized, "Token has expired"},
	{ErrTokenInvalid, http.StatusUnauthorized, "Could not validate credentials"},
	{ErrUnauthorized, http.StatusUnauthorized, "Not authenticated"},
	{ErrUserNotInvited, http.StatusForbidden, "Registration is by invitation only. Please contact your administrator."},
	{ErrForbidden, http.StatusForbidden, "Insufficient permissions"},
	{ErrNotFound, http.StatusNotFound, "Not found"},
	{ErrConflict, http.StatusConflict, "Resource already exists"},
	{ErrLimitExceeded, http.StatusBadRequest, "Limit exceeded"},
	{ErrInvalidCode, http.StatusBadRequest, "Invalid device code"},
	{ErrCodeSpaceExhausted, http.StatusConflict, "No free pairing code available, try again later"},
	{ErrValidation, http.StatusBadRequest, "Invalid request"},
}

// HTTPStatus maps err to a status code and client detail. Unknown errors are
// reported as 500 with a generic message.
func HTTPStatus(err error) (int, string) {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.status, Detail(err, s.detail)
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}
