package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"signage/internal/apperr"
)

// ErrCodeTaken reports that another unlinked device of the same company
// already holds the pairing code. Callers draw a new code and retry.
var ErrCodeTaken = errors.New("pairing code taken")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"

	constraintDeviceCode = "uq_devices_company_code"
)

// Open connects to postgres and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// translate maps driver errors onto the apperr taxonomy. notFound is the
// detail used for sql.ErrNoRows.
func translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.ErrNotFound, notFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			if pqErr.Constraint == constraintDeviceCode {
				return ErrCodeTaken
			}
			return apperr.New(apperr.ErrConflict, conflictDetail(pqErr.Constraint))
		case foreignKeyViolation:
			return apperr.New(apperr.ErrValidation, "Referenced resource does not exist")
		case checkViolation:
			return apperr.New(apperr.ErrValidation, "Invalid value for "+pqErr.Constraint)
		}
	}
	return err
}

func conflictDetail(constraint string) string {
	switch constraint {
	case "users_email_key":
		return "User with this email already exists"
	case "users_google_id_key":
		return "Google account already linked to another user"
	case "companies_subdomain_key":
		return "Subdomain already taken"
	case "devices_device_uid_key":
		return "Device already registered"
	case "invitations_token_key":
		return "Invitation token collision"
	}
	return "Resource already exists"
}

// withTx runs fn in a transaction, committing when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// lockCompany takes the company row lock that serialises capacity checks.
func lockCompany(ctx context.Context, tx *sql.Tx, companyID string) (maxUsers, maxDevices int, active bool, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT max_users, max_devices, is_active
		FROM companies
		WHERE id = $1
		FOR UPDATE
	`, companyID).Scan(&maxUsers, &maxDevices, &active)
	if err != nil {
		return 0, 0, false, translate(err, "Company not found")
	}
	return maxUsers, maxDevices, active, nil
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return offset, limit
}
