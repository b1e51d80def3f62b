package repositories

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id          UUID PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		subdomain   VARCHAR(100) UNIQUE,
		logo_url    VARCHAR(500),
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		max_users   INTEGER NOT NULL DEFAULT 10 CHECK (max_users >= 1),
		max_devices INTEGER NOT NULL DEFAULT 5 CHECK (max_devices >= 1),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id                   UUID PRIMARY KEY,
		email                VARCHAR(255) NOT NULL UNIQUE,
		google_id            VARCHAR(255) UNIQUE,
		full_name            VARCHAR(255) NOT NULL,
		profile_picture_url  VARCHAR(500),
		role                 VARCHAR(20) NOT NULL CHECK (role IN ('super_admin','admin','user')),
		company_id           UUID REFERENCES companies(id) ON DELETE CASCADE,
		can_add_devices      BOOLEAN NOT NULL DEFAULT FALSE,
		is_active            BOOLEAN NOT NULL DEFAULT TRUE,
		google_refresh_token TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login           TIMESTAMPTZ,
		CONSTRAINT users_company_required CHECK (role = 'super_admin' OR company_id IS NOT NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id              UUID PRIMARY KEY,
		device_uid      VARCHAR(255) NOT NULL UNIQUE,
		device_name     VARCHAR(255) NOT NULL,
		device_code     VARCHAR(4),
		code_expires_at TIMESTAMPTZ,
		user_id         UUID REFERENCES users(id) ON DELETE CASCADE,
		company_id      UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		is_online       BOOLEAN NOT NULL DEFAULT FALSE,
		is_linked       BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen       TIMESTAMPTZ,
		linked_at       TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_devices_company_code
		ON devices(company_id, device_code) WHERE device_code IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_devices_user ON devices(user_id)`,
	`CREATE TABLE IF NOT EXISTS invitations (
		id          UUID PRIMARY KEY,
		email       VARCHAR(255) NOT NULL,
		role        VARCHAR(20) NOT NULL CHECK (role IN ('admin','user')),
		company_id  UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		invited_by  UUID REFERENCES users(id) ON DELETE SET NULL,
		token       VARCHAR(255) NOT NULL UNIQUE,
		status      VARCHAR(20) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending','accepted','expired','cancelled')),
		expires_at  TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		accepted_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations(lower(email))`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id            UUID PRIMARY KEY,
		user_id       UUID REFERENCES users(id) ON DELETE SET NULL,
		company_id    UUID REFERENCES companies(id) ON DELETE CASCADE,
		action        VARCHAR(100) NOT NULL,
		resource_type VARCHAR(50),
		resource_id   VARCHAR(100),
		details       JSONB,
		ip_address    VARCHAR(45),
		user_agent    VARCHAR(500),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_company ON audit_logs(company_id, created_at DESC)`,
}

// Migrate creates the schema when missing. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
