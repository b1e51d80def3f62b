package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"signage/internal/apperr"
	"signage/internal/models"
)

type DeviceRepository interface {
	// CreateWithCode inserts an unlinked device under the company row lock,
	// failing with LimitExceeded at max_devices and ErrCodeTaken on a code
	// collision.
	CreateWithCode(ctx context.Context, d *models.Device) error
	// SetCode replaces the pairing code of an unlinked device.
	SetCode(ctx context.Context, id, code string, expiresAt time.Time) error
	// Link claims the unlinked device holding code in companyID for userID.
	// It is a single conditional update; a consumed, expired or foreign code
	// yields InvalidCode.
	Link(ctx context.Context, companyID, code, userID string, maxPerUser int) (*models.Device, error)
	// Unlink detaches the device from its owner and gives it a fresh code.
	Unlink(ctx context.Context, id, code string, expiresAt time.Time) error

	GetByID(ctx context.Context, id string) (*models.Device, error)
	GetByUID(ctx context.Context, uid string) (*models.Device, error)
	List(ctx context.Context, f models.DeviceFilter) ([]*models.Device, error)
	Rename(ctx context.Context, id, name string) error
	Heartbeat(ctx context.Context, uid string) (*models.Device, error)
	Delete(ctx context.Context, id string) error
}

type deviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

const deviceColumns = `id, device_uid, device_name, device_code, code_expires_at, user_id, company_id,
	is_online, is_linked, last_seen, linked_at, created_at, updated_at`

func scanDevice(row rowScanner) (*models.Device, error) {
	d := &models.Device{}
	err := row.Scan(&d.ID, &d.DeviceUID, &d.DeviceName, &d.DeviceCode, &d.CodeExpiresAt,
		&d.UserID, &d.CompanyID, &d.IsOnline, &d.IsLinked, &d.LastSeen, &d.LinkedAt,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *deviceRepository) CreateWithCode(ctx context.Context, d *models.Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, maxDevices, active, err := lockCompany(ctx, tx, d.CompanyID)
		if err != nil {
			return err
		}
		if !active {
			return apperr.New(apperr.ErrForbidden, "Company is inactive")
		}
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM devices WHERE company_id = $1`, d.CompanyID).Scan(&count); err != nil {
			return err
		}
		if count >= maxDevices {
			return apperr.New(apperr.ErrLimitExceeded,
				fmt.Sprintf("Company has reached maximum device limit (%d)", maxDevices))
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO devices (id, device_uid, device_name, device_code, code_expires_at, company_id)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING created_at, updated_at
		`, d.ID, d.DeviceUID, d.DeviceName, d.DeviceCode, d.CodeExpiresAt, d.CompanyID).
			Scan(&d.CreatedAt, &d.UpdatedAt)
		return translate(err, "Device not found")
	})
}

func (r *deviceRepository) SetCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET device_code=$1, code_expires_at=$2, updated_at=now()
		WHERE id=$3 AND NOT is_linked
	`, code, expiresAt, id)
	if err != nil {
		return translate(err, "Device not found")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrConflict, "Device is already linked")
	}
	return nil
}

func (r *deviceRepository) Link(ctx context.Context, companyID, code, userID string, maxPerUser int) (*models.Device, error) {
	var d *models.Device
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// serialise links by the same user so the per-user count holds
		if _, err := tx.ExecContext(ctx, `SELECT 1 FROM users WHERE id=$1 FOR UPDATE`, userID); err != nil {
			return err
		}
		var err error
		d, err = scanDevice(tx.QueryRowContext(ctx, `
			UPDATE devices
			SET user_id=$1, is_linked=TRUE, linked_at=now(),
			    device_code=NULL, code_expires_at=NULL, updated_at=now()
			WHERE device_code=$2 AND company_id=$3
			  AND user_id IS NULL AND NOT is_linked
			  AND code_expires_at > now()
			RETURNING `+deviceColumns,
			userID, code, companyID))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrInvalidCode
		}
		if err != nil {
			return err
		}
		if maxPerUser > 0 {
			var owned int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM devices WHERE user_id=$1`, userID).Scan(&owned); err != nil {
				return err
			}
			if owned > maxPerUser {
				return apperr.New(apperr.ErrLimitExceeded,
					fmt.Sprintf("Maximum devices per user reached (%d)", maxPerUser))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *deviceRepository) Unlink(ctx context.Context, id, code string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET user_id=NULL, is_linked=FALSE, linked_at=NULL,
		    device_code=$1, code_expires_at=$2, updated_at=now()
		WHERE id=$3 AND is_linked
	`, code, expiresAt, id)
	if err != nil {
		return translate(err, "Device not found")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrConflict, "Device is not linked")
	}
	return nil
}

func (r *deviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, "Device not found")
	}
	return d, nil
}

func (r *deviceRepository) GetByUID(ctx context.Context, uid string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_uid=$1`, uid))
	if err != nil {
		return nil, translate(err, "Device not found")
	}
	return d, nil
}

func (r *deviceRepository) List(ctx context.Context, f models.DeviceFilter) ([]*models.Device, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.CompanyID != nil {
		add("company_id = $%d", *f.CompanyID)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.IsLinked != nil {
		add("is_linked = $%d", *f.IsLinked)
	}

	q := `SELECT ` + deviceColumns + ` FROM devices`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	offset, limit := clampPage(f.Offset, f.Limit)
	args = append(args, limit, offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r *deviceRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET device_name=$1, updated_at=now() WHERE id=$2`, name, id)
	if err != nil {
		return err
	}
	return expectOne(res, "Device not found")
}

func (r *deviceRepository) Heartbeat(ctx context.Context, uid string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, `
		UPDATE devices SET is_online=TRUE, last_seen=now(), updated_at=now()
		WHERE device_uid=$1
		RETURNING `+deviceColumns, uid))
	if err != nil {
		return nil, translate(err, "Device not found")
	}
	return d, nil
}

func (r *deviceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "Device not found")
}
