package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"signage/internal/apperr"
	"signage/internal/models"
)

type CompanyRepository interface {
	Create(ctx context.Context, c *models.Company) error
	GetByID(ctx context.Context, id string) (*models.Company, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Company, error)
	List(ctx context.Context, offset, limit int) ([]*models.CompanyWithCounts, error)
	// Update saves c. Lowering a limit below current usage is rejected and
	// deactivation cascades like SetActive, in one transaction.
	Update(ctx context.Context, c *models.Company) error
	Delete(ctx context.Context, id string) error
	// SetActive toggles the company. Deactivation also deactivates its users
	// and marks its devices offline, in one transaction.
	SetActive(ctx context.Context, id string, active bool) error
	Stats(ctx context.Context, id string) (*models.CompanyStats, error)
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

const companyColumns = `id, name, subdomain, logo_url, is_active, max_users, max_devices, created_at, updated_at`

func scanCompany(row rowScanner) (*models.Company, error) {
	c := &models.Company{}
	err := row.Scan(&c.ID, &c.Name, &c.Subdomain, &c.LogoURL, &c.IsActive,
		&c.MaxUsers, &c.MaxDevices, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *companyRepository) Create(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO companies (id, name, subdomain, logo_url, is_active, max_users, max_devices)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Subdomain, c.LogoURL, c.IsActive, c.MaxUsers, c.MaxDevices).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	return translate(err, "Company not found")
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "Company not found")
	}
	return c, nil
}

func (r *companyRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE subdomain = $1`, subdomain))
	if err != nil {
		return nil, translate(err, "Company not found")
	}
	return c, nil
}

func (r *companyRepository) List(ctx context.Context, offset, limit int) ([]*models.CompanyWithCounts, error) {
	offset, limit = clampPage(offset, limit)
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.subdomain, c.logo_url, c.is_active, c.max_users, c.max_devices,
		       c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM users u WHERE u.company_id = c.id),
		       (SELECT COUNT(*) FROM devices d WHERE d.company_id = c.id)
		FROM companies c
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*models.CompanyWithCounts
	for rows.Next() {
		var c models.CompanyWithCounts
		if err := rows.Scan(&c.ID, &c.Name, &c.Subdomain, &c.LogoURL, &c.IsActive,
			&c.MaxUsers, &c.MaxDevices, &c.CreatedAt, &c.UpdatedAt,
			&c.CurrentUsers, &c.CurrentDevices); err != nil {
			return nil, err
		}
		res = append(res, &c)
	}
	return res, rows.Err()
}

func (r *companyRepository) Update(ctx context.Context, c *models.Company) error {
	c.UpdatedAt = time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		oldMaxUsers, oldMaxDevices, wasActive, err := lockCompany(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if c.MaxUsers < oldMaxUsers || c.MaxDevices < oldMaxDevices {
			var users, devices int
			if err := tx.QueryRowContext(ctx, `
				SELECT (SELECT COUNT(*) FROM users WHERE company_id = $1),
				       (SELECT COUNT(*) FROM devices WHERE company_id = $1)
			`, c.ID).Scan(&users, &devices); err != nil {
				return err
			}
			if err := belowUsage(c, oldMaxUsers, oldMaxDevices, users, devices); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE companies
			SET name=$1, subdomain=$2, logo_url=$3, is_active=$4, max_users=$5, max_devices=$6, updated_at=$7
			WHERE id=$8
		`, c.Name, c.Subdomain, c.LogoURL, c.IsActive, c.MaxUsers, c.MaxDevices, c.UpdatedAt, c.ID)
		if err != nil {
			return translate(err, "Company not found")
		}
		if wasActive && !c.IsActive {
			return deactivateMembers(ctx, tx, c.ID)
		}
		return nil
	})
}

// belowUsage rejects a lowered limit that the company already exceeds.
func belowUsage(c *models.Company, oldMaxUsers, oldMaxDevices, users, devices int) error {
	if c.MaxUsers < oldMaxUsers && c.MaxUsers < users {
		return apperr.New(apperr.ErrValidation,
			fmt.Sprintf("max_users cannot be below the current user count (%d)", users))
	}
	if c.MaxDevices < oldMaxDevices && c.MaxDevices < devices {
		return apperr.New(apperr.ErrValidation,
			fmt.Sprintf("max_devices cannot be below the current device count (%d)", devices))
	}
	return nil
}

func (r *companyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "Company not found")
}

func (r *companyRepository) SetActive(ctx context.Context, id string, active bool) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE companies SET is_active=$1, updated_at=now() WHERE id=$2`, active, id)
		if err != nil {
			return err
		}
		if err := expectOne(res, "Company not found"); err != nil {
			return err
		}
		if active {
			return nil
		}
		return deactivateMembers(ctx, tx, id)
	})
}

func deactivateMembers(ctx context.Context, tx *sql.Tx, companyID string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET is_active=FALSE, updated_at=now() WHERE company_id=$1`, companyID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE devices SET is_online=FALSE, updated_at=now() WHERE company_id=$1`, companyID)
	return err
}

func (r *companyRepository) Stats(ctx context.Context, id string) (*models.CompanyStats, error) {
	s := &models.CompanyStats{CompanyID: id}
	err := r.db.QueryRowContext(ctx, `
		SELECT c.name, c.max_users, c.max_devices,
		       COUNT(DISTINCT u.id),
		       COUNT(DISTINCT u.id) FILTER (WHERE u.is_active),
		       COUNT(DISTINCT u.id) FILTER (WHERE u.role = 'admin'),
		       COUNT(DISTINCT d.id),
		       COUNT(DISTINCT d.id) FILTER (WHERE d.is_online),
		       COUNT(DISTINCT d.id) FILTER (WHERE d.is_linked)
		FROM companies c
		LEFT JOIN users u ON u.company_id = c.id
		LEFT JOIN devices d ON d.company_id = c.id
		WHERE c.id = $1
		GROUP BY c.id
	`, id).Scan(&s.CompanyName, &s.Users.MaxAllowed, &s.Devices.MaxAllowed,
		&s.Users.Total, &s.Users.Active, &s.Users.Admins,
		&s.Devices.Total, &s.Devices.Online, &s.Devices.Linked)
	if err != nil {
		return nil, translate(err, "Company not found")
	}
	s.Users.Remaining = remaining(s.Users.MaxAllowed, s.Users.Total)
	s.Devices.Remaining = remaining(s.Devices.MaxAllowed, s.Devices.Total)
	return s, nil
}

func remaining(max, used int) int {
	if used >= max {
		return 0
	}
	return max - used
}

func expectOne(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.ErrNotFound, notFound)
	}
	return nil
}
