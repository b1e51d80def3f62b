package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"signage/internal/apperr"
	"signage/internal/models"
)

type UserRepository interface {
	// CreateFirstSuperAdmin inserts u as super admin only when the users table
	// is empty. created is false when another account already exists.
	CreateFirstSuperAdmin(ctx context.Context, u *models.User) (created bool, err error)
	// CreateInCompany inserts u under the company row lock, failing with
	// LimitExceeded when the company is at max_users.
	CreateInCompany(ctx context.Context, u *models.User) error
	// CreateFromInvitation redeems a pending invitation and inserts u in the
	// same transaction.
	CreateFromInvitation(ctx context.Context, u *models.User, invitationID string) error

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	List(ctx context.Context, f models.UserFilter) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
	RecordLogin(ctx context.Context, u *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	SetCanAddDevices(ctx context.Context, id string, v bool) error
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, google_id, full_name, profile_picture_url, role, company_id,
	can_add_devices, is_active, google_refresh_token, created_at, updated_at, last_login`

// advisory lock key guarding the first-account bootstrap
const firstUserLock = 0x5167_0001

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.GoogleID, &u.FullName, &u.ProfilePictureURL,
		&u.Role, &u.CompanyID, &u.CanAddDevices, &u.IsActive, &u.GoogleRefreshToken,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func insertUser(ctx context.Context, tx *sql.Tx, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO users (id, email, google_id, full_name, profile_picture_url, role, company_id,
			can_add_devices, is_active, google_refresh_token, last_login)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.GoogleID, u.FullName, u.ProfilePictureURL, string(u.Role), u.CompanyID,
		u.CanAddDevices, u.IsActive, u.GoogleRefreshToken, u.LastLogin).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	return translate(err, "User not found")
}

func (r *userRepository) CreateFirstSuperAdmin(ctx context.Context, u *models.User) (bool, error) {
	created := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, firstUserLock); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users)`).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// insertWithCapacity locks the company, checks the user count and inserts.
func insertWithCapacity(ctx context.Context, tx *sql.Tx, u *models.User) error {
	if u.CompanyID == nil {
		return apperr.New(apperr.ErrValidation, "company_id is required")
	}
	maxUsers, _, _, err := lockCompany(ctx, tx, *u.CompanyID)
	if err != nil {
		return err
	}
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE company_id = $1`, *u.CompanyID).Scan(&count); err != nil {
		return err
	}
	if count >= maxUsers {
		return apperr.New(apperr.ErrLimitExceeded,
			fmt.Sprintf("Company has reached maximum user limit (%d)", maxUsers))
	}
	return insertUser(ctx, tx, u)
}

func (r *userRepository) CreateInCompany(ctx context.Context, u *models.User) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertWithCapacity(ctx, tx, u)
	})
}

func (r *userRepository) CreateFromInvitation(ctx context.Context, u *models.User, invitationID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE invitations
			SET status = 'accepted', accepted_at = now()
			WHERE id = $1 AND status = 'pending' AND expires_at > now()
		`, invitationID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.ErrUserNotInvited
		}
		return insertWithCapacity(ctx, tx, u)
	})
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		return nil, translate(err, "User not found")
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `lower(email) = lower($1)`, email)
}

func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, `google_id = $1`, googleID)
}

func (r *userRepository) List(ctx context.Context, f models.UserFilter) ([]*models.User, error) {
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
	if f.Role != nil {
		add("role = $%d", string(*f.Role))
	}
	if f.IsActive != nil {
		add("is_active = $%d", *f.IsActive)
	}

	q := `SELECT ` + userColumns + ` FROM users`
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

	var res []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *userRepository) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET full_name=$1, profile_picture_url=$2, can_add_devices=$3, is_active=$4, updated_at=$5
		WHERE id=$6
	`, u.FullName, u.ProfilePictureURL, u.CanAddDevices, u.IsActive, u.UpdatedAt, u.ID)
	if err != nil {
		return translate(err, "User not found")
	}
	return expectOne(res, "User not found")
}

// RecordLogin stores what the identity provider returned on sign-in.
func (r *userRepository) RecordLogin(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.LastLogin = &now
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET google_id=$1, profile_picture_url=$2,
		    google_refresh_token=COALESCE($3, google_refresh_token),
		    last_login=$4, updated_at=$4
		WHERE id=$5
	`, u.GoogleID, u.ProfilePictureURL, u.GoogleRefreshToken, now, u.ID)
	if err != nil {
		return translate(err, "User not found")
	}
	return expectOne(res, "User not found")
}

func (r *userRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active=$1, updated_at=now() WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	return expectOne(res, "User not found")
}

func (r *userRepository) SetCanAddDevices(ctx context.Context, id string, v bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET can_add_devices=$1, updated_at=now() WHERE id=$2`, v, id)
	if err != nil {
		return err
	}
	return expectOne(res, "User not found")
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "User not found")
}
