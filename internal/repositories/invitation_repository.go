package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"signage/internal/apperr"
	"signage/internal/models"
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	// LatestPendingByEmail returns the newest pending invitation for email,
	// expired or not.
	LatestPendingByEmail(ctx context.Context, email string) (*models.Invitation, error)
	HasPending(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, f models.InvitationFilter) ([]*models.Invitation, error)
	// Transition moves an invitation from one status to another and fails
	// with Conflict when it is no longer in from.
	Transition(ctx context.Context, id string, from, to models.InvitationStatus) error
}

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

const invitationColumns = `id, email, role, company_id, invited_by, token, status, expires_at, created_at, accepted_at`

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	i := &models.Invitation{}
	err := row.Scan(&i.ID, &i.Email, &i.Role, &i.CompanyID, &i.InvitedBy, &i.Token,
		&i.Status, &i.ExpiresAt, &i.CreatedAt, &i.AcceptedAt)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (r *invitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO invitations (id, email, role, company_id, invited_by, token, status, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, inv.ID, inv.Email, string(inv.Role), inv.CompanyID, inv.InvitedBy, inv.Token,
		string(inv.Status), inv.ExpiresAt).Scan(&inv.CreatedAt)
	return translate(err, "Invitation not found")
}

func (r *invitationRepository) getOne(ctx context.Context, where string, arg any) (*models.Invitation, error) {
	i, err := scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE `+where, arg))
	if err != nil {
		return nil, translate(err, "Invitation not found")
	}
	return i, nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return r.getOne(ctx, `token = $1`, token)
}

func (r *invitationRepository) LatestPendingByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	return r.getOne(ctx,
		`lower(email) = lower($1) AND status = 'pending' ORDER BY created_at DESC LIMIT 1`, email)
}

func (r *invitationRepository) HasPending(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM invitations
			WHERE lower(email) = lower($1) AND status = 'pending' AND expires_at > now()
		)`, email).Scan(&ok)
	return ok, err
}

func (r *invitationRepository) List(ctx context.Context, f models.InvitationFilter) ([]*models.Invitation, error) {
	var (
		conds []string
		args  []any
	)
	if f.CompanyID != nil {
		args = append(args, *f.CompanyID)
		conds = append(conds, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT ` + invitationColumns + ` FROM invitations`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*models.Invitation
	for rows.Next() {
		i, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, i)
	}
	return res, rows.Err()
}

func (r *invitationRepository) Transition(ctx context.Context, id string, from, to models.InvitationStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations
		SET status=$1, accepted_at = CASE WHEN $1 = 'accepted' THEN now() ELSE accepted_at END
		WHERE id=$2 AND status=$3
	`, string(to), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrConflict, fmt.Sprintf("Invitation is not %s", from))
	}
	return nil
}
