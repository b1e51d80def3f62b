package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"signage/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, l *models.AuditLog) error
	List(ctx context.Context, f models.AuditFilter) ([]*models.AuditLog, error)
}

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, l *models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	var details sql.NullString
	if len(l.Details) > 0 {
		details = sql.NullString{String: string(l.Details), Valid: true}
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (id, user_id, company_id, action, resource_type, resource_id,
			details, ip_address, user_agent)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7::jsonb,NULLIF($8,''),NULLIF($9,''))
		RETURNING created_at
	`, l.ID, l.UserID, l.CompanyID, l.Action, l.ResourceType, l.ResourceID,
		details, l.IPAddress, l.UserAgent).Scan(&l.CreatedAt)
}

func (r *auditRepository) List(ctx context.Context, f models.AuditFilter) ([]*models.AuditLog, error) {
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
	if f.Action != "" {
		add("action = $%d", f.Action)
	}

	q := `SELECT id, user_id, company_id, action, COALESCE(resource_type,''), resource_id,
		details, COALESCE(ip_address,''), COALESCE(user_agent,''), created_at
		FROM audit_logs`
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

	var res []*models.AuditLog
	for rows.Next() {
		l := &models.AuditLog{}
		var details []byte
		if err := rows.Scan(&l.ID, &l.UserID, &l.CompanyID, &l.Action, &l.ResourceType,
			&l.ResourceID, &details, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Details = details
		res = append(res, l)
	}
	return res, rows.Err()
}
