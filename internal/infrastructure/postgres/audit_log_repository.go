package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo bitácora de solo anexión; UPDATE y DELETE los rechaza un trigger.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador de bitácora.
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Append inserta la entrada y asigna su ID.
func (r *AuditLogRepo) Append(ctx context.Context, e *entity.AuditLog) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO audit_logs (actor_id, actor_username, branch_id, action, object_type, object_id, reason, before, after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		nullable(e.ActorID), e.ActorUsername, nullable(e.BranchID), e.Action, e.ObjectType, e.ObjectID, e.Reason,
		jsonOrEmpty(e.Before), jsonOrEmpty(e.After), e.CreatedAt,
	).Scan(&e.ID)
	return wrapErr("append audit log", err)
}

// List consulta la bitácora con filtros opcionales; más recientes primero.
func (r *AuditLogRepo) List(ctx context.Context, f entity.AuditFilter) ([]*entity.AuditLog, error) {
	query := `
		SELECT id, COALESCE(actor_id, ''), actor_username, COALESCE(branch_id, ''), action, object_type, object_id,
		       reason, before, after, created_at
		FROM audit_logs WHERE true`
	var args []any
	pos := 1
	add := func(cond string, v any) {
		query += fmt.Sprintf(" AND "+cond, pos)
		args = append(args, v)
		pos++
	}
	if f.BranchID != "" {
		add("branch_id = $%d", f.BranchID)
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.ObjectType != "" {
		add("object_type = $%d", f.ObjectType)
	}
	if f.ObjectID != "" {
		add("object_id = $%d", f.ObjectID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitOrAll(f.Limit), f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list audit logs", err)
	}
	defer rows.Close()
	var list []*entity.AuditLog
	for rows.Next() {
		var e entity.AuditLog
		var before, after []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorUsername, &e.BranchID, &e.Action, &e.ObjectType, &e.ObjectID,
			&e.Reason, &before, &after, &e.CreatedAt); err != nil {
			return nil, wrapErr("scan audit log", err)
		}
		e.Before, e.After = before, after
		list = append(list, &e)
	}
	return list, wrapErr("list audit logs", rows.Err())
}

func jsonOrEmpty(b []byte) string {
	if len(b) == 0 {
		return "{}"
	}
	return string(b)
}
