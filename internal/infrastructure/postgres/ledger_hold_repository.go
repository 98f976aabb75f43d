package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.LedgerHoldRepository = (*LedgerHoldRepo)(nil)

// LedgerHoldRepo suspensiones de escritura por grupo; se conserva el historial.
type LedgerHoldRepo struct {
	q Querier
}

// NewLedgerHoldRepository construye el adaptador.
func NewLedgerHoldRepository(q Querier) *LedgerHoldRepo {
	return &LedgerHoldRepo{q: q}
}

const holdColumns = `item_id, branch_id, reason, detected_at, cleared_at, cleared_by, clear_reason`

// GetActive devuelve nil, nil si el grupo no está suspendido.
func (r *LedgerHoldRepo) GetActive(ctx context.Context, group entity.GroupKey) (*entity.LedgerHold, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+holdColumns+`
		FROM ledger_holds WHERE item_id = $1 AND branch_id = $2 AND cleared_at IS NULL`,
		group.ItemID, group.BranchID,
	)
	h, err := scanHold(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get ledger hold", err)
	}
	return h, nil
}

// Create suspende el grupo; si ya lo estaba no hace nada.
func (r *LedgerHoldRepo) Create(ctx context.Context, h *entity.LedgerHold) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ledger_holds (item_id, branch_id, reason, detected_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id, branch_id) WHERE cleared_at IS NULL DO NOTHING`,
		h.ItemID, h.BranchID, h.Reason, h.DetectedAt,
	)
	return wrapErr("create ledger hold", err)
}

// Clear levanta la suspensión activa; domain.ErrNotFound si no hay ninguna.
func (r *LedgerHoldRepo) Clear(ctx context.Context, group entity.GroupKey, by, reason string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE ledger_holds SET cleared_at = $3, cleared_by = $4, clear_reason = $5
		WHERE item_id = $1 AND branch_id = $2 AND cleared_at IS NULL`,
		group.ItemID, group.BranchID, at, by, reason,
	)
	if err != nil {
		return wrapErr("clear ledger hold", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s@%s sin suspensión activa", domain.ErrNotFound, group.ItemID, group.BranchID)
	}
	return nil
}

// ListActive grupos suspendidos; branchID vacío = todas las sucursales.
func (r *LedgerHoldRepo) ListActive(ctx context.Context, branchID string) ([]*entity.LedgerHold, error) {
	query := `SELECT ` + holdColumns + ` FROM ledger_holds WHERE cleared_at IS NULL`
	var args []any
	if branchID != "" {
		query += ` AND branch_id = $1`
		args = append(args, branchID)
	}
	query += ` ORDER BY detected_at, item_id`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list ledger holds", err)
	}
	defer rows.Close()
	var out []*entity.LedgerHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, wrapErr("scan ledger hold", err)
		}
		out = append(out, h)
	}
	return out, wrapErr("list ledger holds", rows.Err())
}

func scanHold(row pgx.Row) (*entity.LedgerHold, error) {
	var h entity.LedgerHold
	var by, reason *string
	if err := row.Scan(&h.ItemID, &h.BranchID, &h.Reason, &h.DetectedAt, &h.ClearedAt, &by, &reason); err != nil {
		return nil, err
	}
	h.ClearedBy, h.ClearReason = deref(by), deref(reason)
	return &h, nil
}
