package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo movimientos de stock; la tabla es de solo anexión (trigger).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador de movimientos.
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, item_id, branch_id, location_id, from_location_id, to_location_id, delta, kind, reason,
	actor_id, sale_id, transfer_id, COALESCE(linked_movement_id, 0), created_at`

// Append inserta el movimiento y asigna ID y CreatedAt.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	var linked *int64
	if m.LinkedMovementID != 0 {
		linked = &m.LinkedMovementID
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO stock_movements (item_id, branch_id, location_id, from_location_id, to_location_id, delta, kind,
			reason, actor_id, sale_id, transfer_id, linked_movement_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		m.ItemID, m.BranchID, m.LocationID, nullable(m.FromLocationID), nullable(m.ToLocationID), m.Delta, m.Kind,
		m.Reason, nullable(m.ActorID), nullable(m.SaleID), nullable(m.TransferID), linked, m.CreatedAt,
	).Scan(&m.ID)
	return wrapErr("append stock movement", err)
}

// ListByGroup movimientos del grupo desde since, en orden de anexión.
func (r *StockMovementRepo) ListByGroup(ctx context.Context, group entity.GroupKey, since time.Time) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE item_id = $1 AND branch_id = $2 AND created_at >= $3
		ORDER BY id`,
		group.ItemID, group.BranchID, since,
	)
	if err != nil {
		return nil, wrapErr("list movements by group", err)
	}
	return scanMovements(rows)
}

// ListBySale movimientos de venta y reembolso de una venta.
func (r *StockMovementRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, wrapErr("list movements by sale", err)
	}
	return scanMovements(rows)
}

// ListByTransfer movimientos transfer-out / transfer-in de un traslado.
func (r *StockMovementRepo) ListByTransfer(ctx context.Context, transferID string) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE transfer_id = $1 ORDER BY id`, transferID)
	if err != nil {
		return nil, wrapErr("list movements by transfer", err)
	}
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var from, to, actor, sale, transfer *string
		if err := rows.Scan(&m.ID, &m.ItemID, &m.BranchID, &m.LocationID, &from, &to, &m.Delta, &m.Kind, &m.Reason,
			&actor, &sale, &transfer, &m.LinkedMovementID, &m.CreatedAt); err != nil {
			return nil, wrapErr("scan movement", err)
		}
		m.FromLocationID, m.ToLocationID = deref(from), deref(to)
		m.ActorID, m.SaleID, m.TransferID = deref(actor), deref(sale), deref(transfer)
		out = append(out, &m)
	}
	return out, wrapErr("scan movements", rows.Err())
}
