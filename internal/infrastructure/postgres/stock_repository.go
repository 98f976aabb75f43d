package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockRepo)(nil)

// StockRepo implementación de StockLevelRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `item_id, branch_id, location_id, quantity, updated_at`

// LockGroup asegura la fila ancla (location_id = ''), la bloquea y luego bloquea todas las filas del grupo.
// Toda escritura del grupo pasa por el ancla, así una ubicación nueva no escapa al bloqueo.
// La lectura del grupo va en una sentencia aparte: en READ COMMITTED su snapshot se toma después
// de obtener el ancla y ve las ubicaciones que el titular anterior creó y confirmó.
func (r *StockRepo) LockGroup(ctx context.Context, group entity.GroupKey) ([]*entity.StockLevel, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_levels (item_id, branch_id, location_id, quantity, updated_at)
		VALUES ($1, $2, '', 0, now())
		ON CONFLICT (item_id, branch_id, location_id) DO NOTHING`,
		group.ItemID, group.BranchID,
	)
	if err != nil {
		return nil, wrapErr("ensure stock anchor", err)
	}
	if _, err := r.q.Exec(ctx, `
		SELECT 1 FROM stock_levels
		WHERE item_id = $1 AND branch_id = $2 AND location_id = ''
		FOR UPDATE`,
		group.ItemID, group.BranchID,
	); err != nil {
		return nil, wrapErr("lock stock anchor", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+stockColumns+`
		FROM stock_levels WHERE item_id = $1 AND branch_id = $2
		ORDER BY location_id
		FOR UPDATE`,
		group.ItemID, group.BranchID,
	)
	if err != nil {
		return nil, wrapErr("lock stock group", err)
	}
	return scanLevels(rows, "lock stock group")
}

// ListByGroup lectura sin bloqueo de las filas del grupo.
func (r *StockRepo) ListByGroup(ctx context.Context, group entity.GroupKey) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stockColumns+`
		FROM stock_levels WHERE item_id = $1 AND branch_id = $2
		ORDER BY location_id`,
		group.ItemID, group.BranchID,
	)
	if err != nil {
		return nil, wrapErr("list stock group", err)
	}
	return scanLevels(rows, "list stock group")
}

// ListByBranch niveles de todos los items de una sucursal.
func (r *StockRepo) ListByBranch(ctx context.Context, branchID string) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stockColumns+`
		FROM stock_levels WHERE branch_id = $1
		ORDER BY item_id, location_id`,
		branchID,
	)
	if err != nil {
		return nil, wrapErr("list stock by branch", err)
	}
	return scanLevels(rows, "list stock by branch")
}

// ListGroups grupos con fila, en orden canónico. branchID vacío = todas las sucursales.
func (r *StockRepo) ListGroups(ctx context.Context, branchID string) ([]entity.GroupKey, error) {
	query := `SELECT DISTINCT item_id, branch_id FROM stock_levels`
	var args []any
	if branchID != "" {
		query += ` WHERE branch_id = $1`
		args = append(args, branchID)
	}
	query += ` ORDER BY item_id, branch_id`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list stock groups", err)
	}
	defer rows.Close()
	var out []entity.GroupKey
	for rows.Next() {
		var g entity.GroupKey
		if err := rows.Scan(&g.ItemID, &g.BranchID); err != nil {
			return nil, wrapErr("scan stock group", err)
		}
		out = append(out, g)
	}
	return out, wrapErr("list stock groups", rows.Err())
}

// Save inserta o actualiza la cantidad de una clave.
func (r *StockRepo) Save(ctx context.Context, level *entity.StockLevel) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_levels (item_id, branch_id, location_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id, branch_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`,
		level.Key.ItemID, level.Key.BranchID, level.Key.LocationID, level.Quantity, level.UpdatedAt,
	)
	return wrapErr("save stock level", err)
}

func scanLevels(rows pgx.Rows, op string) ([]*entity.StockLevel, error) {
	defer rows.Close()
	var out []*entity.StockLevel
	for rows.Next() {
		var l entity.StockLevel
		if err := rows.Scan(&l.Key.ItemID, &l.Key.BranchID, &l.Key.LocationID, &l.Quantity, &l.UpdatedAt); err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, &l)
	}
	return out, wrapErr(op, rows.Err())
}
