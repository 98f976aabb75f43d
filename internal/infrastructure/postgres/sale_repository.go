package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación de SaleRepository (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, branch_id, cashier_id, subtotal, discount, total, is_refunded, refunded_at, refunded_by, refund_reason, created_at`

// Create persiste la cabecera y sus líneas. Debe ir dentro de la misma transacción que los movimientos.
func (r *SaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales (id, branch_id, cashier_id, subtotal, discount, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sale.ID, sale.BranchID, sale.CashierID, sale.Subtotal, sale.Discount, sale.Total, sale.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: venta %s", domain.ErrDuplicate, sale.ID)
		}
		return wrapErr("insert sale", err)
	}
	for _, l := range sale.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_lines (sale_id, line_no, item_id, location_id, quantity, unit_price, unit_cost, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sale.ID, l.LineNo, l.ItemID, l.LocationID, l.Quantity, l.UnitPrice, l.UnitCost, l.Subtotal,
		)
		if err != nil {
			return wrapErr("insert sale line", err)
		}
	}
	return nil
}

// GetByID obtiene una venta completa por ID.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la fila de la venta.
func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
}

func (r *SaleRepo) get(ctx context.Context, query, id string) (*entity.Sale, error) {
	s, err := scanSale(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get sale", err)
	}
	if err := r.attachLines(ctx, []*entity.Sale{s}); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkRefunded solo actualiza si la venta no estaba reembolsada.
func (r *SaleRepo) MarkRefunded(ctx context.Context, sale *entity.Sale) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE sales SET is_refunded = true, refunded_at = $2, refunded_by = $3, refund_reason = $4
		WHERE id = $1 AND NOT is_refunded`,
		sale.ID, sale.RefundedAt, nullable(sale.RefundedBy), nullable(sale.RefundReason),
	)
	if err != nil {
		return wrapErr("mark sale refunded", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`, sale.ID).Scan(&exists); err != nil {
		return wrapErr("mark sale refunded", err)
	}
	if !exists {
		return fmt.Errorf("%w: venta %s", domain.ErrNotFound, sale.ID)
	}
	return domain.ErrAlreadyRefunded
}

// ListByBranch ventas de la sucursal, más recientes primero.
func (r *SaleRepo) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.Sale, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+saleColumns+`
		FROM sales WHERE branch_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		branchID, limitOrAll(limit), offset,
	)
	if err != nil {
		return nil, wrapErr("list sales", err)
	}
	defer rows.Close()
	var list []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, wrapErr("scan sale", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list sales", err)
	}
	rows.Close()
	if err := r.attachLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// attachLines carga las líneas de varias ventas en una sola consulta.
func (r *SaleRepo) attachLines(ctx context.Context, sales []*entity.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, len(sales))
	byID := make(map[string]*entity.Sale, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		byID[s.ID] = s
	}
	rows, err := r.q.Query(ctx, `
		SELECT sale_id, line_no, item_id, location_id, quantity, unit_price, unit_cost, subtotal
		FROM sale_lines WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no`, ids,
	)
	if err != nil {
		return wrapErr("list sale lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var saleID string
		var l entity.SaleLine
		if err := rows.Scan(&saleID, &l.LineNo, &l.ItemID, &l.LocationID, &l.Quantity, &l.UnitPrice, &l.UnitCost, &l.Subtotal); err != nil {
			return wrapErr("scan sale line", err)
		}
		if s, ok := byID[saleID]; ok {
			s.Lines = append(s.Lines, l)
		}
	}
	return wrapErr("list sale lines", rows.Err())
}

func scanSale(row pgx.Row) (*entity.Sale, error) {
	var s entity.Sale
	var by, reason *string
	err := row.Scan(&s.ID, &s.BranchID, &s.CashierID, &s.Subtotal, &s.Discount, &s.Total,
		&s.IsRefunded, &s.RefundedAt, &by, &reason, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.RefundedBy, s.RefundReason = deref(by), deref(reason)
	return &s, nil
}
