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

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo retenciones lógicas de traslados en curso.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador de reservas.
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

// Create inserta la reserva y asigna su ID.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO reservations (item_id, branch_id, quantity, transfer_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		res.ItemID, res.BranchID, res.Quantity, res.TransferID, res.CreatedAt,
	).Scan(&res.ID)
	return wrapErr("create reservation", err)
}

// GetActiveByTransfer devuelve nil, nil si el traslado no tiene reserva activa.
func (r *ReservationRepo) GetActiveByTransfer(ctx context.Context, transferID string) (*entity.Reservation, error) {
	var res entity.Reservation
	err := r.q.QueryRow(ctx, `
		SELECT id, item_id, branch_id, quantity, transfer_id, created_at, released_at
		FROM reservations WHERE transfer_id = $1 AND released_at IS NULL`,
		transferID,
	).Scan(&res.ID, &res.ItemID, &res.BranchID, &res.Quantity, &res.TransferID, &res.CreatedAt, &res.ReleasedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get active reservation", err)
	}
	return &res, nil
}

// Release marca la reserva como liberada; una reserva ya liberada es domain.ErrConflict.
func (r *ReservationRepo) Release(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE reservations SET released_at = $2 WHERE id = $1 AND released_at IS NULL`, id, at)
	if err != nil {
		return wrapErr("release reservation", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return wrapErr("release reservation", err)
	}
	if !exists {
		return fmt.Errorf("%w: reserva %d", domain.ErrNotFound, id)
	}
	return fmt.Errorf("%w: reserva %d ya liberada", domain.ErrConflict, id)
}

// SumActive total reservado del grupo.
func (r *ReservationRepo) SumActive(ctx context.Context, group entity.GroupKey) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)::BIGINT
		FROM reservations WHERE item_id = $1 AND branch_id = $2 AND released_at IS NULL`,
		group.ItemID, group.BranchID,
	).Scan(&n)
	return n, wrapErr("sum active reservations", err)
}

// SumActiveByBranch total reservado por item en una sucursal.
func (r *ReservationRepo) SumActiveByBranch(ctx context.Context, branchID string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT item_id, SUM(quantity)::BIGINT
		FROM reservations WHERE branch_id = $1 AND released_at IS NULL
		GROUP BY item_id`,
		branchID,
	)
	if err != nil {
		return nil, wrapErr("sum reservations by branch", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var item string
		var n int64
		if err := rows.Scan(&item, &n); err != nil {
			return nil, wrapErr("scan reservation sum", err)
		}
		out[item] = n
	}
	return out, wrapErr("sum reservations by branch", rows.Err())
}
