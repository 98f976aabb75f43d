package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// ReservationRepository define el puerto de retenciones lógicas sobre stock disponible.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	// GetActiveByTransfer devuelve nil, nil si el traslado no tiene reserva activa.
	GetActiveByTransfer(ctx context.Context, transferID string) (*entity.Reservation, error)
	// Release marca la reserva como liberada; domain.ErrConflict si ya lo estaba.
	Release(ctx context.Context, id int64, at time.Time) error
	SumActive(ctx context.Context, group entity.GroupKey) (int64, error)
	// SumActiveByBranch devuelve la cantidad reservada por item en la sucursal.
	SumActiveByBranch(ctx context.Context, branchID string) (map[string]int64, error)
}
