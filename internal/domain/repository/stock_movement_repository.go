package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// StockMovementRepository define el puerto append-only de movimientos de stock.
type StockMovementRepository interface {
	// Append asigna ID (orden de anexión) y CreatedAt si viene vacío.
	Append(ctx context.Context, m *entity.StockMovement) error
	// ListByGroup devuelve los movimientos del grupo desde since (inclusive), en orden de anexión.
	ListByGroup(ctx context.Context, group entity.GroupKey, since time.Time) ([]*entity.StockMovement, error)
	ListBySale(ctx context.Context, saleID string) ([]*entity.StockMovement, error)
	ListByTransfer(ctx context.Context, transferID string) ([]*entity.StockMovement, error)
}
