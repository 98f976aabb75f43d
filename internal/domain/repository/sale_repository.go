package repository

import (
	"context"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// SaleRepository define el puerto de persistencia para ventas y sus líneas.
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// GetForUpdate bloquea la venta hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Sale, error)
	// MarkRefunded pasa is_refunded a true; domain.ErrAlreadyRefunded si ya lo estaba.
	MarkRefunded(ctx context.Context, sale *entity.Sale) error
	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.Sale, error)
}
