package repository

import (
	"context"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// StockLevelRepository define el puerto para los contadores de stock por (item, sucursal, ubicación).
// Solo el libro de stock lo usa para escribir.
type StockLevelRepository interface {
	// LockGroup bloquea de forma exclusiva todas las filas del grupo hasta el fin de la transacción.
	// Crea la fila ancla (ubicación vacía) en cero si no existe. Devuelve las filas ordenadas por ubicación.
	LockGroup(ctx context.Context, group entity.GroupKey) ([]*entity.StockLevel, error)
	// ListByGroup lectura sin bloqueo, para visualización.
	ListByGroup(ctx context.Context, group entity.GroupKey) ([]*entity.StockLevel, error)
	ListByBranch(ctx context.Context, branchID string) ([]*entity.StockLevel, error)
	// ListGroups devuelve los grupos con al menos una fila; branchID vacío = todas las sucursales.
	ListGroups(ctx context.Context, branchID string) ([]entity.GroupKey, error)
	Save(ctx context.Context, level *entity.StockLevel) error
}
