package repository

import (
	"context"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// AuditLogRepository define el puerto append-only de la bitácora. No hay update ni delete.
type AuditLogRepository interface {
	Append(ctx context.Context, e *entity.AuditLog) error
	// List devuelve las entradas más recientes primero.
	List(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLog, error)
}
