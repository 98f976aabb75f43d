package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// LedgerHoldRepository define el puerto de suspensiones de escritura por inconsistencia.
type LedgerHoldRepository interface {
	// GetActive devuelve nil, nil si el grupo no está suspendido.
	GetActive(ctx context.Context, group entity.GroupKey) (*entity.LedgerHold, error)
	// Create no hace nada si ya existe una suspensión activa para el grupo.
	Create(ctx context.Context, hold *entity.LedgerHold) error
	// Clear levanta la suspensión activa; domain.ErrNotFound si no hay ninguna.
	Clear(ctx context.Context, group entity.GroupKey, by, reason string, at time.Time) error
	ListActive(ctx context.Context, branchID string) ([]*entity.LedgerHold, error)
}
