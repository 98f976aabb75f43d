package repository

import (
	"context"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// TransferRepository define el puerto de persistencia para solicitudes de traslado.
type TransferRepository interface {
	Create(ctx context.Context, t *entity.TransferRequest) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.TransferRequest, error)
	GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error)
	Update(ctx context.Context, t *entity.TransferRequest) error
	List(ctx context.Context, filter entity.TransferFilter) ([]*entity.TransferRequest, error)
}
