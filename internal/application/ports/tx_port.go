package ports

import (
	"context"

	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una unidad atómica, pasando repositorios atados a ella.
// Si fn devuelve error todo lo escrito se descarta; si no, se confirma en bloque.
// Una espera de bloqueo que supera el límite configurado falla con domain.ErrLockTimeout.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx repository.Repos) error) error
}
