package ledger

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

// CheckLocations verifica que cada ubicación no vacía exista en el catálogo y pertenezca a la sucursal.
// Se llama antes de bloquear: una ubicación desconocida nunca llega a crear un nivel.
func CheckLocations(ctx context.Context, repo repository.LocationRepository, branchID string, ids ...string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		loc, err := repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get location: %w", err)
		}
		if loc == nil || loc.BranchID != branchID {
			return fmt.Errorf("%w: la ubicación %s no pertenece a la sucursal %s", domain.ErrInvalidInput, id, branchID)
		}
	}
	return nil
}
