package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición de una sucursal.
type ReplenishmentUseCase struct {
	store  repository.Repos
	policy access.Policy
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(store repository.Repos, policy access.Policy) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{store: store, policy: policy}
}

// LowStock devuelve los items con umbral configurado cuyo disponible (registrado menos reservado)
// está en o bajo el umbral. La cantidad sugerida lleva el disponible al doble del umbral.
// Orden: mayor déficit primero, luego SKU.
func (uc *ReplenishmentUseCase) LowStock(ctx context.Context, actor entity.Actor, branchID string) ([]dto.LowStockItemDTO, error) {
	if err := access.Require(uc.policy, actor, branchID, access.ReadOnly); err != nil {
		return nil, err
	}

	// 1. Registrado por item en la sucursal
	levels, err := uc.store.Stock.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	recorded := make(map[string]int64)
	for _, l := range levels {
		recorded[l.Key.ItemID] += l.Quantity
	}

	// 2. Reservas activas por item
	reserved, err := uc.store.Reservations.SumActiveByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	// 3. Recorrer el catálogo completo: un item sin fila también puede estar bajo su umbral
	var out []dto.LowStockItemDTO
	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		items, err := uc.store.Items.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.MinStockLevel <= 0 {
				continue
			}
			available := recorded[it.ID] - reserved[it.ID]
			if available > it.MinStockLevel {
				continue
			}
			suggested := 2*it.MinStockLevel - available
			out = append(out, dto.LowStockItemDTO{
				ItemID:             it.ID,
				SKU:                it.SKU,
				Name:               it.Name,
				Recorded:           recorded[it.ID],
				Reserved:           reserved[it.ID],
				Available:          available,
				MinStockLevel:      it.MinStockLevel,
				SuggestedOrderQty:  suggested,
				UnitCost:           it.UnitCost,
				EstimatedOrderCost: costOf(suggested, it.UnitCost),
			})
		}
		if len(items) < pageSize {
			break
		}
	}

	// 4. Mayor déficit primero
	sort.SliceStable(out, func(i, j int) bool {
		di := out[i].MinStockLevel - out[i].Available
		dj := out[j].MinStockLevel - out[j].Available
		if di != dj {
			return di > dj
		}
		return out[i].SKU < out[j].SKU
	})
	if out == nil {
		out = []dto.LowStockItemDTO{}
	}
	return out, nil
}
