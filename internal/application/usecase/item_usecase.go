package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

// ItemUseCase catálogo de items. El costo promedio cambia solo con entradas de stock.
type ItemUseCase struct {
	txRunner ports.TxRunner
	repo     repository.ItemRepository
	trail    *audit.Trail
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(txRunner ports.TxRunner, repo repository.ItemRepository, trail *audit.Trail) *ItemUseCase {
	return &ItemUseCase{txRunner: txRunner, repo: repo, trail: trail}
}

// Create da de alta un item. Requiere gerente o administrador.
func (uc *ItemUseCase) Create(ctx context.Context, actor entity.Actor, in dto.CreateItemRequest) (*entity.Item, error) {
	if err := requireCatalogRole(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if in.UnitPrice.IsNegative() || in.UnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: precio y costo no pueden ser negativos", domain.ErrInvalidInput)
	}
	sku := strings.TrimSpace(in.SKU)
	if existing, _ := uc.repo.GetBySKU(ctx, sku); existing != nil {
		return nil, fmt.Errorf("%w: SKU %s", domain.ErrDuplicate, sku)
	}
	now := time.Now().UTC()
	item := &entity.Item{
		ID:            uuid.New().String(),
		SKU:           sku,
		Barcode:       in.Barcode,
		Name:          in.Name,
		Description:   in.Description,
		UnitPrice:     in.UnitPrice,
		UnitCost:      in.UnitCost,
		MinStockLevel: in.MinStockLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetByID obtiene un item; el catálogo es visible para todos los roles.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
	}
	return item, nil
}

// List lista el catálogo ordenado por SKU.
func (uc *ItemUseCase) List(ctx context.Context, page dto.PageRequest) ([]*entity.Item, error) {
	page.DefaultPage()
	return uc.repo.List(ctx, page.Limit, page.Offset)
}

// UpdatePrice cambia el precio de venta y registra item.price_change en la misma unidad.
// Las ventas ya registradas conservan el precio con el que se hicieron.
func (uc *ItemUseCase) UpdatePrice(ctx context.Context, actor entity.Actor, id string, in dto.UpdateItemPriceRequest) (*entity.Item, error) {
	if err := requireCatalogRole(actor); err != nil {
		return nil, err
	}
	reason, err := audit.NormalizeReason(in.Reason)
	if err != nil {
		return nil, err
	}
	if in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: precio negativo", domain.ErrInvalidInput)
	}

	var out *entity.Item
	err = uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		item, err := tx.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
		}
		before := item.UnitPrice
		item.UnitPrice = in.UnitPrice
		item.UpdatedAt = time.Now().UTC()
		if err := tx.Items.Update(ctx, item); err != nil {
			return err
		}
		_, err = uc.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   actor.HomeBranchID,
			Action:     entity.ActionItemPriceChange,
			ObjectType: "item",
			ObjectID:   item.ID,
			Reason:     reason,
			Before:     map[string]any{"unit_price": before.String()},
			After:      map[string]any{"unit_price": item.UnitPrice.String()},
		})
		out = item
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func requireCatalogRole(actor entity.Actor) error {
	if actor.Role != entity.RoleManager && actor.Role != entity.RoleAdmin {
		return fmt.Errorf("%w: %s no administra el catálogo", domain.ErrForbidden, actor.DisplayName())
	}
	return nil
}
