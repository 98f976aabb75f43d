package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/usecase"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/memory"
)

var admin = entity.Actor{ID: "u-admin", Username: "admin", Role: entity.RoleAdmin}

func TestBranchUseCase(t *testing.T) {
	store := memory.New(time.Second)
	uc := usecase.NewBranchUseCase(store.Branches(), store.Locations(), access.DefaultPolicy())
	ctx := context.Background()

	norte, err := uc.Create(ctx, admin, dto.CreateBranchRequest{Code: " nor ", Name: "Norte"})
	require.NoError(t, err)
	assert.Equal(t, "NOR", norte.Code)
	sur, err := uc.Create(ctx, admin, dto.CreateBranchRequest{Code: "SUR", Name: "Sur"})
	require.NoError(t, err)

	_, err = uc.Create(ctx, admin, dto.CreateBranchRequest{Code: "NOR", Name: "Otra"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	cashier := entity.Actor{ID: "u-c", Username: "caja", Role: entity.RoleCashier, HomeBranchID: norte.ID}
	_, err = uc.Create(ctx, cashier, dto.CreateBranchRequest{Code: "X", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	visible, err := uc.List(ctx, cashier, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, norte.ID, visible[0].ID)

	all, err := uc.List(ctx, admin, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = uc.GetByID(ctx, cashier, sur.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	loc, err := uc.CreateLocation(ctx, cashier, dto.CreateLocationRequest{BranchID: norte.ID, Code: "a-01", Name: "Pasillo A"})
	require.NoError(t, err)
	assert.Equal(t, "A-01", loc.Code)
	_, err = uc.CreateLocation(ctx, cashier, dto.CreateLocationRequest{BranchID: sur.ID, Code: "a-01"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	locs, err := uc.Locations(ctx, cashier, norte.ID)
	require.NoError(t, err)
	assert.Len(t, locs, 1)
}

func TestItemUseCase_UpdatePriceAuditado(t *testing.T) {
	store := memory.New(time.Second)
	repos := store.Repos()
	trail := audit.NewTrail(repos.Audit, access.DefaultPolicy())
	uc := usecase.NewItemUseCase(store, repos.Items, trail)
	ctx := context.Background()

	item, err := uc.Create(ctx, admin, dto.CreateItemRequest{
		SKU: "CAF-500", Name: "Café 500g", UnitPrice: decimal.NewFromInt(18000), UnitCost: decimal.NewFromInt(11000), MinStockLevel: 5,
	})
	require.NoError(t, err)

	_, err = uc.Create(ctx, admin, dto.CreateItemRequest{SKU: "CAF-500", Name: "Duplicado"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.UpdatePrice(ctx, admin, item.ID, dto.UpdateItemPriceRequest{UnitPrice: decimal.NewFromInt(19000)})
	assert.ErrorIs(t, err, domain.ErrMissingReason)

	updated, err := uc.UpdatePrice(ctx, admin, item.ID, dto.UpdateItemPriceRequest{UnitPrice: decimal.NewFromInt(19000), Reason: "ajuste de proveedor"})
	require.NoError(t, err)
	assert.True(t, updated.UnitPrice.Equal(decimal.NewFromInt(19000)))

	logs, err := repos.Audit.List(ctx, entity.AuditFilter{Action: entity.ActionItemPriceChange})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	var after map[string]any
	require.NoError(t, json.Unmarshal(logs[0].After, &after))
	assert.Equal(t, "19000", after["unit_price"])
	assert.Equal(t, "ajuste de proveedor", after["reason"])

	cashier := entity.Actor{ID: "u-c", Username: "caja", Role: entity.RoleCashier, HomeBranchID: "b-1"}
	_, err = uc.UpdatePrice(ctx, cashier, item.ID, dto.UpdateItemPriceRequest{UnitPrice: decimal.NewFromInt(1), Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
