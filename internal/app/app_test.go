package app_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/internal/app"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/pkg/config"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

func memoryConfig(t *testing.T, overrides map[string]string) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("STORE_DRIVER", "memory")
	v.Set("LEDGER_LOCK_TIMEOUT_MS", "500")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestNew_MemoryFlujoCompleto(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, memoryConfig(t, nil), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	admin := entity.Actor{ID: "u-admin", Username: "admin", Role: entity.RoleAdmin}
	norte, err := a.Branches.Create(ctx, admin, dto.CreateBranchRequest{Code: "NORTE", Name: "Norte"})
	require.NoError(t, err)
	sur, err := a.Branches.Create(ctx, admin, dto.CreateBranchRequest{Code: "SUR", Name: "Sur"})
	require.NoError(t, err)
	filtro, err := a.Items.Create(ctx, admin, dto.CreateItemRequest{
		SKU: "FIL-01", Name: "Filtro de aceite", UnitPrice: decimal.NewFromInt(25), UnitCost: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	_, err = a.Adjustments.Adjust(ctx, admin, dto.AdjustmentRequest{ItemID: filtro.ID, BranchID: norte.ID, Delta: 10, Reason: "compra inicial"})
	require.NoError(t, err)

	cashier := entity.Actor{ID: "u-caja", Username: "caja", Role: entity.RoleCashier, HomeBranchID: norte.ID}
	sale, err := a.Checkout.Checkout(ctx, cashier, dto.CheckoutRequest{
		BranchID: norte.ID,
		Lines:    []dto.CheckoutLine{{ItemID: filtro.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(100)))

	tr, err := a.Transfers.Create(ctx, admin, dto.CreateTransferRequest{
		SourceBranchID: norte.ID, DestinationBranchID: sur.ID, ItemID: filtro.ID, Quantity: 6, Reason: "reposición sur",
	})
	require.NoError(t, err)
	_, err = a.Checkout.Checkout(ctx, cashier, dto.CheckoutRequest{
		BranchID: norte.ID,
		Lines:    []dto.CheckoutLine{{ItemID: filtro.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	for _, st := range []entity.TransferState{entity.TransferApproved, entity.TransferPickedUp, entity.TransferDelivered, entity.TransferReceived} {
		_, err = a.Transfers.Transition(ctx, admin, tr.ID, st, "paso "+string(st))
		require.NoError(t, err)
	}
	n, err := a.Ledger.RecordedQuantity(ctx, filtro.ID, sur.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	report, err := a.Reports.Summary(ctx, admin, dto.SalesPeriodRequest{BranchID: norte.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SalesCount)
	assert.True(t, report.Profit.Equal(decimal.NewFromInt(60)), report.Profit.String())

	summary, err := a.Reconcile.Run(ctx, admin, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Groups)
	assert.Empty(t, summary.Inconsistent)

	expected := `
# HELP inventario_checkouts_total Ventas intentadas por resultado.
# TYPE inventario_checkouts_total counter
inventario_checkouts_total{outcome="insufficient_stock"} 1
inventario_checkouts_total{outcome="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(a.Metrics.Gatherer(), strings.NewReader(expected), "inventario_checkouts_total"))
}

func TestNew_PoliticaInvalida(t *testing.T) {
	_, err := app.New(context.Background(), memoryConfig(t, map[string]string{"ACCESS_MANAGER_CROSS_BRANCH": "todo"}), logger.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNew_PoliticaConfigurable(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, memoryConfig(t, map[string]string{"ACCESS_MANAGER_CROSS_BRANCH": "none"}), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	admin := entity.Actor{ID: "u-admin", Username: "admin", Role: entity.RoleAdmin}
	sur, err := a.Branches.Create(ctx, admin, dto.CreateBranchRequest{Code: "SUR", Name: "Sur"})
	require.NoError(t, err)

	manager := entity.Actor{ID: "u-ger", Username: "gerente", Role: entity.RoleManager, HomeBranchID: "b-otra"}
	_, err = a.Branches.GetByID(ctx, manager, sur.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
