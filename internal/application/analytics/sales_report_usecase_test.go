package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/internal/application/analytics"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/memory"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var manager = entity.Actor{ID: "u-ger", Username: "gerente", Role: entity.RoleManager, HomeBranchID: "b-1"}

func line(no int, itemID string, qty, price, cost int64) entity.SaleLine {
	p := decimal.NewFromInt(price)
	return entity.SaleLine{
		LineNo: no, ItemID: itemID, Quantity: qty,
		UnitPrice: p, UnitCost: decimal.NewFromInt(cost), Subtotal: p.Mul(decimal.NewFromInt(qty)),
	}
}

func sale(id, branch string, at time.Time, refunded bool, lines ...entity.SaleLine) *entity.Sale {
	s := &entity.Sale{ID: id, BranchID: branch, CashierID: "u-caja", Lines: lines, Discount: decimal.Zero, CreatedAt: at, IsRefunded: refunded}
	s.Subtotal = decimal.Zero
	for _, l := range lines {
		s.Subtotal = s.Subtotal.Add(l.Subtotal)
	}
	s.Total = s.Subtotal
	return s
}

func newReports(t *testing.T) *analytics.SalesReportUseCase {
	t.Helper()
	ctx := context.Background()
	store := memory.New(time.Second)
	repos := store.Repos()
	for _, it := range []entity.Item{
		{ID: "i-1", SKU: "FIL-01", Name: "Filtro de aceite", UnitPrice: decimal.NewFromInt(25), UnitCost: decimal.NewFromInt(10)},
		{ID: "i-2", SKU: "BAT-01", Name: "Batería", UnitPrice: decimal.NewFromInt(100), UnitCost: decimal.NewFromInt(40)},
	} {
		require.NoError(t, repos.Items.Create(ctx, &it))
	}
	for _, s := range []*entity.Sale{
		sale("s-1", "b-1", t0, false, line(1, "i-1", 2, 25, 10)),
		sale("s-2", "b-1", t0.Add(time.Hour), false, line(1, "i-2", 1, 100, 40), line(2, "i-1", 1, 25, 10)),
		sale("s-3", "b-1", t0.Add(2*time.Hour), true, line(1, "i-1", 3, 25, 10)),
		sale("s-4", "b-2", t0, false, line(1, "i-2", 5, 100, 40)),
	} {
		require.NoError(t, repos.Sales.Create(ctx, s))
	}
	return analytics.NewSalesReportUseCase(repos.Sales, repos.Items, access.DefaultPolicy())
}

func TestSummary_ExcluyeReembolsadas(t *testing.T) {
	uc := newReports(t)

	got, err := uc.Summary(context.Background(), manager, dto.SalesPeriodRequest{BranchID: "b-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, got.SalesCount)
	assert.Equal(t, 1, got.RefundedCount)
	assert.Equal(t, int64(4), got.UnitsSold)
	assert.True(t, got.Revenue.Equal(decimal.NewFromInt(175)), got.Revenue.String())
	assert.True(t, got.Cost.Equal(decimal.NewFromInt(70)), got.Cost.String())
	assert.True(t, got.Profit.Equal(decimal.NewFromInt(105)), got.Profit.String())

	require.Len(t, got.TopItems, 2)
	assert.Equal(t, "BAT-01", got.TopItems[0].SKU)
	assert.True(t, got.TopItems[0].TotalRevenue.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.TopItems[0].MarginPercentage.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "FIL-01", got.TopItems[1].SKU)
	assert.Equal(t, int64(3), got.TopItems[1].QuantitySold)
}

func TestSummary_Periodo(t *testing.T) {
	uc := newReports(t)
	from, to := t0.Add(time.Hour), t0.Add(2*time.Hour)

	got, err := uc.Summary(context.Background(), manager, dto.SalesPeriodRequest{BranchID: "b-1", From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 1, got.SalesCount)
	assert.Equal(t, 0, got.RefundedCount)
	assert.True(t, got.Revenue.Equal(decimal.NewFromInt(125)))
}

func TestSummary_Alcance(t *testing.T) {
	uc := newReports(t)
	ctx := context.Background()

	_, err := uc.Summary(ctx, manager, dto.SalesPeriodRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cashier := entity.Actor{ID: "u-caja", Username: "caja", Role: entity.RoleCashier, HomeBranchID: "b-2"}
	_, err = uc.Summary(ctx, cashier, dto.SalesPeriodRequest{BranchID: "b-1"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	// Un gerente consulta otras sucursales en solo lectura.
	_, err = uc.Summary(ctx, manager, dto.SalesPeriodRequest{BranchID: "b-2"})
	assert.NoError(t, err)
}
