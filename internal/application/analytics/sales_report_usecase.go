// Package analytics contiene los reportes de ventas por sucursal.
package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

const (
	topItems = 5
	pageSize = 500
)

// SalesReportUseCase resume las ventas de una sucursal. Solo lectura.
type SalesReportUseCase struct {
	sales  repository.SaleRepository
	items  repository.ItemRepository
	policy access.Policy
}

// NewSalesReportUseCase construye el caso de uso.
func NewSalesReportUseCase(sales repository.SaleRepository, items repository.ItemRepository, policy access.Policy) *SalesReportUseCase {
	return &SalesReportUseCase{sales: sales, items: items, policy: policy}
}

// Summary calcula ingresos, costo, utilidad y el top de items por ingreso del período.
func (uc *SalesReportUseCase) Summary(ctx context.Context, actor entity.Actor, in dto.SalesPeriodRequest) (*dto.SalesSummaryDTO, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if err := access.Require(uc.policy, actor, in.BranchID, access.ReadOnly); err != nil {
		return nil, err
	}
	sales, err := uc.collect(ctx, in)
	if err != nil {
		return nil, err
	}

	out := &dto.SalesSummaryDTO{
		BranchID: in.BranchID, From: in.From, To: in.To,
		Revenue: decimal.Zero, Cost: decimal.Zero, Profit: decimal.Zero,
		TopItems: []dto.TopItemDTO{},
	}
	type acc struct {
		units   int64
		revenue decimal.Decimal
		cost    decimal.Decimal
	}
	byItem := make(map[string]*acc)
	for _, s := range sales {
		out.SalesCount++
		if s.IsRefunded {
			out.RefundedCount++
			continue
		}
		out.UnitsSold += s.TotalUnits()
		out.Revenue = out.Revenue.Add(s.Total)
		out.Profit = out.Profit.Add(s.Profit())
		for _, l := range s.Lines {
			qty := decimal.NewFromInt(l.Quantity)
			cost := l.UnitCost.Mul(qty)
			out.Cost = out.Cost.Add(cost)
			a, ok := byItem[l.ItemID]
			if !ok {
				a = &acc{revenue: decimal.Zero, cost: decimal.Zero}
				byItem[l.ItemID] = a
			}
			a.units += l.Quantity
			a.revenue = a.revenue.Add(l.Subtotal)
			a.cost = a.cost.Add(cost)
		}
	}
	out.Revenue = out.Revenue.Round(2)
	out.Cost = out.Cost.Round(2)
	out.Profit = out.Profit.Round(2)

	ids := make([]string, 0, len(byItem))
	for id := range byItem {
		ids = append(ids, id)
	}
	items, err := uc.items.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	for id, a := range byItem {
		top := dto.TopItemDTO{ItemID: id, QuantitySold: a.units, TotalRevenue: a.revenue.Round(2), MarginPercentage: decimal.Zero}
		if it := items[id]; it != nil {
			top.SKU, top.Name = it.SKU, it.Name
		}
		if a.revenue.IsPositive() {
			top.MarginPercentage = a.revenue.Sub(a.cost).Div(a.revenue).Mul(decimal.NewFromInt(100)).Round(2)
		}
		out.TopItems = append(out.TopItems, top)
	}
	sort.Slice(out.TopItems, func(i, j int) bool {
		a, b := out.TopItems[i], out.TopItems[j]
		if c := a.TotalRevenue.Cmp(b.TotalRevenue); c != 0 {
			return c > 0
		}
		return a.SKU < b.SKU
	})
	if len(out.TopItems) > topItems {
		out.TopItems = out.TopItems[:topItems]
	}
	return out, nil
}

// collect recorre todas las páginas de ventas de la sucursal dentro del período.
func (uc *SalesReportUseCase) collect(ctx context.Context, in dto.SalesPeriodRequest) ([]*entity.Sale, error) {
	var out []*entity.Sale
	for offset := 0; ; offset += pageSize {
		page, err := uc.sales.ListByBranch(ctx, in.BranchID, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list sales: %w", err)
		}
		for _, s := range page {
			if in.From != nil && s.CreatedAt.Before(*in.From) {
				continue
			}
			if in.To != nil && !s.CreatedAt.Before(*in.To) {
				continue
			}
			out = append(out, s)
		}
		if len(page) < pageSize {
			return out, nil
		}
	}
}
