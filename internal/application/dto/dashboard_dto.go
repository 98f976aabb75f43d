package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummaryDTO KPIs de ventas de una sucursal en un período.
// Las ventas reembolsadas cuentan en RefundedCount pero no suman ingresos ni utilidad.
type SalesSummaryDTO struct {
	BranchID      string          `json:"branch_id"`
	From          *time.Time      `json:"from,omitempty"`
	To            *time.Time      `json:"to,omitempty"`
	SalesCount    int             `json:"sales_count"`
	RefundedCount int             `json:"refunded_count"`
	UnitsSold     int64           `json:"units_sold"`
	Revenue       decimal.Decimal `json:"revenue"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	TopItems      []TopItemDTO    `json:"top_items"`
}

// TopItemDTO resumen de un item para el ranking por ingreso.
type TopItemDTO struct {
	ItemID           string          `json:"item_id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	QuantitySold     int64           `json:"quantity_sold"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	MarginPercentage decimal.Decimal `json:"margin_percentage"` // (revenue - cost) / revenue * 100
}

// SalesPeriodRequest rango opcional [From, To) para reportes.
type SalesPeriodRequest struct {
	BranchID string     `json:"branch_id" validate:"required"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}
