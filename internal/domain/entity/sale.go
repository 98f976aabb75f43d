package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale representa una venta de caja ya confirmada en una sucursal.
// IsRefunded es monotónico: una vez en true no vuelve a false.
type Sale struct {
	ID           string
	BranchID     string
	CashierID    string
	Lines        []SaleLine
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	IsRefunded   bool
	RefundedAt   *time.Time
	RefundedBy   string
	RefundReason string
	CreatedAt    time.Time
}

// SaleLine es una línea de la venta con precio y costo congelados al momento de vender.
type SaleLine struct {
	LineNo     int
	ItemID     string
	LocationID string // vacío = se descontó a nivel de sucursal
	Quantity   int64
	UnitPrice  decimal.Decimal
	UnitCost   decimal.Decimal
	Subtotal   decimal.Decimal
}

// Profit devuelve la utilidad de la venta; cero si fue reembolsada.
func (s *Sale) Profit() decimal.Decimal {
	if s.IsRefunded {
		return decimal.Zero
	}
	profit := decimal.Zero
	for _, l := range s.Lines {
		profit = profit.Add(l.UnitPrice.Sub(l.UnitCost).Mul(decimal.NewFromInt(l.Quantity)))
	}
	return profit.Sub(s.Discount)
}

// TotalUnits suma las unidades vendidas.
func (s *Sale) TotalUnits() int64 {
	var n int64
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}
