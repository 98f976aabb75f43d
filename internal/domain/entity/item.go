package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un repuesto o SKU vendible en cualquier sucursal.
// El stock se maneja por sucursal (y opcionalmente por ubicación) en StockLevel.
type Item struct {
	ID            string
	SKU           string // código único global
	Barcode       string
	Name          string
	Description   string
	UnitPrice     decimal.Decimal // precio de venta, nunca negativo
	UnitCost      decimal.Decimal // costo de compra, para utilidad de ventas
	MinStockLevel int64           // umbral de reposición
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
