package dto

import "github.com/shopspring/decimal"

// CheckoutLine una línea del carrito.
type CheckoutLine struct {
	ItemID     string `json:"item_id" validate:"required"`
	LocationID string `json:"location_id,omitempty"` // vacío = descontar a nivel de sucursal
	Quantity   int64  `json:"quantity" validate:"gt=0"`
}

// CheckoutRequest carrito a convertir en venta.
type CheckoutRequest struct {
	BranchID string          `json:"branch_id" validate:"required"`
	Lines    []CheckoutLine  `json:"lines" validate:"required,min=1,dive"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"` // por defecto "sale_create"
}

// RefundResult resultado de un reembolso. AlreadyRefunded indica que la llamada no tuvo efecto.
type RefundResult struct {
	SaleID          string `json:"sale_id"`
	AlreadyRefunded bool   `json:"already_refunded"`
	RestockedUnits  int64  `json:"restocked_units"`
}
