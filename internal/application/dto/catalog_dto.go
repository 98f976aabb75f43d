package dto

import "github.com/shopspring/decimal"

// CreateBranchRequest alta de sucursal.
type CreateBranchRequest struct {
	Code    string `json:"code" validate:"required,max=20"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

// CreateItemRequest alta de item del catálogo.
type CreateItemRequest struct {
	SKU           string          `json:"sku" validate:"required,max=64"`
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	MinStockLevel int64           `json:"min_stock_level" validate:"gte=0"`
}

// UpdateItemPriceRequest cambio de precio de venta, auditado.
type UpdateItemPriceRequest struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Reason    string          `json:"reason"`
}

// CreateLocationRequest alta de ubicación dentro de una sucursal.
type CreateLocationRequest struct {
	BranchID string `json:"branch_id" validate:"required"`
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name"`
}
