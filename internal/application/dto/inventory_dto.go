package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentRequest entrada o baja manual de stock en una clave.
type AdjustmentRequest struct {
	ItemID     string           `json:"item_id" validate:"required"`
	BranchID   string           `json:"branch_id" validate:"required"`
	LocationID string           `json:"location_id,omitempty"`
	Delta      int64            `json:"delta" validate:"ne=0"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"` // solo entradas; recalcula costo promedio
	Reason     string           `json:"reason"`
}

// RelocationRequest mueve unidades entre dos ubicaciones de la misma sucursal.
type RelocationRequest struct {
	ItemID         string `json:"item_id" validate:"required"`
	BranchID       string `json:"branch_id" validate:"required"`
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id" validate:"nefield=FromLocationID"`
	Quantity       int64  `json:"quantity" validate:"gt=0"`
	Reason         string `json:"reason"`
}

// LowStockItemDTO item cuya cantidad disponible está en o bajo su umbral de reposición.
type LowStockItemDTO struct {
	ItemID             string          `json:"item_id"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Recorded           int64           `json:"recorded"`
	Reserved           int64           `json:"reserved"`
	Available          int64           `json:"available"`
	MinStockLevel      int64           `json:"min_stock_level"`
	SuggestedOrderQty  int64           `json:"suggested_order_qty"` // 2×umbral − disponible
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"`
}

// ReconcileReport resultado de reconstruir un grupo desde sus movimientos.
type ReconcileReport struct {
	ItemID     string        `json:"item_id"`
	BranchID   string        `json:"branch_id"`
	Consistent bool          `json:"consistent"`
	Mismatches []MismatchDTO `json:"mismatches,omitempty"`
	Movements  int           `json:"movements"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// MismatchDTO diferencia entre nivel registrado y reconstruido en una ubicación.
type MismatchDTO struct {
	LocationID string `json:"location_id"`
	Recorded   int64  `json:"recorded"`
	Replayed   int64  `json:"replayed"`
}

// ReconcileSummary resultado de conciliar todos los grupos de una sucursal (o de todas).
type ReconcileSummary struct {
	BranchID     string            `json:"branch_id,omitempty"`
	Groups       int               `json:"groups"`
	Inconsistent []ReconcileReport `json:"inconsistent,omitempty"`
	Holds        []HoldDTO         `json:"holds,omitempty"`
	Failed       []string          `json:"failed,omitempty"`
}

// HoldDTO grupo con escrituras suspendidas.
type HoldDTO struct {
	ItemID     string    `json:"item_id"`
	BranchID   string    `json:"branch_id"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}
