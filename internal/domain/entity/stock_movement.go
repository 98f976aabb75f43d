package entity

import "time"

// Tipos de movimiento del libro de stock.
const (
	MovementKindSale        = "sale"
	MovementKindRefund      = "refund"
	MovementKindAdjustment  = "adjustment"
	MovementKindTransferOut = "transfer-out"
	MovementKindTransferIn  = "transfer-in"
	MovementKindRelocation  = "relocation" // entre ubicaciones de la misma sucursal
)

// StockMovement es un hecho inmutable: un cambio de cantidad y su causa.
// La suma de Delta por clave debe coincidir con StockLevel.Quantity.
type StockMovement struct {
	ID               int64 // orden de anexión
	ItemID           string
	BranchID         string
	LocationID       string // clave afectada
	FromLocationID   string
	ToLocationID     string
	Delta            int64 // positivo entrada, negativo salida
	Kind             string
	Reason           string
	ActorID          string
	SaleID           string
	TransferID       string
	LinkedMovementID int64 // par transfer-out/transfer-in o relocation
	CreatedAt        time.Time
}

// Key devuelve la clave de stock afectada por el movimiento.
func (m *StockMovement) Key() StockKey {
	return StockKey{ItemID: m.ItemID, BranchID: m.BranchID, LocationID: m.LocationID}
}
