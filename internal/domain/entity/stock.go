package entity

import "time"

// GroupKey identifica un grupo de stock (item, sucursal). Es la unidad de bloqueo del libro.
type GroupKey struct {
	ItemID   string
	BranchID string
}

// Less define el orden canónico de adquisición de bloqueos.
func (k GroupKey) Less(o GroupKey) bool {
	if k.ItemID != o.ItemID {
		return k.ItemID < o.ItemID
	}
	return k.BranchID < o.BranchID
}

// StockKey identifica un contador de stock. LocationID vacío es el cubo a nivel de sucursal.
type StockKey struct {
	ItemID     string
	BranchID   string
	LocationID string
}

// Group devuelve el grupo de bloqueo al que pertenece la clave.
func (k StockKey) Group() GroupKey {
	return GroupKey{ItemID: k.ItemID, BranchID: k.BranchID}
}

// StockLevel es la cantidad registrada para una clave. Nunca queda negativa tras un commit.
type StockLevel struct {
	Key       StockKey
	Quantity  int64
	UpdatedAt time.Time
}

// String forma estable "item|sucursal|ubicación" usada en instantáneas de auditoría.
func (k StockKey) String() string {
	return k.ItemID + "|" + k.BranchID + "|" + k.LocationID
}
