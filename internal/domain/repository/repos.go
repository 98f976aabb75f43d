package repository

// Repos agrupa los repositorios de una misma conexión. Atados a un pool sirven para lecturas;
// atados a una unidad atómica, todo lo escrito a través de ellos se confirma o se descarta en bloque.
type Repos struct {
	Stock        StockLevelRepository
	Movements    StockMovementRepository
	Reservations ReservationRepository
	Holds        LedgerHoldRepository
	Sales        SaleRepository
	Transfers    TransferRepository
	Audit        AuditLogRepository
	Items        ItemRepository
	Locations    LocationRepository
}
