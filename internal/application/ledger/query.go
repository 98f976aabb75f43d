package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// Lecturas para visualización: sin bloqueo, no deben alimentar una mutación.

// RecordedQuantity suma lo registrado del item en la sucursal (todas las ubicaciones).
func (l *Ledger) RecordedQuantity(ctx context.Context, itemID, branchID string) (int64, error) {
	levels, err := l.store.Stock.ListByGroup(ctx, entity.GroupKey{ItemID: itemID, BranchID: branchID})
	if err != nil {
		return 0, err
	}
	var n int64
	for _, lv := range levels {
		n += lv.Quantity
	}
	return n, nil
}

// AvailableQuantity es lo registrado menos las reservas activas de traslados.
func (l *Ledger) AvailableQuantity(ctx context.Context, itemID, branchID string) (int64, error) {
	recorded, err := l.RecordedQuantity(ctx, itemID, branchID)
	if err != nil {
		return 0, err
	}
	reserved, err := l.store.Reservations.SumActive(ctx, entity.GroupKey{ItemID: itemID, BranchID: branchID})
	if err != nil {
		return 0, err
	}
	return recorded - reserved, nil
}

// Levels devuelve los niveles del grupo por ubicación.
func (l *Ledger) Levels(ctx context.Context, itemID, branchID string) ([]*entity.StockLevel, error) {
	return l.store.Stock.ListByGroup(ctx, entity.GroupKey{ItemID: itemID, BranchID: branchID})
}

// Movements devuelve los movimientos del grupo desde since, en orden de anexión.
// Es una consulta finita y reiniciable: since cero = desde el inicio.
func (l *Ledger) Movements(ctx context.Context, itemID, branchID string, since time.Time) ([]*entity.StockMovement, error) {
	return l.store.Movements.ListByGroup(ctx, entity.GroupKey{ItemID: itemID, BranchID: branchID}, since)
}
