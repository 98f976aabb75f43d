package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

// MovementInput datos del movimiento que acompaña cada mutación.
type MovementInput struct {
	Kind             string
	Reason           string
	ActorID          string
	SaleID           string
	TransferID       string
	FromLocationID   string
	ToLocationID     string
	LinkedMovementID int64
}

// Ledger es el dueño exclusivo de StockLevel. Nunca abre su propia transacción para mutar:
// todas las escrituras usan los repositorios de la unidad atómica del llamador.
type Ledger struct {
	store   repository.Repos
	tx      ports.TxRunner
	trail   *audit.Trail
	log     *logger.Logger
	metrics ports.Metrics
	now     func() time.Time
}

// New construye el libro. store se usa para lecturas sin bloqueo; tx y trail para la conciliación.
func New(store repository.Repos, tx ports.TxRunner, trail *audit.Trail, log *logger.Logger, metrics ports.Metrics) *Ledger {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Ledger{store: store, tx: tx, trail: trail, log: log.Component("ledger"), metrics: metrics, now: time.Now}
}

// Lock adquiere el bloqueo exclusivo del grupo y carga sus niveles y reservas activas.
// Falla con domain.ErrInconsistentLedger si el grupo está suspendido.
func (l *Ledger) Lock(ctx context.Context, tx repository.Repos, key entity.GroupKey) (*Group, error) {
	levels, err := tx.Stock.LockGroup(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			l.metrics.ObserveLockTimeout("ledger.lock")
			l.log.Warn().Str("item_id", key.ItemID).Str("branch_id", key.BranchID).Msg("espera de bloqueo agotada")
		}
		return nil, err
	}
	hold, err := tx.Holds.GetActive(ctx, key)
	if err != nil {
		return nil, err
	}
	if hold != nil {
		return nil, &domain.InconsistentLedgerError{ItemID: key.ItemID, BranchID: key.BranchID}
	}
	reserved, err := tx.Reservations.SumActive(ctx, key)
	if err != nil {
		return nil, err
	}
	return newGroup(key, levels, reserved), nil
}

// LockAll bloquea los grupos en orden canónico ascendente (item, sucursal).
func (l *Ledger) LockAll(ctx context.Context, tx repository.Repos, keys []entity.GroupKey) (map[entity.GroupKey]*Group, error) {
	ordered := inventory.OrderGroups(keys)
	out := make(map[entity.GroupKey]*Group, len(ordered))
	for _, k := range ordered {
		g, err := l.Lock(ctx, tx, k)
		if err != nil {
			return nil, err
		}
		out[k] = g
	}
	return out, nil
}

// Reserve crea una retención lógica; no escribe movimiento ni cambia lo registrado.
func (l *Ledger) Reserve(ctx context.Context, tx repository.Repos, g *Group, qty int64, transferID string) (*entity.Reservation, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if qty > g.Available() {
		return nil, &domain.InsufficientStockError{
			ItemID: g.key.ItemID, BranchID: g.key.BranchID, Requested: qty, Available: g.Available(),
		}
	}
	r := &entity.Reservation{
		ItemID:     g.key.ItemID,
		BranchID:   g.key.BranchID,
		Quantity:   qty,
		TransferID: transferID,
		CreatedAt:  l.now().UTC(),
	}
	if err := tx.Reservations.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	g.reserved += qty
	return r, nil
}

// Release libera una reserva activa del grupo. Una reserva solo se libera una vez.
func (l *Ledger) Release(ctx context.Context, tx repository.Repos, g *Group, r *entity.Reservation) error {
	if r == nil || !r.Active() {
		return fmt.Errorf("%w: la reserva ya fue liberada", domain.ErrInvalidTransition)
	}
	if r.ItemID != g.key.ItemID || r.BranchID != g.key.BranchID {
		return fmt.Errorf("%w: la reserva %d no pertenece al grupo bloqueado", domain.ErrInvalidInput, r.ID)
	}
	at := l.now().UTC()
	if err := tx.Reservations.Release(ctx, r.ID, at); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("%w: la reserva %d ya fue liberada", domain.ErrInvalidTransition, r.ID)
		}
		return fmt.Errorf("release reservation: %w", err)
	}
	r.ReleasedAt = &at
	g.reserved -= r.Quantity
	return nil
}

// CommitDecrement descuenta qty de una clave. Nunca deja la clave en negativo.
func (l *Ledger) CommitDecrement(ctx context.Context, tx repository.Repos, g *Group, location string, qty int64, in MovementInput) (*entity.StockMovement, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if cur := g.Read(location); cur-qty < 0 {
		return nil, &domain.InsufficientStockError{
			ItemID: g.key.ItemID, BranchID: g.key.BranchID, LocationID: location, Requested: qty, Available: cur,
		}
	}
	return l.apply(ctx, tx, g, location, -qty, in)
}

// Increment suma qty a una clave; sin límite superior.
func (l *Ledger) Increment(ctx context.Context, tx repository.Repos, g *Group, location string, qty int64, in MovementInput) (*entity.StockMovement, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return l.apply(ctx, tx, g, location, qty, in)
}

// Drain descuenta qty a nivel de sucursal: primero el cubo sin ubicación y luego las ubicaciones
// en orden ascendente. Escribe un movimiento por clave tocada.
func (l *Ledger) Drain(ctx context.Context, tx repository.Repos, g *Group, qty int64, in MovementInput) ([]*entity.StockMovement, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if rec := g.Recorded(); rec < qty {
		return nil, &domain.InsufficientStockError{
			ItemID: g.key.ItemID, BranchID: g.key.BranchID, Requested: qty, Available: rec,
		}
	}
	remaining := qty
	var out []*entity.StockMovement
	for _, loc := range g.Locations() {
		take := min(remaining, g.Read(loc))
		if take <= 0 {
			continue
		}
		m, err := l.apply(ctx, tx, g, loc, -take, in)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
		remaining -= take
		if remaining == 0 {
			break
		}
	}
	return out, nil
}

// apply actualiza el nivel y anexa su movimiento; ambos en la misma unidad atómica.
func (l *Ledger) apply(ctx context.Context, tx repository.Repos, g *Group, location string, delta int64, in MovementInput) (*entity.StockMovement, error) {
	now := l.now().UTC()
	level, ok := g.levels[location]
	if !ok {
		level = &entity.StockLevel{Key: entity.StockKey{ItemID: g.key.ItemID, BranchID: g.key.BranchID, LocationID: location}}
		g.levels[location] = level
	}
	next := level.Quantity + delta
	if next < 0 {
		return nil, &domain.InsufficientStockError{
			ItemID: g.key.ItemID, BranchID: g.key.BranchID, LocationID: location, Requested: -delta, Available: level.Quantity,
		}
	}
	level.Quantity = next
	level.UpdatedAt = now
	if err := tx.Stock.Save(ctx, level); err != nil {
		return nil, fmt.Errorf("save stock level: %w", err)
	}

	m := &entity.StockMovement{
		ItemID:           g.key.ItemID,
		BranchID:         g.key.BranchID,
		LocationID:       location,
		FromLocationID:   in.FromLocationID,
		ToLocationID:     in.ToLocationID,
		Delta:            delta,
		Kind:             in.Kind,
		Reason:           in.Reason,
		ActorID:          in.ActorID,
		SaleID:           in.SaleID,
		TransferID:       in.TransferID,
		LinkedMovementID: in.LinkedMovementID,
		CreatedAt:        now,
	}
	if delta < 0 && m.FromLocationID == "" {
		m.FromLocationID = location
	}
	if delta > 0 && m.ToLocationID == "" {
		m.ToLocationID = location
	}
	if err := tx.Movements.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("append stock movement: %w", err)
	}
	return m, nil
}
