package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/ledger"
	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

// AdjustmentUseCase registra entradas, bajas y reubicaciones manuales de stock.
// Cada operación bloquea su grupo, escribe movimientos y auditoría en la misma unidad atómica.
type AdjustmentUseCase struct {
	txRunner ports.TxRunner
	store    repository.Repos
	ledger   *ledger.Ledger
	trail    *audit.Trail
	policy   access.Policy
	log      *logger.Logger
	metrics  ports.Metrics
}

// NewAdjustmentUseCase construye el caso de uso.
func NewAdjustmentUseCase(
	txRunner ports.TxRunner,
	store repository.Repos,
	ldg *ledger.Ledger,
	trail *audit.Trail,
	policy access.Policy,
	log *logger.Logger,
	metrics ports.Metrics,
) *AdjustmentUseCase {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &AdjustmentUseCase{
		txRunner: txRunner,
		store:    store,
		ledger:   ldg,
		trail:    trail,
		policy:   policy,
		log:      log.Component("inventory"),
		metrics:  metrics,
	}
}

// Adjust aplica delta en una clave. Positivo suma (y con UnitCost recalcula el costo promedio del item);
// negativo descuenta sin tocar lo reservado por traslados.
func (uc *AdjustmentUseCase) Adjust(ctx context.Context, actor entity.Actor, in dto.AdjustmentRequest) (mov *entity.StockMovement, err error) {
	defer func() { uc.metrics.ObserveAdjustment(domain.Code(err)) }()

	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	reason, err := audit.NormalizeReason(in.Reason)
	if err != nil {
		return nil, err
	}
	if in.UnitCost != nil && (in.Delta < 0 || in.UnitCost.IsNegative()) {
		return nil, fmt.Errorf("%w: el costo unitario solo aplica a entradas y no puede ser negativo", domain.ErrInvalidInput)
	}
	if err := access.Require(uc.policy, actor, in.BranchID, access.ReadWrite); err != nil {
		return nil, err
	}
	item, err := uc.store.Items.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, in.ItemID)
	}
	if err := ledger.CheckLocations(ctx, uc.store.Locations, in.BranchID, in.LocationID); err != nil {
		return nil, err
	}

	key := entity.GroupKey{ItemID: in.ItemID, BranchID: in.BranchID}
	err = uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		g, err := uc.ledger.Lock(ctx, tx, key)
		if err != nil {
			return err
		}
		before := ledger.Snapshot(g)
		onHand := g.Recorded()
		mv := ledger.MovementInput{Kind: entity.MovementKindAdjustment, Reason: reason, ActorID: actor.ID}

		if in.Delta > 0 {
			mov, err = uc.ledger.Increment(ctx, tx, g, in.LocationID, in.Delta, mv)
		} else {
			qty := -in.Delta
			if qty > g.Available() {
				return &domain.InsufficientStockError{
					ItemID: in.ItemID, BranchID: in.BranchID, LocationID: in.LocationID, Requested: qty, Available: g.Available(),
				}
			}
			mov, err = uc.ledger.CommitDecrement(ctx, tx, g, in.LocationID, qty, mv)
		}
		if err != nil {
			return err
		}

		after := map[string]any{"stock": ledger.Snapshot(g), "delta": in.Delta}
		if in.UnitCost != nil {
			// El costo promedio es del item; se pondera con lo registrado en esta sucursal.
			cur, err := tx.Items.GetByID(ctx, in.ItemID)
			if err != nil {
				return err
			}
			newCost := inventory.WeightedAverageCost(onHand, cur.UnitCost, in.Delta, *in.UnitCost)
			after["unit_cost_before"] = cur.UnitCost.String()
			after["unit_cost"] = newCost.String()
			cur.UnitCost = newCost
			cur.UpdatedAt = mov.CreatedAt
			if err := tx.Items.Update(ctx, cur); err != nil {
				return fmt.Errorf("update item cost: %w", err)
			}
		}
		_, err = uc.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   in.BranchID,
			Action:     entity.ActionStockAdjustment,
			ObjectType: "stock_movement",
			ObjectID:   fmt.Sprint(mov.ID),
			Reason:     reason,
			Before:     map[string]any{"stock": before},
			After:      after,
		})
		return err
	})
	if err != nil {
		uc.log.Debug().Err(err).Str("item_id", in.ItemID).Str("branch_id", in.BranchID).Int64("delta", in.Delta).Msg("ajuste rechazado")
		return nil, err
	}
	return mov, nil
}

// Relocate mueve unidades entre dos ubicaciones de la misma sucursal. El total de la sucursal no cambia;
// el movimiento de entrada queda enlazado al de salida.
func (uc *AdjustmentUseCase) Relocate(ctx context.Context, actor entity.Actor, in dto.RelocationRequest) ([]*entity.StockMovement, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	reason, err := audit.NormalizeReason(in.Reason)
	if err != nil {
		return nil, err
	}
	if err := access.Require(uc.policy, actor, in.BranchID, access.ReadWrite); err != nil {
		return nil, err
	}
	if err := ledger.CheckLocations(ctx, uc.store.Locations, in.BranchID, in.FromLocationID, in.ToLocationID); err != nil {
		return nil, err
	}

	var out []*entity.StockMovement
	key := entity.GroupKey{ItemID: in.ItemID, BranchID: in.BranchID}
	err = uc.txRunner.Run(ctx, func(tx repository.Repos) error {
		g, err := uc.ledger.Lock(ctx, tx, key)
		if err != nil {
			return err
		}
		before := ledger.Snapshot(g)
		mv := ledger.MovementInput{
			Kind:           entity.MovementKindRelocation,
			Reason:         reason,
			ActorID:        actor.ID,
			FromLocationID: in.FromLocationID,
			ToLocationID:   in.ToLocationID,
		}
		outMov, err := uc.ledger.CommitDecrement(ctx, tx, g, in.FromLocationID, in.Quantity, mv)
		if err != nil {
			return err
		}
		mv.LinkedMovementID = outMov.ID
		inMov, err := uc.ledger.Increment(ctx, tx, g, in.ToLocationID, in.Quantity, mv)
		if err != nil {
			return err
		}
		out = []*entity.StockMovement{outMov, inMov}
		_, err = uc.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   in.BranchID,
			Action:     entity.ActionStockRelocation,
			ObjectType: "stock_movement",
			ObjectID:   fmt.Sprint(outMov.ID),
			Reason:     reason,
			Before:     map[string]any{"stock": before},
			After:      map[string]any{"stock": ledger.Snapshot(g), "quantity": in.Quantity},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StockView niveles y disponible de un grupo, para consulta.
type StockView struct {
	ItemID    string
	BranchID  string
	Levels    []*entity.StockLevel
	Recorded  int64
	Reserved  int64
	Available int64
}

// Stock consulta el grupo sin bloqueo.
func (uc *AdjustmentUseCase) Stock(ctx context.Context, actor entity.Actor, itemID, branchID string) (*StockView, error) {
	if err := access.Require(uc.policy, actor, branchID, access.ReadOnly); err != nil {
		return nil, err
	}
	levels, err := uc.ledger.Levels(ctx, itemID, branchID)
	if err != nil {
		return nil, err
	}
	v := &StockView{ItemID: itemID, BranchID: branchID, Levels: levels}
	for _, l := range levels {
		v.Recorded += l.Quantity
	}
	available, err := uc.ledger.AvailableQuantity(ctx, itemID, branchID)
	if err != nil {
		return nil, err
	}
	v.Available = available
	v.Reserved = v.Recorded - available
	return v, nil
}

func costOf(qty int64, unit decimal.Decimal) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return unit.Mul(decimal.NewFromInt(qty))
}
