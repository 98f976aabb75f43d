package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

// Verify reconstruye el grupo desde sus movimientos y lo compara con lo registrado.
// Ante una diferencia suspende las escrituras del grupo, registra ledger.freeze y devuelve
// *domain.InconsistentLedgerError junto con el reporte. Nunca corrige los niveles.
func (l *Ledger) Verify(ctx context.Context, itemID, branchID string) (*dto.ReconcileReport, error) {
	key := entity.GroupKey{ItemID: itemID, BranchID: branchID}
	var (
		report     *dto.ReconcileReport
		mismatches []inventory.Mismatch
		frozen     bool
	)
	err := l.tx.Run(ctx, func(tx repository.Repos) error {
		levels, err := tx.Stock.LockGroup(ctx, key)
		if err != nil {
			return err
		}
		movs, err := tx.Movements.ListByGroup(ctx, key, time.Time{})
		if err != nil {
			return err
		}
		mismatches = inventory.Compare(levels, inventory.Replay(movs))
		report = newReport(key, mismatches, len(movs), l.now().UTC())
		if len(mismatches) == 0 {
			return nil
		}

		hold, err := tx.Holds.GetActive(ctx, key)
		if err != nil {
			return err
		}
		if hold != nil {
			return nil
		}
		reason := fmt.Sprintf("replay mismatch en %d ubicación(es)", len(mismatches))
		if err := tx.Holds.Create(ctx, &entity.LedgerHold{
			ItemID: itemID, BranchID: branchID, Reason: reason, DetectedAt: l.now().UTC(),
		}); err != nil {
			return fmt.Errorf("create ledger hold: %w", err)
		}
		frozen = true
		_, err = l.trail.Record(ctx, tx.Audit, audit.Entry{
			BranchID:   branchID,
			Action:     entity.ActionLedgerFreeze,
			ObjectType: "stock_group",
			ObjectID:   itemID + "|" + branchID,
			Reason:     reason,
			Before:     map[string]any{"stock": levelSnapshot(levels)},
			After:      map[string]any{"replayed": report.Mismatches, "frozen": true},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if report.Consistent {
		return report, nil
	}

	first := mismatches[0]
	if frozen {
		l.metrics.ObserveLedgerHold()
		l.log.Error().
			Str("item_id", itemID).Str("branch_id", branchID).Str("location_id", first.LocationID).
			Int64("recorded", first.Recorded).Int64("replayed", first.Replayed).
			Msg("libro inconsistente: escrituras suspendidas")
	}
	return report, &domain.InconsistentLedgerError{
		ItemID: itemID, BranchID: branchID, LocationID: first.LocationID,
		Recorded: first.Recorded, Replayed: first.Replayed,
	}
}

// ClearHold levanta la suspensión de un grupo tras la conciliación manual. Solo administradores.
// Con rebuild los niveles se reescriben desde la reconstrucción; sin él, el grupo debe cuadrar ya.
func (l *Ledger) ClearHold(ctx context.Context, actor entity.Actor, itemID, branchID, reason string, rebuild bool) error {
	reason, err := audit.NormalizeReason(reason)
	if err != nil {
		return err
	}
	if actor.Role != entity.RoleAdmin {
		return fmt.Errorf("%w: solo un administrador concilia el libro", domain.ErrForbidden)
	}
	if err := access.Require(l.trail.Policy(), actor, branchID, access.ReadWrite); err != nil {
		return err
	}

	key := entity.GroupKey{ItemID: itemID, BranchID: branchID}
	return l.tx.Run(ctx, func(tx repository.Repos) error {
		levels, err := tx.Stock.LockGroup(ctx, key)
		if err != nil {
			return err
		}
		hold, err := tx.Holds.GetActive(ctx, key)
		if err != nil {
			return err
		}
		if hold == nil {
			return fmt.Errorf("%w: el grupo %s@%s no está suspendido", domain.ErrNotFound, itemID, branchID)
		}
		movs, err := tx.Movements.ListByGroup(ctx, key, time.Time{})
		if err != nil {
			return err
		}
		replayed := inventory.Replay(movs)
		before := levelSnapshot(levels)
		mismatches := inventory.Compare(levels, replayed)
		if len(mismatches) > 0 && !rebuild {
			m := mismatches[0]
			return &domain.InconsistentLedgerError{
				ItemID: itemID, BranchID: branchID, LocationID: m.LocationID, Recorded: m.Recorded, Replayed: m.Replayed,
			}
		}
		after := before
		if len(mismatches) > 0 {
			after = make(map[string]int64, len(before))
			for k, v := range before {
				after[k] = v
			}
			for _, m := range mismatches {
				if m.Replayed < 0 {
					return &domain.InconsistentLedgerError{
						ItemID: itemID, BranchID: branchID, LocationID: m.LocationID, Recorded: m.Recorded, Replayed: m.Replayed,
					}
				}
				lv := &entity.StockLevel{
					Key:       entity.StockKey{ItemID: itemID, BranchID: branchID, LocationID: m.LocationID},
					Quantity:  m.Replayed,
					UpdatedAt: l.now().UTC(),
				}
				if err := tx.Stock.Save(ctx, lv); err != nil {
					return fmt.Errorf("rebuild stock level: %w", err)
				}
				after[lv.Key.String()] = m.Replayed
			}
		}
		if err := tx.Holds.Clear(ctx, key, actor.ID, reason, l.now().UTC()); err != nil {
			return err
		}
		_, err = l.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   branchID,
			Action:     entity.ActionLedgerUnfreeze,
			ObjectType: "stock_group",
			ObjectID:   itemID + "|" + branchID,
			Reason:     reason,
			Before:     map[string]any{"stock": before, "frozen": true},
			After:      map[string]any{"stock": after, "frozen": false, "rebuilt": len(mismatches) > 0},
		})
		return err
	})
}

// Holds lista los grupos suspendidos de una sucursal (vacío = todas).
func (l *Ledger) Holds(ctx context.Context, branchID string) ([]*entity.LedgerHold, error) {
	return l.store.Holds.ListActive(ctx, branchID)
}

// Groups lista los grupos con stock registrado; lo usa la conciliación masiva.
func (l *Ledger) Groups(ctx context.Context, branchID string) ([]entity.GroupKey, error) {
	return l.store.Stock.ListGroups(ctx, branchID)
}

func newReport(key entity.GroupKey, mismatches []inventory.Mismatch, movements int, at time.Time) *dto.ReconcileReport {
	r := &dto.ReconcileReport{
		ItemID:     key.ItemID,
		BranchID:   key.BranchID,
		Consistent: len(mismatches) == 0,
		Movements:  movements,
		CheckedAt:  at,
	}
	for _, m := range mismatches {
		r.Mismatches = append(r.Mismatches, dto.MismatchDTO{LocationID: m.LocationID, Recorded: m.Recorded, Replayed: m.Replayed})
	}
	return r
}

func levelSnapshot(levels []*entity.StockLevel) map[string]int64 {
	out := make(map[string]int64, len(levels))
	for _, lv := range levels {
		out[lv.Key.String()] = lv.Quantity
	}
	return out
}
