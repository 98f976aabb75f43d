package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/ledger"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

// ReconciliationUseCase verifica en bloque los grupos de una sucursal contra sus movimientos.
type ReconciliationUseCase struct {
	ledger *ledger.Ledger
	policy access.Policy
	log    *logger.Logger
}

// NewReconciliationUseCase construye el caso de uso.
func NewReconciliationUseCase(ldg *ledger.Ledger, policy access.Policy, log *logger.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{ledger: ldg, policy: policy, log: log.Component("reconcile")}
}

// Run ejecuta Verify sobre cada grupo con hasta workers verificaciones en paralelo.
// branchID vacío recorre todas las sucursales y exige un administrador.
// Un grupo inconsistente no detiene el recorrido; queda suspendido y se informa en el resumen.
func (uc *ReconciliationUseCase) Run(ctx context.Context, actor entity.Actor, branchID string, workers int) (*dto.ReconcileSummary, error) {
	if branchID == "" {
		if actor.Role != entity.RoleAdmin {
			return nil, fmt.Errorf("%w: conciliar todas las sucursales requiere administrador", domain.ErrForbidden)
		}
	} else if err := access.Require(uc.policy, actor, branchID, access.ReadOnly); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	groups, err := uc.ledger.Groups(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list stock groups: %w", err)
	}
	summary := &dto.ReconcileSummary{BranchID: branchID, Groups: len(groups)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, key := range groups {
		g.Go(func() error {
			report, err := uc.ledger.Verify(gctx, key.ItemID, key.BranchID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrInconsistentLedger) && report != nil:
				summary.Inconsistent = append(summary.Inconsistent, *report)
			case errors.Is(err, domain.ErrLockTimeout):
				// grupo ocupado: se reintenta en la próxima pasada
				summary.Failed = append(summary.Failed, key.ItemID+"|"+key.BranchID)
			default:
				return fmt.Errorf("verify %s@%s: %w", key.ItemID, key.BranchID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	holds, err := uc.ledger.Holds(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list ledger holds: %w", err)
	}
	for _, h := range holds {
		summary.Holds = append(summary.Holds, dto.HoldDTO{
			ItemID: h.ItemID, BranchID: h.BranchID, Reason: h.Reason, DetectedAt: h.DetectedAt,
		})
	}
	sort.Slice(summary.Inconsistent, func(i, j int) bool {
		a, b := summary.Inconsistent[i], summary.Inconsistent[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.BranchID < b.BranchID
	})
	sort.Strings(summary.Failed)

	uc.log.Info().
		Str("branch_id", branchID).
		Int("groups", summary.Groups).
		Int("inconsistent", len(summary.Inconsistent)).
		Int("holds", len(summary.Holds)).
		Msg("conciliación terminada")
	return summary, nil
}
