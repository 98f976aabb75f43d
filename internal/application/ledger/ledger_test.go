package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/ledger"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

var (
	key   = entity.GroupKey{ItemID: "item-a", BranchID: "b-1"}
	admin = entity.Actor{ID: "u-admin", Username: "admin", Role: entity.RoleAdmin}
)

func newLedger(t *testing.T) (*memory.Store, *ledger.Ledger) {
	t.Helper()
	store := memory.New(time.Second)
	repos := store.Repos()
	trail := audit.NewTrail(repos.Audit, access.DefaultPolicy())
	return store, ledger.New(repos, store, trail, logger.Nop(), nil)
}

func mv(kind string) ledger.MovementInput {
	return ledger.MovementInput{Kind: kind, Reason: "prueba", ActorID: admin.ID}
}

func increment(t *testing.T, store *memory.Store, l *ledger.Ledger, loc string, qty int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Run(ctx, func(tx repository.Repos) error {
		g, err := l.Lock(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = l.Increment(ctx, tx, g, loc, qty, mv(entity.MovementKindAdjustment))
		return err
	}))
}

func TestCommitDecrement_NuncaQuedaNegativo(t *testing.T) {
	store, l := newLedger(t)
	increment(t, store, l, "", 3)
	ctx := context.Background()

	err := store.Run(ctx, func(tx repository.Repos) error {
		g, err := l.Lock(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = l.CommitDecrement(ctx, tx, g, "", 4, mv(entity.MovementKindSale))
		return err
	})
	var ins *domain.InsufficientStockError
	require.True(t, errors.As(err, &ins))
	assert.Equal(t, int64(4), ins.Requested)
	assert.Equal(t, int64(3), ins.Available)

	n, err := l.RecordedQuantity(ctx, key.ItemID, key.BranchID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestLedger_CantidadesInvalidas(t *testing.T) {
	store, l := newLedger(t)
	ctx := context.Background()
	err := store.Run(ctx, func(tx repository.Repos) error {
		g, err := l.Lock(ctx, tx, key)
		if err != nil {
			return err
		}
		_, e1 := l.Increment(ctx, tx, g, "", 0, mv(entity.MovementKindAdjustment))
		_, e2 := l.CommitDecrement(ctx, tx, g, "", -1, mv(entity.MovementKindSale))
		_, e3 := l.Reserve(ctx, tx, g, 0, "t-1")
		_, e4 := l.Drain(ctx, tx, g, 0, mv(entity.MovementKindSale))
		return errors.Join(e1, e2, e3, e4)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestReserve_ReduceDisponibleNoRegistrado(t *testing.T) {
	store, l := newLedger(t)
	increment(t, store, l, "", 10)
	ctx := context.Background()

	var r *entity.Reservation
	require.NoError(t, store.Run(ctx, func(tx repository.Repos) error {
		g, err := l.Lock(ctx, tx, key)
		if err != nil {
			return err
		}
		r, err = l.Reserve(ctx, tx, g, 4, "t-1")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(10), g.Recorded())
		assert.Equal(t, int64(6), g.Available())
		return nil
	}))

	avail, err := l.AvailableQuantity(ctx, key.ItemID, key.BranchID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), avail)
	movs, err := l.Movements(ctx, key.ItemID, key.BranchID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, movs, 1, "la reserva no es un movimiento")

	release := func() error {
		return store.Run(ctx, func(tx repository.Repos) error {
			g, err := l.Lock(ctx, tx, key)
			if err != nil {
				return err
			}
			cur, err := tx.Reservations.GetActiveByTransfer(ctx, "t-1")
			if err != nil {
				return err
			}
			if cur == nil {
				cur = r
			}
			return l.Release(ctx, tx, g, cur)
		})
	}
	require.NoError(t, release())
	assert.ErrorIs(t, release(), domain.ErrInvalidTransition)

	avail, err = l.AvailableQuantity(ctx, key.ItemID, key.BranchID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), avail)
}

func TestDrain_OrdenDeUbicaciones(t *testing.T) {
	store, l := newLedger(t)
	increment(t, store, l, "B-01", 2)
	increment(t, store, l, "", 1)
	increment(t, store, l, "A-01", 2)
	ctx := context.Background()

	var movs []*entity.StockMovement
	require.NoError(t, store.Run(ctx, func(tx repository.Repos) error {
		g, err := l.Lock(ctx, tx, key)
		if err != nil {
			return err
		}
		movs, err = l.Drain(ctx, tx, g, 4, mv(entity.MovementKindSale))
		return err
	}))
	require.Len(t, movs, 3)
	assert.Equal(t, []string{"", "A-01", "B-01"}, []string{movs[0].LocationID, movs[1].LocationID, movs[2].LocationID})
	assert.Equal(t, []int64{-1, -2, -1}, []int64{movs[0].Delta, movs[1].Delta, movs[2].Delta})
}

func TestReplay_CoincideConLoRegistrado(t *testing.T) {
	store, l := newLedger(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	locs := []string{"", "A-01", "B-01"}

	for range 200 {
		loc := locs[rng.Intn(len(locs))]
		qty := int64(rng.Intn(5) + 1)
		_ = store.Run(ctx, func(tx repository.Repos) error {
			g, err := l.Lock(ctx, tx, key)
			if err != nil {
				return err
			}
			if rng.Intn(2) == 0 {
				_, err = l.Increment(ctx, tx, g, loc, qty, mv(entity.MovementKindAdjustment))
			} else {
				_, err = l.CommitDecrement(ctx, tx, g, loc, qty, mv(entity.MovementKindSale))
			}
			return err
		})
	}

	levels, err := l.Levels(ctx, key.ItemID, key.BranchID)
	require.NoError(t, err)
	movs, err := l.Movements(ctx, key.ItemID, key.BranchID, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, inventory.Compare(levels, inventory.Replay(movs)))
	for _, lv := range levels {
		assert.GreaterOrEqual(t, lv.Quantity, int64(0))
	}

	report, err := l.Verify(ctx, key.ItemID, key.BranchID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, len(movs), report.Movements)
}

func TestVerify_SuspendeYConciliaConReconstruccion(t *testing.T) {
	store, l := newLedger(t)
	increment(t, store, l, "", 10)
	ctx := context.Background()

	// Corrupción directa del nivel, sin movimiento.
	require.NoError(t, store.Repos().Stock.Save(ctx, &entity.StockLevel{
		Key: entity.StockKey{ItemID: key.ItemID, BranchID: key.BranchID}, Quantity: 12,
	}))

	report, err := l.Verify(ctx, key.ItemID, key.BranchID)
	require.Error(t, err)
	var inc *domain.InconsistentLedgerError
	require.True(t, errors.As(err, &inc))
	assert.Equal(t, int64(12), inc.Recorded)
	assert.Equal(t, int64(10), inc.Replayed)
	require.NotNil(t, report)
	assert.False(t, report.Consistent)

	holds, err := l.Holds(ctx, "")
	require.NoError(t, err)
	require.Len(t, holds, 1)

	// Con el grupo suspendido toda escritura falla.
	err = store.Run(ctx, func(tx repository.Repos) error {
		_, err := l.Lock(ctx, tx, key)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInconsistentLedger)

	manager := entity.Actor{ID: "u-ger", Username: "gerente", Role: entity.RoleManager, HomeBranchID: key.BranchID}
	assert.ErrorIs(t, l.ClearHold(ctx, manager, key.ItemID, key.BranchID, "revisado", true), domain.ErrForbidden)
	assert.ErrorIs(t, l.ClearHold(ctx, admin, key.ItemID, key.BranchID, "revisado", false), domain.ErrInconsistentLedger)
	require.NoError(t, l.ClearHold(ctx, admin, key.ItemID, key.BranchID, "conteo físico confirma 10", true))

	n, err := l.RecordedQuantity(ctx, key.ItemID, key.BranchID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	holds, err = l.Holds(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, holds)

	logs, err := store.Repos().Audit.List(ctx, entity.AuditFilter{ObjectType: "stock_group"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, entity.ActionLedgerUnfreeze, logs[0].Action)
	assert.Equal(t, entity.ActionLedgerFreeze, logs[1].Action)
	assert.Equal(t, entity.SystemUsername, logs[1].ActorUsername)

	increment(t, store, l, "", 1)
}

func TestClearHold_SinSuspension(t *testing.T) {
	store, l := newLedger(t)
	increment(t, store, l, "", 1)
	err := l.ClearHold(context.Background(), admin, key.ItemID, key.BranchID, "nada", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
