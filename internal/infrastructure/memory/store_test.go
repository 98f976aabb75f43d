package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/memory"
)

var group = entity.GroupKey{ItemID: "item-a", BranchID: "b-1"}

func TestRun_RevierteSiFnFalla(t *testing.T) {
	s := memory.New(time.Second)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(tx repository.Repos) error {
		if _, err := tx.Stock.LockGroup(ctx, group); err != nil {
			return err
		}
		require.NoError(t, tx.Stock.Save(ctx, &entity.StockLevel{Key: entity.StockKey{ItemID: "item-a", BranchID: "b-1"}, Quantity: 5}))
		require.NoError(t, tx.Movements.Append(ctx, &entity.StockMovement{ItemID: "item-a", BranchID: "b-1", Delta: 5}))

		// Dentro de la unidad se ven las escrituras pendientes.
		levels, err := tx.Stock.ListByGroup(ctx, group)
		require.NoError(t, err)
		require.Len(t, levels, 1)
		assert.Equal(t, int64(5), levels[0].Quantity)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	levels, err := s.Repos().Stock.ListByGroup(ctx, group)
	require.NoError(t, err)
	assert.Empty(t, levels)
	movs, err := s.Repos().Movements.ListByGroup(ctx, group, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestLockGroup_CreaAnclaYEsReentrante(t *testing.T) {
	s := memory.New(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, func(tx repository.Repos) error {
		levels, err := tx.Stock.LockGroup(ctx, group)
		require.NoError(t, err)
		require.Len(t, levels, 1)
		assert.Equal(t, "", levels[0].Key.LocationID)
		assert.Equal(t, int64(0), levels[0].Quantity)

		_, err = tx.Stock.LockGroup(ctx, group)
		return err
	}))

	groups, err := s.Repos().Stock.ListGroups(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupKey{group}, groups)
}

func TestSaveDirecto_RespetaElBloqueoDelGrupo(t *testing.T) {
	s := memory.New(30 * time.Millisecond)
	ctx := context.Background()
	level := &entity.StockLevel{Key: entity.StockKey{ItemID: "item-a", BranchID: "b-1"}, Quantity: 9}

	held := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		finished <- s.Run(ctx, func(tx repository.Repos) error {
			if _, err := tx.Stock.LockGroup(ctx, group); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	assert.ErrorIs(t, s.Repos().Stock.Save(ctx, level), domain.ErrLockTimeout)
	close(done)
	require.NoError(t, <-finished)

	require.NoError(t, s.Repos().Stock.Save(ctx, level))
	levels, err := s.Repos().Stock.ListByGroup(ctx, group)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, int64(9), levels[0].Quantity)
}

func TestLockGroup_EsperaAcotada(t *testing.T) {
	s := memory.New(30 * time.Millisecond)
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		finished <- s.Run(ctx, func(tx repository.Repos) error {
			if _, err := tx.Stock.LockGroup(ctx, group); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	start := time.Now()
	err := s.Run(ctx, func(tx repository.Repos) error {
		_, err := tx.Stock.LockGroup(ctx, group)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Less(t, time.Since(start), time.Second)

	// Otro grupo no espera.
	other := entity.GroupKey{ItemID: "item-b", BranchID: "b-1"}
	require.NoError(t, s.Run(ctx, func(tx repository.Repos) error {
		_, err := tx.Stock.LockGroup(ctx, other)
		return err
	}))

	close(done)
	require.NoError(t, <-finished)
	require.NoError(t, s.Run(ctx, func(tx repository.Repos) error {
		_, err := tx.Stock.LockGroup(ctx, group)
		return err
	}))
}

func TestLockGroup_CancelacionDelContexto(t *testing.T) {
	s := memory.New(time.Minute)
	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(context.Background(), func(tx repository.Repos) error {
			_, _ = tx.Stock.LockGroup(context.Background(), group)
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, func(tx repository.Repos) error {
		_, err := tx.Stock.LockGroup(ctx, group)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSales_MarkRefundedUnaVez(t *testing.T) {
	s := memory.New(time.Second)
	ctx := context.Background()
	repos := s.Repos()
	sale := &entity.Sale{ID: "s-1", BranchID: "b-1", Lines: []entity.SaleLine{{LineNo: 1, ItemID: "item-a", Quantity: 2}}}
	require.NoError(t, repos.Sales.Create(ctx, sale))
	assert.ErrorIs(t, repos.Sales.Create(ctx, sale), domain.ErrDuplicate)

	require.NoError(t, repos.Sales.MarkRefunded(ctx, sale))
	assert.ErrorIs(t, repos.Sales.MarkRefunded(ctx, sale), domain.ErrAlreadyRefunded)

	got, err := repos.Sales.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, got.IsRefunded)
	got.Lines[0].Quantity = 99
	again, err := repos.Sales.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Lines[0].Quantity)
}

func TestAudit_ListaMasRecientePrimero(t *testing.T) {
	s := memory.New(time.Second)
	ctx := context.Background()
	repos := s.Repos()
	for _, a := range []string{entity.ActionSaleCreate, entity.ActionSaleRefund, entity.ActionSaleCreate} {
		require.NoError(t, repos.Audit.Append(ctx, &entity.AuditLog{BranchID: "b-1", Action: a, CreatedAt: time.Now()}))
	}
	logs, err := repos.Audit.List(ctx, entity.AuditFilter{Action: entity.ActionSaleCreate, Limit: 10})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Greater(t, logs[0].ID, logs[1].ID)
}
