package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

func TestReconciliation_SuspendeSoloLoInconsistente(t *testing.T) {
	e := newEnv(t, item("i-1", "SKU-1", 0, 10), item("i-2", "SKU-2", 0, 10), item("i-3", "SKU-3", 0, 10))
	ctx := context.Background()
	for _, in := range []dto.AdjustmentRequest{
		{ItemID: "i-1", BranchID: branch1, Delta: 5, Reason: "conteo"},
		{ItemID: "i-2", BranchID: branch1, Delta: 7, Reason: "conteo"},
		{ItemID: "i-3", BranchID: branch2, Delta: 2, Reason: "conteo"},
	} {
		_, err := e.adjust.Adjust(ctx, admin, in)
		require.NoError(t, err)
	}
	require.NoError(t, e.store.Repos().Stock.Save(ctx, &entity.StockLevel{
		Key: entity.StockKey{ItemID: "i-2", BranchID: branch1}, Quantity: 9,
	}))

	uc := inventory.NewReconciliationUseCase(e.ledger, access.DefaultPolicy(), logger.Nop())

	summary, err := uc.Run(ctx, manager, branch1, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Groups)
	require.Len(t, summary.Inconsistent, 1)
	assert.Equal(t, "i-2", summary.Inconsistent[0].ItemID)
	assert.Equal(t, []dto.MismatchDTO{{LocationID: "", Recorded: 9, Replayed: 7}}, summary.Inconsistent[0].Mismatches)
	require.Len(t, summary.Holds, 1)
	assert.Empty(t, summary.Failed)

	// Segunda pasada: sigue suspendido, sin duplicar la suspensión.
	summary, err = uc.Run(ctx, admin, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Groups)
	assert.Len(t, summary.Inconsistent, 1)
	assert.Len(t, summary.Holds, 1)

	freezes, err := e.store.Repos().Audit.List(ctx, entity.AuditFilter{Action: entity.ActionLedgerFreeze})
	require.NoError(t, err)
	assert.Len(t, freezes, 1)

	// Los demás grupos siguen aceptando escrituras.
	_, err = e.adjust.Adjust(ctx, manager, dto.AdjustmentRequest{ItemID: "i-1", BranchID: branch1, Delta: 1, Reason: "conteo"})
	require.NoError(t, err)
	_, err = e.adjust.Adjust(ctx, manager, dto.AdjustmentRequest{ItemID: "i-2", BranchID: branch1, Delta: 1, Reason: "conteo"})
	assert.ErrorIs(t, err, domain.ErrInconsistentLedger)
}

func TestReconciliation_Alcance(t *testing.T) {
	e := newEnv(t)
	uc := inventory.NewReconciliationUseCase(e.ledger, access.DefaultPolicy(), logger.Nop())
	ctx := context.Background()

	_, err := uc.Run(ctx, manager, "", 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cashier := entity.Actor{ID: "u-c", Username: "caja", Role: entity.RoleCashier, HomeBranchID: branch2}
	_, err = uc.Run(ctx, cashier, branch1, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	summary, err := uc.Run(ctx, manager, branch2, 0)
	require.NoError(t, err)
	assert.Zero(t, summary.Groups)
}
