package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/inventory"
)

func TestReplay_SumaPorUbicacion(t *testing.T) {
	movs := []*entity.StockMovement{
		{LocationID: "", Delta: 10},
		{LocationID: "", Delta: -3},
		{LocationID: "A-01", Delta: 4},
		{LocationID: "", Delta: 3},
	}
	got := inventory.Replay(movs)
	assert.Equal(t, int64(10), got[""])
	assert.Equal(t, int64(4), got["A-01"])
}

func TestCompare_DetectaDiferencias(t *testing.T) {
	levels := []*entity.StockLevel{
		{Key: entity.StockKey{LocationID: ""}, Quantity: 10},
		{Key: entity.StockKey{LocationID: "A-01"}, Quantity: 2},
	}
	replayed := map[string]int64{"": 10, "A-01": 4, "B-02": 1}

	got := inventory.Compare(levels, replayed)
	assert.Equal(t, []inventory.Mismatch{
		{LocationID: "A-01", Recorded: 2, Replayed: 4},
		{LocationID: "B-02", Recorded: 0, Replayed: 1},
	}, got)

	assert.Empty(t, inventory.Compare(levels, map[string]int64{"": 10, "A-01": 2}))
}

func TestOrderGroups_OrdenCanonico(t *testing.T) {
	in := []entity.GroupKey{
		{ItemID: "b", BranchID: "1"},
		{ItemID: "a", BranchID: "2"},
		{ItemID: "a", BranchID: "1"},
		{ItemID: "b", BranchID: "1"},
	}
	assert.Equal(t, []entity.GroupKey{
		{ItemID: "a", BranchID: "1"},
		{ItemID: "a", BranchID: "2"},
		{ItemID: "b", BranchID: "1"},
	}, inventory.OrderGroups(in))
}

func TestWeightedAverageCost(t *testing.T) {
	got := inventory.WeightedAverageCost(10, decimal.NewFromInt(100), 10, decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(150)), "got %s", got)

	// Sin existencias previas el costo es el recibido.
	got = inventory.WeightedAverageCost(0, decimal.NewFromInt(100), 5, decimal.NewFromInt(80))
	assert.True(t, got.Equal(decimal.NewFromInt(80)), "got %s", got)

	got = inventory.WeightedAverageCost(0, decimal.NewFromInt(100), 0, decimal.NewFromInt(80))
	assert.True(t, got.Equal(decimal.NewFromInt(100)))
}
