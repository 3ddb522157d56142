package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func entry(wh, item string, delta int64) entity.LedgerEntry {
	return entity.LedgerEntry{WarehouseID: wh, ItemID: item, DeltaQty: delta}
}

func TestReplayer_SinDiscrepancias(t *testing.T) {
	r := inventory.NewReplayer()
	r.Add(entry("W1", "A", 10))
	r.Add(entry("W1", "A", -3))
	r.Add(entry("W1", "B", 5))

	rows := []*entity.StockRow{
		{WarehouseID: "W1", ItemID: "A", Quantity: 7},
		{WarehouseID: "W1", ItemID: "B", Quantity: 5},
	}
	assert.Empty(t, r.Diff(rows))
	assert.Equal(t, 3, r.Entries())
	assert.Equal(t, int64(7), r.Quantity(entity.StockKey{WarehouseID: "W1", ItemID: "A"}))
}

func TestReplayer_DetectaFilaDesalineada(t *testing.T) {
	r := inventory.NewReplayer()
	r.Add(entry("W1", "A", 10))
	r.Add(entry("W2", "C", 4))

	rows := []*entity.StockRow{
		{WarehouseID: "W1", ItemID: "A", Quantity: 9},
		{WarehouseID: "W1", ItemID: "Z", Quantity: 0},
	}
	diffs := r.Diff(rows)
	require.Len(t, diffs, 2)
	assert.Equal(t, inventory.Discrepancy{Key: entity.StockKey{WarehouseID: "W1", ItemID: "A"}, Stored: 9, Replayed: 10}, diffs[0])
	// W2/C tiene movimientos pero no fila
	assert.Equal(t, inventory.Discrepancy{Key: entity.StockKey{WarehouseID: "W2", ItemID: "C"}, Stored: 0, Replayed: 4}, diffs[1])
}

func TestSuggestedOrderQty(t *testing.T) {
	ideal, qty := inventory.SuggestedOrderQty(2, 5)
	assert.Equal(t, int64(8), ideal) // ceil(7.5)
	assert.Equal(t, int64(6), qty)

	_, qty = inventory.SuggestedOrderQty(20, 5)
	assert.Equal(t, int64(0), qty, "con exceso de stock no se sugiere pedido")
}
