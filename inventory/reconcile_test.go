package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/sigap/inventory-engine/inventory"
	"github.com/sigap/inventory-engine/inventory/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReplayIdentity_CleanWhenLogAndLedgerAgree(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	seedLog(t, s,
		logEntry(inventory.KindAddition, "Gudang ATK", "Gudang", date(time.January, 1), paper(100)),
		withdrawalBy("Budi Santoso", "Keuangan", "Gudang ATK", date(time.February, 5), paper(30)),
	)
	require.NoError(t, s.PutStockItem(ctx, inventory.StockItem{
		ID: "k1", ItemType: "Kertas A4", Brand: "Sinar Dunia", Warehouse: "Gudang ATK",
		Quantity: 70, UnitPrice: inventory.IDR(52000),
	}))

	divergences, err := inventory.CheckReplayIdentity(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, divergences)
}

func TestCheckReplayIdentity_FlagsSeededStockWithoutLog(t *testing.T) {
	// GIVEN: An item placed directly in the ledger with no log history
	// THEN: The check flags it with a positive delta (untracked quantity)
	//       instead of silently patching either side

	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.PutStockItem(ctx, inventory.StockItem{
		ID: "seed", ItemType: "Stapler", Brand: "Kenko", Warehouse: "Gudang ATK",
		Quantity: 12, UnitPrice: inventory.IDR(25000),
	}))

	divergences, err := inventory.CheckReplayIdentity(ctx, s)
	require.NoError(t, err)
	require.Len(t, divergences, 1)

	assert.Equal(t, 0, divergences[0].Replayed)
	assert.Equal(t, 12, divergences[0].Live)
	assert.Equal(t, 12, divergences[0].Delta())
}

func TestCheckReplayIdentity_FlagsDriftedQuantity(t *testing.T) {
	// GIVEN: A log replaying to 100 but a live quantity of 90
	// THEN: One divergence with delta -10

	s := store.NewMemory()
	ctx := context.Background()

	seedLog(t, s,
		logEntry(inventory.KindAddition, "Gudang ATK", "Gudang", date(time.January, 1), paper(100)),
	)
	require.NoError(t, s.PutStockItem(ctx, inventory.StockItem{
		ID: "k1", ItemType: "Kertas A4", Brand: "Sinar Dunia", Warehouse: "Gudang ATK",
		Quantity: 90, UnitPrice: inventory.IDR(52000),
	}))

	divergences, err := inventory.CheckReplayIdentity(ctx, s)
	require.NoError(t, err)
	require.Len(t, divergences, 1)
	assert.Equal(t, 100, divergences[0].Replayed)
	assert.Equal(t, 90, divergences[0].Live)
	assert.Equal(t, -10, divergences[0].Delta())
}

func TestCheckReplayIdentity_MatchesKeysCaseInsensitively(t *testing.T) {
	// A log entry in "gudang atk" and a ledger row in "Gudang ATK" are the
	// same key; no divergence when quantities agree.

	s := store.NewMemory()
	ctx := context.Background()

	seedLog(t, s,
		logEntry(inventory.KindAddition, "gudang atk", "Gudang", date(time.January, 1), paper(50)),
	)
	require.NoError(t, s.PutStockItem(ctx, inventory.StockItem{
		ID: "k1", ItemType: "KERTAS A4", Brand: "sinar dunia", Warehouse: "Gudang ATK",
		Quantity: 50, UnitPrice: inventory.IDR(52000),
	}))

	divergences, err := inventory.CheckReplayIdentity(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, divergences)
}
