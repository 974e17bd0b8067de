package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sigap/inventory-engine/inventory"
	"github.com/sigap/inventory-engine/inventory/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockItem(id, itemType, brand, warehouse string, qty int) inventory.StockItem {
	return inventory.StockItem{
		ID:        id,
		ItemType:  itemType,
		Brand:     brand,
		Warehouse: warehouse,
		Quantity:  qty,
		UnitPrice: inventory.IDR(3500),
	}
}

func addition(id, warehouse string, qty int) inventory.LogEntry {
	return inventory.LogEntry{
		ID:         inventory.EntryID(id),
		Actor:      inventory.Actor{Name: "Rina Hartati"},
		Department: inventory.WarehouseDepartment,
		Warehouse:  warehouse,
		Items:      []inventory.LineItem{{ItemType: "Pulpen", Brand: "Standard", Quantity: qty}},
		OccurredAt: time.Date(2025, time.January, 5, 9, 0, 0, 0, time.UTC),
		Kind:       inventory.KindAddition,
	}
}

// =============================================================================
// STOCK ITEMS
// =============================================================================

func TestMemory_GetStockItem_CaseInsensitive(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)))

	item, err := m.GetStockItem(ctx, inventory.ItemKey{
		ItemType: "  PULPEN ", Brand: "standard", Warehouse: "gudang atk",
	})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Pulpen", item.ItemType, "display form is preserved")
	assert.Equal(t, 50, item.Quantity)
}

func TestMemory_GetStockItem_AbsentIsNilNil(t *testing.T) {
	m := store.NewMemory()

	item, err := m.GetStockItem(context.Background(), inventory.ItemKey{
		ItemType: "Ghost", Brand: "None", Warehouse: "Gudang ATK",
	})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestMemory_PutStockItem_UpsertsOnNormalizedKey(t *testing.T) {
	// GIVEN: Two puts whose keys differ only in case
	// THEN: One row remains, carrying the latest quantity

	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)))
	require.NoError(t, m.PutStockItem(ctx, stockItem("s1", "pulpen", "STANDARD", "gudang atk", 75)))

	items, err := m.ListStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 75, items[0].Quantity)
}

func TestMemory_ListStockItems_InsertionOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)))
	require.NoError(t, m.PutStockItem(ctx, stockItem("s2", "Kertas A4", "Sinar Dunia", "Gudang ATK", 40)))
	require.NoError(t, m.PutStockItem(ctx, stockItem("s3", "Kabel LAN", "Belden", "Gudang Teknik", 200)))

	items, err := m.ListStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Pulpen", items[0].ItemType)
	assert.Equal(t, "Kertas A4", items[1].ItemType)
	assert.Equal(t, "Kabel LAN", items[2].ItemType)
}

func TestMemory_ListStockItemsByWarehouse(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)))
	require.NoError(t, m.PutStockItem(ctx, stockItem("s2", "Kabel LAN", "Belden", "Gudang Teknik", 200)))

	items, err := m.ListStockItemsByWarehouse(ctx, "GUDANG TEKNIK")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kabel LAN", items[0].ItemType)
}

func TestMemory_GetStockItem_ReturnsCopy(t *testing.T) {
	// Mutating the returned item must not leak back into the store.

	m := store.NewMemory()
	ctx := context.Background()
	k := inventory.ItemKey{ItemType: "Pulpen", Brand: "Standard", Warehouse: "Gudang ATK"}

	require.NoError(t, m.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)))

	item, err := m.GetStockItem(ctx, k)
	require.NoError(t, err)
	item.Quantity = 0

	again, err := m.GetStockItem(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, 50, again.Quantity)
}

// =============================================================================
// PROPOSALS
// =============================================================================

func TestMemory_Proposals_RoundTripAndStatusFilter(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	put := func(id string, status inventory.ProposalStatus) {
		require.NoError(t, m.PutProposal(ctx, inventory.Proposal{
			ID:          inventory.ProposalID(id),
			Actor:       inventory.Actor{Name: "Budi Santoso", NIP: "198701"},
			Department:  "Keuangan",
			Warehouse:   "Gudang ATK",
			Items:       []inventory.LineItem{{ItemType: "Pulpen", Brand: "Standard", Quantity: 5}},
			SubmittedAt: time.Date(2025, time.February, 2, 8, 0, 0, 0, time.UTC),
			Status:      status,
		}))
	}
	put("p1", inventory.ProposalPending)
	put("p2", inventory.ProposalApproved)
	put("p3", inventory.ProposalPending)

	got, err := m.GetProposal(ctx, "p2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inventory.ProposalApproved, got.Status)

	pending, err := m.ListProposals(ctx, inventory.ProposalPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, inventory.ProposalID("p1"), pending[0].ID)
	assert.Equal(t, inventory.ProposalID("p3"), pending[1].ID)

	all, err := m.ListProposals(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemory_GetProposal_AbsentIsNilNil(t *testing.T) {
	m := store.NewMemory()

	p, err := m.GetProposal(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemory_PutProposal_UpdateKeepsPosition(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	first := inventory.Proposal{ID: "p1", Actor: inventory.Actor{Name: "Budi Santoso"}, Status: inventory.ProposalPending}
	second := inventory.Proposal{ID: "p2", Actor: inventory.Actor{Name: "Dewi Lestari"}, Status: inventory.ProposalPending}
	require.NoError(t, m.PutProposal(ctx, first))
	require.NoError(t, m.PutProposal(ctx, second))

	first.Status = inventory.ProposalApproved
	require.NoError(t, m.PutProposal(ctx, first))

	all, err := m.ListProposals(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, inventory.ProposalID("p1"), all[0].ID)
	assert.Equal(t, inventory.ProposalApproved, all[0].Status)
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

func TestMemory_Entries_AppendOnlyInOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AppendEntry(ctx, addition("e1", "Gudang ATK", 10)))
	require.NoError(t, m.AppendEntries(ctx, []inventory.LogEntry{
		addition("e2", "Gudang Teknik", 20),
		addition("e3", "Gudang ATK", 30),
	}))

	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, inventory.EntryID("e1"), entries[0].ID)
	assert.Equal(t, inventory.EntryID("e2"), entries[1].ID)
	assert.Equal(t, inventory.EntryID("e3"), entries[2].ID)

	atk, err := m.EntriesByWarehouse(ctx, "gudang atk")
	require.NoError(t, err)
	require.Len(t, atk, 2)
	assert.Equal(t, inventory.EntryID("e1"), atk[0].ID)
	assert.Equal(t, inventory.EntryID("e3"), atk[1].ID)
}

func TestMemory_Reset_ClearsEverything(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)))
	require.NoError(t, m.PutProposal(ctx, inventory.Proposal{ID: "p1", Status: inventory.ProposalPending}))
	require.NoError(t, m.AppendEntry(ctx, addition("e1", "Gudang ATK", 10)))

	require.NoError(t, m.Reset(ctx))

	items, err := m.ListStockItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	proposals, err := m.ListProposals(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, proposals)

	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTxMemory_WithTx_CommitsOnSuccess(t *testing.T) {
	tm := store.NewTxMemory()
	ctx := context.Background()

	err := tm.WithTx(ctx, func(s inventory.Store) error {
		if err := s.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)); err != nil {
			return err
		}
		return s.AppendEntry(ctx, addition("e1", "Gudang ATK", 50))
	})
	require.NoError(t, err)

	items, err := tm.ListStockItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	entries, err := tm.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTxMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A store with one item and one log entry
	// WHEN: A transaction mutates stock, proposals, and the log, then fails
	// THEN: Every write inside the transaction is undone

	tm := store.NewTxMemory()
	ctx := context.Background()

	require.NoError(t, tm.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)))
	require.NoError(t, tm.AppendEntry(ctx, addition("e1", "Gudang ATK", 50)))

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(s inventory.Store) error {
		if err := s.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 10)); err != nil {
			return err
		}
		if err := s.PutProposal(ctx, inventory.Proposal{ID: "p1", Status: inventory.ProposalPending}); err != nil {
			return err
		}
		if err := s.AppendEntry(ctx, addition("e2", "Gudang ATK", 10)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	item, err := tm.GetStockItem(ctx, inventory.ItemKey{ItemType: "Pulpen", Brand: "Standard", Warehouse: "Gudang ATK"})
	require.NoError(t, err)
	assert.Equal(t, 50, item.Quantity)

	proposals, err := tm.ListProposals(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, proposals)

	entries, err := tm.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTxMemory_WithTx_ViewSeesOwnWrites(t *testing.T) {
	tm := store.NewTxMemory()
	ctx := context.Background()

	err := tm.WithTx(ctx, func(s inventory.Store) error {
		if err := s.PutStockItem(ctx, stockItem("s1", "Pulpen", "Standard", "Gudang ATK", 50)); err != nil {
			return err
		}
		item, err := s.GetStockItem(ctx, inventory.ItemKey{ItemType: "pulpen", Brand: "standard", Warehouse: "gudang atk"})
		if err != nil {
			return err
		}
		require.NotNil(t, item)
		assert.Equal(t, 50, item.Quantity)
		return nil
	})
	require.NoError(t, err)
}
