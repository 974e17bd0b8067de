package inventory_test

import (
	"context"
	"testing"

	"github.com/sigap/inventory-engine/inventory"
	"github.com/sigap/inventory-engine/inventory/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine() (*inventory.Engine, *store.TxMemory) {
	mem := store.NewTxMemory()
	return inventory.NewEngine(mem), mem
}

func newLine(itemType, brand string, price int64, qty int) inventory.AdditionLine {
	return inventory.AdditionLine{
		New: &inventory.NewDefinition{
			ItemType:  itemType,
			Brand:     brand,
			UnitPrice: inventory.IDR(price),
		},
		Quantity: qty,
	}
}

func knownLine(itemType, brand string, qty int) inventory.AdditionLine {
	return inventory.AdditionLine{
		Known:    &inventory.KnownKey{ItemType: itemType, Brand: brand},
		Quantity: qty,
	}
}

func seedStock(t *testing.T, e *inventory.Engine, warehouse, itemType, brand string, qty int) {
	t.Helper()
	_, err := e.AddStock(context.Background(), inventory.StockAddition{
		Staff:     inventory.Actor{Name: "Rina Hartati"},
		Warehouse: warehouse,
		Lines:     []inventory.AdditionLine{newLine(itemType, brand, 5000, qty)},
	})
	require.NoError(t, err)
}

func submitProposal(t *testing.T, e *inventory.Engine, warehouse string, items ...inventory.LineItem) *inventory.Proposal {
	t.Helper()
	p, err := e.SubmitProposal(context.Background(), inventory.ProposalInput{
		Actor:      inventory.Actor{Name: "Budi Santoso", NIP: "199101"},
		Department: "Keuangan",
		Warehouse:  warehouse,
		Items:      items,
	})
	require.NoError(t, err)
	return p
}

func stockQuantity(t *testing.T, e *inventory.Engine, warehouse, itemType, brand string) int {
	t.Helper()
	item, err := e.Store().GetStockItem(context.Background(),
		inventory.ItemKey{ItemType: itemType, Brand: brand, Warehouse: warehouse})
	require.NoError(t, err)
	if item == nil {
		return 0
	}
	return item.Quantity
}

// =============================================================================
// STOCK ADDITION
// =============================================================================

func TestAddStock_CreatesItemAndLogEntry(t *testing.T) {
	// GIVEN: An empty ledger
	// WHEN: Staff records an addition introducing a new item
	// THEN: The stock ledger holds the quantity and the log has one
	//       Addition entry tagged with the warehouse department

	engine, _ := newTestEngine()
	ctx := context.Background()

	entries, err := engine.AddStock(ctx, inventory.StockAddition{
		Staff:     inventory.Actor{Name: "Rina Hartati", NIP: "198204"},
		Warehouse: "Gudang ATK",
		Location:  "Kantor Pusat",
		Lines:     []inventory.AdditionLine{newLine("Pulpen", "Standard", 3500, 120)},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, inventory.KindAddition, entries[0].Kind)
	assert.Equal(t, inventory.WarehouseDepartment, entries[0].Department)
	assert.Equal(t, "Kantor Pusat", entries[0].Location)

	item, err := engine.Store().GetStockItem(ctx,
		inventory.ItemKey{ItemType: "Pulpen", Brand: "Standard", Warehouse: "Gudang ATK"})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 120, item.Quantity)
	assert.True(t, inventory.IDR(3500).Equal(item.UnitPrice))
}

func TestAddStock_CaseInsensitiveKeysMerge(t *testing.T) {
	// GIVEN: "Pulpen"/"Standard" already exists in Gudang ATK
	// WHEN: A later addition uses different casing for the same key
	// THEN: Quantities accumulate on the one item; no second row appears

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Pulpen", "Standard", 100)

	_, err := engine.AddStock(ctx, inventory.StockAddition{
		Staff:     inventory.Actor{Name: "Rina Hartati"},
		Warehouse: "gudang atk",
		Lines:     []inventory.AdditionLine{knownLine("PULPEN", "standard", 30)},
	})
	require.NoError(t, err)

	items, err := engine.Store().ListStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 130, items[0].Quantity)
	// The first-seen display form survives.
	assert.Equal(t, "Pulpen", items[0].ItemType)
}

func TestAddStock_KnownKeyKeepsExistingPrice(t *testing.T) {
	// GIVEN: An item priced at 5000
	// WHEN: A known-key addition (no price supplied) lands on it
	// THEN: The stored unit price is unchanged

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Pulpen", "Standard", 10)

	_, err := engine.AddStock(ctx, inventory.StockAddition{
		Staff:     inventory.Actor{Name: "Rina Hartati"},
		Warehouse: "Gudang ATK",
		Lines:     []inventory.AdditionLine{knownLine("Pulpen", "Standard", 5)},
	})
	require.NoError(t, err)

	item, err := engine.Store().GetStockItem(ctx,
		inventory.ItemKey{ItemType: "Pulpen", Brand: "Standard", Warehouse: "Gudang ATK"})
	require.NoError(t, err)
	assert.True(t, inventory.IDR(5000).Equal(item.UnitPrice))
}

func TestAddStock_NewDefinitionOverwritesPrice(t *testing.T) {
	// GIVEN: An item priced at 5000
	// WHEN: A new-definition addition for the same key carries price 6000
	// THEN: The stored unit price becomes 6000

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Pulpen", "Standard", 10)

	_, err := engine.AddStock(ctx, inventory.StockAddition{
		Staff:     inventory.Actor{Name: "Rina Hartati"},
		Warehouse: "Gudang ATK",
		Lines:     []inventory.AdditionLine{newLine("Pulpen", "Standard", 6000, 5)},
	})
	require.NoError(t, err)

	item, err := engine.Store().GetStockItem(ctx,
		inventory.ItemKey{ItemType: "Pulpen", Brand: "Standard", Warehouse: "Gudang ATK"})
	require.NoError(t, err)
	assert.True(t, inventory.IDR(6000).Equal(item.UnitPrice))
	assert.Equal(t, 15, item.Quantity)
}

func TestAddStock_Validation(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	cases := []struct {
		name string
		add  inventory.StockAddition
	}{
		{"missing staff", inventory.StockAddition{
			Warehouse: "Gudang ATK",
			Lines:     []inventory.AdditionLine{newLine("Pulpen", "Standard", 3500, 1)},
		}},
		{"missing warehouse", inventory.StockAddition{
			Staff: inventory.Actor{Name: "Rina"},
			Lines: []inventory.AdditionLine{newLine("Pulpen", "Standard", 3500, 1)},
		}},
		{"no lines", inventory.StockAddition{
			Staff:     inventory.Actor{Name: "Rina"},
			Warehouse: "Gudang ATK",
		}},
		{"non-positive quantity", inventory.StockAddition{
			Staff:     inventory.Actor{Name: "Rina"},
			Warehouse: "Gudang ATK",
			Lines:     []inventory.AdditionLine{newLine("Pulpen", "Standard", 3500, 0)},
		}},
		{"new definition without price", inventory.StockAddition{
			Staff:     inventory.Actor{Name: "Rina"},
			Warehouse: "Gudang ATK",
			Lines: []inventory.AdditionLine{{
				New:      &inventory.NewDefinition{ItemType: "Pulpen", Brand: "Standard"},
				Quantity: 1,
			}},
		}},
		{"neither known nor new", inventory.StockAddition{
			Staff:     inventory.Actor{Name: "Rina"},
			Warehouse: "Gudang ATK",
			Lines:     []inventory.AdditionLine{{Quantity: 1}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.AddStock(ctx, tc.add)
			assert.ErrorIs(t, err, inventory.ErrInvalidInput)
		})
	}

	// Nothing was written by any rejected call.
	entries, err := engine.Store().Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// PROPOSAL SUBMISSION
// =============================================================================

func TestSubmitProposal_StartsPending(t *testing.T) {
	// GIVEN: No stock at all
	// WHEN: A withdrawal proposal is submitted
	// THEN: It is stored pending; submission never checks stock

	engine, _ := newTestEngine()

	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Pulpen", Brand: "Standard", Quantity: 5})

	assert.Equal(t, inventory.ProposalPending, p.Status)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.SubmittedAt.IsZero())

	stored, err := engine.Store().GetProposal(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, inventory.ProposalPending, stored.Status)
}

func TestSubmitProposal_Validation(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.SubmitProposal(ctx, inventory.ProposalInput{
		Warehouse: "Gudang ATK",
		Items:     []inventory.LineItem{{ItemType: "Pulpen", Brand: "Standard", Quantity: 5}},
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidInput, "actor name required")

	_, err = engine.SubmitProposal(ctx, inventory.ProposalInput{
		Actor:     inventory.Actor{Name: "Budi"},
		Warehouse: "Gudang ATK",
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidInput, "items required")

	_, err = engine.SubmitProposal(ctx, inventory.ProposalInput{
		Actor:     inventory.Actor{Name: "Budi"},
		Warehouse: "Gudang ATK",
		Items:     []inventory.LineItem{{ItemType: "Pulpen", Brand: "Standard", Quantity: -1}},
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidInput, "positive quantity required")
}

// =============================================================================
// APPROVAL STATE MACHINE
// =============================================================================

func TestApprove_SufficientStock_DecrementsAndLogs(t *testing.T) {
	// GIVEN: 15 units on the shelf and a pending proposal for 5
	// WHEN: The proposal is approved
	// THEN: Stock drops to 10, the proposal is approved, and exactly one
	//       Withdrawal entry cloned from the proposal is appended

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Map Folder", "Bantex", 15)
	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Map Folder", Brand: "Bantex", Quantity: 5})

	result, err := engine.Approve(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, inventory.OutcomeApproved, result.Outcome)
	assert.Equal(t, inventory.ProposalApproved, result.Proposal.Status)
	require.NotNil(t, result.Entry)
	assert.Equal(t, inventory.KindWithdrawal, result.Entry.Kind)
	assert.Equal(t, p.Actor, result.Entry.Actor)
	assert.Equal(t, p.Items, result.Entry.Items)
	assert.True(t, result.Entry.OccurredAt.Equal(p.SubmittedAt),
		"withdrawal entry carries the proposal's submission time")

	assert.Equal(t, 10, stockQuantity(t, engine, "Gudang ATK", "Map Folder", "Bantex"))

	entries, err := engine.Store().Entries(ctx)
	require.NoError(t, err)
	withdrawals := 0
	for _, e := range entries {
		if e.Kind == inventory.KindWithdrawal {
			withdrawals++
		}
	}
	assert.Equal(t, 1, withdrawals)
}

func TestApprove_InsufficientStock_AutoRejects(t *testing.T) {
	// GIVEN: 15 units on the shelf and a pending proposal for 20
	// WHEN: The proposal is approved
	// THEN: The engine recovers by rejecting it with a reason naming the
	//       line and warehouse; stock stays 15 and no entry is appended

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Map Folder", "Bantex", 15)
	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Map Folder", Brand: "Bantex", Quantity: 20})

	result, err := engine.Approve(ctx, p.ID)
	require.NoError(t, err, "insufficiency is an outcome, not an error")

	assert.Equal(t, inventory.OutcomeInsufficientStock, result.Outcome)
	assert.Equal(t, inventory.ProposalRejected, result.Proposal.Status)
	assert.Equal(t, "insufficient stock for Map Folder - Bantex in Gudang ATK",
		result.Proposal.RejectionReason)
	require.NotNil(t, result.Shortage)
	assert.Equal(t, 15, result.Shortage.Available)
	assert.Equal(t, 20, result.Shortage.Requested)

	assert.Equal(t, 15, stockQuantity(t, engine, "Gudang ATK", "Map Folder", "Bantex"))

	entries, err := engine.Store().Entries(ctx)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, inventory.KindWithdrawal, e.Kind)
	}
}

func TestApprove_MultiLine_FirstShortfallNamed_NoPartialDecrement(t *testing.T) {
	// GIVEN: Two short lines in one proposal
	// WHEN: The proposal is approved
	// THEN: The rejection reason names the FIRST insufficient line and
	//       neither item is decremented

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Pulpen", "Standard", 3)
	seedStock(t, engine, "Gudang ATK", "Kertas A4", "Sinar Dunia", 2)

	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Pulpen", Brand: "Standard", Quantity: 10},
		inventory.LineItem{ItemType: "Kertas A4", Brand: "Sinar Dunia", Quantity: 10},
	)

	result, err := engine.Approve(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, inventory.OutcomeInsufficientStock, result.Outcome)
	assert.Equal(t, "insufficient stock for Pulpen - Standard in Gudang ATK",
		result.Proposal.RejectionReason)

	assert.Equal(t, 3, stockQuantity(t, engine, "Gudang ATK", "Pulpen", "Standard"))
	assert.Equal(t, 2, stockQuantity(t, engine, "Gudang ATK", "Kertas A4", "Sinar Dunia"))
}

func TestApprove_SufficientFirstLine_ShortSecond_NothingMoves(t *testing.T) {
	// GIVEN: First line is coverable, second is not
	// WHEN: The proposal is approved
	// THEN: The first line is NOT decremented either (all-or-nothing)

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Pulpen", "Standard", 50)
	seedStock(t, engine, "Gudang ATK", "Kertas A4", "Sinar Dunia", 2)

	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Pulpen", Brand: "Standard", Quantity: 10},
		inventory.LineItem{ItemType: "Kertas A4", Brand: "Sinar Dunia", Quantity: 10},
	)

	result, err := engine.Approve(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, inventory.OutcomeInsufficientStock, result.Outcome)
	assert.Equal(t, "insufficient stock for Kertas A4 - Sinar Dunia in Gudang ATK",
		result.Proposal.RejectionReason)
	assert.Equal(t, 50, stockQuantity(t, engine, "Gudang ATK", "Pulpen", "Standard"))
}

func TestApprove_TerminalStatesAreFinal(t *testing.T) {
	// GIVEN: A proposal already approved
	// WHEN: It is approved or rejected again
	// THEN: Both attempts fail with ErrNotPending and nothing changes

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Map Folder", "Bantex", 15)
	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Map Folder", Brand: "Bantex", Quantity: 5})

	_, err := engine.Approve(ctx, p.ID)
	require.NoError(t, err)

	_, err = engine.Approve(ctx, p.ID)
	assert.ErrorIs(t, err, inventory.ErrNotPending)

	_, err = engine.Reject(ctx, p.ID, "changed my mind")
	assert.ErrorIs(t, err, inventory.ErrNotPending)

	assert.Equal(t, 10, stockQuantity(t, engine, "Gudang ATK", "Map Folder", "Bantex"))
}

func TestApprove_UnknownProposal(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Approve(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.True(t, inventory.IsNotFound(err))
}

// =============================================================================
// MANUAL REJECTION
// =============================================================================

func TestReject_SetsReasonAndStatus(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Pulpen", Brand: "Standard", Quantity: 5})

	rejected, err := engine.Reject(ctx, p.ID, "budget freeze")
	require.NoError(t, err)
	assert.Equal(t, inventory.ProposalRejected, rejected.Status)
	assert.Equal(t, "budget freeze", rejected.RejectionReason)

	// No ledger mutation, no log entry.
	entries, err := engine.Store().Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReject_RequiresReason(t *testing.T) {
	engine, _ := newTestEngine()

	p := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Pulpen", Brand: "Standard", Quantity: 5})

	_, err := engine.Reject(context.Background(), p.ID, "   ")
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)

	stored, err := engine.Store().GetProposal(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ProposalPending, stored.Status)
}

func TestReject_UnknownProposal(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Reject(context.Background(), "no-such-id", "reason")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

// =============================================================================
// CONSERVATION - log replay always matches the live ledger
// =============================================================================

func TestEngine_ReplayMatchesLedgerAfterMixedOperations(t *testing.T) {
	// GIVEN: A mix of additions, an approval, an auto-rejection, and a
	//        manual rejection
	// THEN: Replaying the log reproduces the live ledger exactly

	engine, _ := newTestEngine()
	ctx := context.Background()

	seedStock(t, engine, "Gudang ATK", "Pulpen", "Standard", 100)
	seedStock(t, engine, "Gudang Teknik", "Kabel LAN", "Belden Cat6", 40)

	approved := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Pulpen", Brand: "Standard", Quantity: 30})
	_, err := engine.Approve(ctx, approved.ID)
	require.NoError(t, err)

	tooBig := submitProposal(t, engine, "Gudang Teknik",
		inventory.LineItem{ItemType: "Kabel LAN", Brand: "Belden Cat6", Quantity: 99})
	result, err := engine.Approve(ctx, tooBig.ID)
	require.NoError(t, err)
	require.Equal(t, inventory.OutcomeInsufficientStock, result.Outcome)

	manual := submitProposal(t, engine, "Gudang ATK",
		inventory.LineItem{ItemType: "Pulpen", Brand: "Standard", Quantity: 1})
	_, err = engine.Reject(ctx, manual.ID, "duplicate request")
	require.NoError(t, err)

	divergences, err := inventory.CheckReplayIdentity(ctx, engine.Store())
	require.NoError(t, err)
	assert.Empty(t, divergences)

	assert.Equal(t, 70, stockQuantity(t, engine, "Gudang ATK", "Pulpen", "Standard"))
	assert.Equal(t, 40, stockQuantity(t, engine, "Gudang Teknik", "Kabel LAN", "Belden Cat6"))
}
