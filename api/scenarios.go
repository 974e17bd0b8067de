/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario seeds warehouses, stock
	items, log entries, and proposals that demonstrate specific features.

AVAILABLE SCENARIOS:

	office-supplies:    Two warehouses with typical consumable stock and a
	                    mix of resolved proposals
	insufficient-stock: A pending proposal that exceeds available quantity,
	                    ready to demonstrate auto-rejection on approval
	stock-card:         Months of movement history for one item, for the
	                    reconstruction report

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Record stock additions through the engine
 3. Submit proposals and resolve some of them
 4. For historical timestamps, write entries through the store directly,
    keeping the ledger consistent so the reconcile check stays clean

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "office-supplies"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shares the Handler type
  - inventory/engine.go: The operations scenarios drive
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sigap/inventory-engine/inventory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "office-supplies",
		Name:        "Office Supplies",
		Description: "Two warehouses with consumable stock and resolved proposals",
	},
	{
		ID:          "insufficient-stock",
		Name:        "Insufficient Stock",
		Description: "A pending proposal requesting more than is available",
	},
	{
		ID:          "stock-card",
		Name:        "Stock Card History",
		Description: "Months of movement for one item, for the reconstruction report",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:   h.currentScenario,
		Name: h.currentScenario,
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var loader func(context.Context) error
	switch req.ID {
	case "office-supplies":
		loader = h.loadOfficeSuppliesScenario
	case "insufficient-stock":
		loader = h.loadInsufficientStockScenario
	case "stock-card":
		loader = h.loadStockCardScenario
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario: %s", req.ID), nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := loader(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	if h.resetter == nil {
		return fmt.Errorf("store does not support reset")
	}
	return h.resetter.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadOfficeSuppliesScenario(ctx context.Context) error {
	staff := inventory.Actor{Name: "Rina Hartati", NIP: "198204"}

	_, err := h.Engine.AddStock(ctx, inventory.StockAddition{
		Staff:     staff,
		Warehouse: "Gudang ATK",
		Location:  "Kantor Pusat",
		Lines: []inventory.AdditionLine{
			{New: &inventory.NewDefinition{ItemType: "Pulpen", Brand: "Standard", UnitPrice: inventory.IDR(3500)}, Quantity: 120},
			{New: &inventory.NewDefinition{ItemType: "Kertas A4", Brand: "Sinar Dunia", UnitPrice: inventory.IDR(52000)}, Quantity: 40},
			{New: &inventory.NewDefinition{ItemType: "Tinta Printer", Brand: "Epson 003", UnitPrice: inventory.IDR(95000)}, Quantity: 18},
		},
	})
	if err != nil {
		return err
	}

	_, err = h.Engine.AddStock(ctx, inventory.StockAddition{
		Staff:     staff,
		Warehouse: "Gudang Teknik",
		Location:  "Kantor Pusat",
		Lines: []inventory.AdditionLine{
			{New: &inventory.NewDefinition{ItemType: "Kabel LAN", Brand: "Belden Cat6", UnitPrice: inventory.IDR(8500)}, Quantity: 200},
			{New: &inventory.NewDefinition{ItemType: "Baterai AA", Brand: "ABC Alkaline", UnitPrice: inventory.IDR(6000)}, Quantity: 96},
		},
	})
	if err != nil {
		return err
	}

	// One approved withdrawal.
	p1, err := h.Engine.SubmitProposal(ctx, inventory.ProposalInput{
		Actor:      inventory.Actor{Name: "Budi Santoso", NIP: "199101"},
		Department: "Keuangan",
		Warehouse:  "Gudang ATK",
		Items: []inventory.LineItem{
			{ItemType: "Pulpen", Brand: "Standard", Quantity: 10},
			{ItemType: "Kertas A4", Brand: "Sinar Dunia", Quantity: 5},
		},
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.Approve(ctx, p1.ID); err != nil {
		return err
	}

	// One manually rejected proposal.
	p2, err := h.Engine.SubmitProposal(ctx, inventory.ProposalInput{
		Actor:      inventory.Actor{Name: "Sari Wulandari"},
		Department: "Umum",
		Warehouse:  "Gudang Teknik",
		Items:      []inventory.LineItem{{ItemType: "Kabel LAN", Brand: "Belden Cat6", Quantity: 50}},
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.Reject(ctx, p2.ID, "project postponed"); err != nil {
		return err
	}

	// One still pending.
	_, err = h.Engine.SubmitProposal(ctx, inventory.ProposalInput{
		Actor:      inventory.Actor{Name: "Dewi Lestari", NIP: "200305"},
		Department: "IT",
		Warehouse:  "Gudang ATK",
		Items:      []inventory.LineItem{{ItemType: "Tinta Printer", Brand: "Epson 003", Quantity: 4}},
	})
	return err
}

func (h *Handler) loadInsufficientStockScenario(ctx context.Context) error {
	_, err := h.Engine.AddStock(ctx, inventory.StockAddition{
		Staff:     inventory.Actor{Name: "Rina Hartati"},
		Warehouse: "Gudang ATK",
		Lines: []inventory.AdditionLine{
			{New: &inventory.NewDefinition{ItemType: "Map Folder", Brand: "Bantex", UnitPrice: inventory.IDR(12000)}, Quantity: 15},
		},
	})
	if err != nil {
		return err
	}

	// Requests 20 of the 15 available; approving this demonstrates the
	// auto-rejection path.
	_, err = h.Engine.SubmitProposal(ctx, inventory.ProposalInput{
		Actor:      inventory.Actor{Name: "Budi Santoso"},
		Department: "Keuangan",
		Warehouse:  "Gudang ATK",
		Items:      []inventory.LineItem{{ItemType: "Map Folder", Brand: "Bantex", Quantity: 20}},
	})
	return err
}

// loadStockCardScenario seeds months of movement with historical timestamps.
// Engine operations stamp entries with the current time, so this writes the
// log and ledger directly, keeping both consistent.
func (h *Handler) loadStockCardScenario(ctx context.Context) error {
	store := h.Engine.Store()
	warehouse := "Gudang ATK"
	staff := inventory.Actor{Name: "Rina Hartati", NIP: "198204"}
	line := func(qty int) []inventory.LineItem {
		return []inventory.LineItem{{ItemType: "Kertas A4", Brand: "Sinar Dunia", Quantity: qty}}
	}

	year := time.Now().UTC().Year()
	entries := []inventory.LogEntry{
		{
			ID: inventory.EntryID(uuid.NewString()), Actor: staff,
			Department: inventory.WarehouseDepartment, Warehouse: warehouse,
			Items:      line(100),
			OccurredAt: time.Date(year, time.January, 5, 9, 0, 0, 0, time.UTC),
			Kind:       inventory.KindAddition,
		},
		{
			ID:         inventory.EntryID(uuid.NewString()),
			Actor:      inventory.Actor{Name: "Budi Santoso", NIP: "199101"},
			Department: "Keuangan", Warehouse: warehouse,
			Items:      line(30),
			OccurredAt: time.Date(year, time.February, 12, 10, 30, 0, 0, time.UTC),
			Kind:       inventory.KindWithdrawal,
		},
		{
			ID: inventory.EntryID(uuid.NewString()), Actor: staff,
			Department: inventory.WarehouseDepartment, Warehouse: warehouse,
			Items:      line(20),
			OccurredAt: time.Date(year, time.March, 3, 14, 0, 0, 0, time.UTC),
			Kind:       inventory.KindAddition,
		},
		{
			ID:         inventory.EntryID(uuid.NewString()),
			Actor:      inventory.Actor{Name: "Dewi Lestari", NIP: "200305"},
			Department: "IT", Warehouse: warehouse,
			Items:      line(15),
			OccurredAt: time.Date(year, time.April, 21, 11, 15, 0, 0, time.UTC),
			Kind:       inventory.KindWithdrawal,
		},
	}

	if err := store.AppendEntries(ctx, entries); err != nil {
		return err
	}

	// Live balance matching the replayed log: 100 - 30 + 20 - 15.
	return store.PutStockItem(ctx, inventory.StockItem{
		ID:        "kertas-a4-sinar-dunia-demo",
		ItemType:  "Kertas A4",
		Brand:     "Sinar Dunia",
		Warehouse: warehouse,
		Quantity:  75,
		UnitPrice: inventory.IDR(52000),
	})
}
