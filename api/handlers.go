/*
handlers.go - HTTP API handlers for the inventory engine

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Stock:
    POST   /api/stock/additions        Record a batch of stock additions
    GET    /api/stock                  Stock ledger (?warehouse= filter,
                                       ?view=central for the consolidated view)

  Proposals:
    POST   /api/proposals              Submit a withdrawal proposal
    GET    /api/proposals              List proposals (?status= filter)
    GET    /api/proposals/{id}         Get one proposal
    POST   /api/proposals/{id}/approve Run the approval state machine
    POST   /api/proposals/{id}/reject  Reject with a reason

  Reports:
    GET    /api/history                Flat history rows (?month=&year=)
    GET    /api/reports/summary        Withdrawal rollups (?by=actor|department)
    GET    /api/reports/stock-card     Point-in-time reconstruction
    GET    /api/reports/monthly-flow   Per-month addition/withdrawal totals
    GET    /api/reports/proposal-status Status tallies per warehouse
    GET    /api/reports/top-items      Most-withdrawn items
    GET    /api/reports/top-departments Most-consuming departments
    GET    /api/reconcile              Replay-identity anomalies

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Clear the database (dev only)

REQUEST FLOW:
  1. Parse HTTP request
  2. Call domain logic (engine, reporter, stock card builder)
  3. Serialize response
  4. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Proposal already terminal
  - 500: Internal errors
  An insufficient-stock approval is NOT an error: the proposal is
  auto-rejected and the outcome comes back as 200 with structured details.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sigap/inventory-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter is implemented by stores that can wipe all data (dev/demo).
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine   *inventory.Engine
	reporter *inventory.Reporter
	cards    *inventory.StockCardBuilder
	resetter Resetter

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler around the engine. resetter may be nil
// when the store cannot be wiped.
func NewHandler(engine *inventory.Engine, resetter Resetter) *Handler {
	return &Handler{
		Engine:   engine,
		reporter: inventory.NewReporter(engine.Store()),
		cards:    inventory.NewStockCardBuilder(engine.Store()),
		resetter: resetter,
	}
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// AddStock records a batch of stock additions.
// POST /api/stock/additions
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req AddStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	add := inventory.StockAddition{
		Staff:     inventory.Actor{Name: req.StaffName, NIP: req.StaffNIP},
		Warehouse: req.Warehouse,
		Location:  req.Location,
	}
	for _, line := range req.Lines {
		al := inventory.AdditionLine{Quantity: line.Quantity}
		if line.New {
			price, err := decimal.NewFromString(line.UnitPrice)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid unit_price", err)
				return
			}
			al.New = &inventory.NewDefinition{
				ItemType:  line.ItemType,
				Brand:     line.Brand,
				UnitPrice: price,
			}
		} else {
			al.Known = &inventory.KnownKey{ItemType: line.ItemType, Brand: line.Brand}
		}
		add.Lines = append(add.Lines, al)
	}

	entries, err := h.Engine.AddStock(r.Context(), add)
	if err != nil {
		writeEngineError(w, "Failed to add stock", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTOs(entries))
}

// ListStock returns the stock ledger. With ?view=central it returns the
// consolidated cross-warehouse view; with ?warehouse= it filters to one
// warehouse.
// GET /api/stock
func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ledger := inventory.NewStockLedger(h.Engine.Store())

	if r.URL.Query().Get("view") == "central" {
		central, err := ledger.AggregateAcrossWarehouses(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to aggregate stock", err)
			return
		}
		dtos := make([]CentralStockItemDTO, len(central))
		for i, c := range central {
			dtos[i] = CentralStockItemDTO{
				ItemType:   c.ItemType,
				Brand:      c.Brand,
				Quantity:   c.Quantity,
				UnitPrice:  c.UnitPrice.String(),
				TotalValue: c.TotalValue().String(),
			}
		}
		writeJSON(w, http.StatusOK, dtos)
		return
	}

	var items []inventory.StockItem
	var err error
	if warehouse := r.URL.Query().Get("warehouse"); warehouse != "" {
		items, err = h.Engine.Store().ListStockItemsByWarehouse(ctx, warehouse)
	} else {
		items, err = h.Engine.Store().ListStockItems(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stock", err)
		return
	}

	dtos := make([]StockItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toStockItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PROPOSAL HANDLERS
// =============================================================================

// SubmitProposal stores a new pending withdrawal proposal.
// POST /api/proposals
func (h *Handler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req SubmitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := inventory.ProposalInput{
		Actor:      inventory.Actor{Name: req.ActorName, NIP: req.ActorNIP},
		Department: req.Department,
		Warehouse:  req.Warehouse,
		PhotoRef:   req.PhotoRef,
		Location:   req.Location,
	}
	for _, li := range req.Items {
		in.Items = append(in.Items, inventory.LineItem{
			ItemType: li.ItemType,
			Brand:    li.Brand,
			Quantity: li.Quantity,
		})
	}

	p, err := h.Engine.SubmitProposal(r.Context(), in)
	if err != nil {
		writeEngineError(w, "Failed to submit proposal", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProposalDTO(*p))
}

// ListProposals returns proposals, optionally filtered by ?status=.
// GET /api/proposals
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	status := inventory.ProposalStatus(r.URL.Query().Get("status"))

	proposals, err := h.Engine.Store().ListProposals(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list proposals", err)
		return
	}

	dtos := make([]ProposalDTO, len(proposals))
	for i, p := range proposals {
		dtos[i] = toProposalDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProposal returns one proposal by ID.
// GET /api/proposals/{id}
func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProposalID(chi.URLParam(r, "id"))

	p, err := h.Engine.Store().GetProposal(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get proposal", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Proposal not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toProposalDTO(*p))
}

// ApproveProposal runs the approval state machine. Insufficient stock is a
// 200 with outcome "insufficient_stock", not an error status: the engine
// handled it by auto-rejecting the proposal.
// POST /api/proposals/{id}/approve
func (h *Handler) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProposalID(chi.URLParam(r, "id"))

	result, err := h.Engine.Approve(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to approve proposal", err)
		return
	}

	resp := ApprovalResponse{
		Outcome:  string(result.Outcome),
		Proposal: toProposalDTO(*result.Proposal),
	}
	if result.Entry != nil {
		dto := toEntryDTO(*result.Entry)
		resp.Entry = &dto
	}
	if result.Shortage != nil {
		resp.Shortage = &ShortageDTO{
			ItemType:  result.Shortage.Key.ItemType,
			Brand:     result.Shortage.Key.Brand,
			Warehouse: result.Shortage.Key.Warehouse,
			Available: result.Shortage.Available,
			Requested: result.Shortage.Requested,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// RejectProposal rejects a pending proposal with the caller's reason.
// POST /api/proposals/{id}/reject
func (h *Handler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProposalID(chi.URLParam(r, "id"))

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Engine.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeEngineError(w, "Failed to reject proposal", err)
		return
	}

	writeJSON(w, http.StatusOK, toProposalDTO(*p))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// History returns flattened log rows filtered by ?month= and ?year=.
// GET /api/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	rows, err := h.reporter.HistoryRows(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build history", err)
		return
	}

	dtos := make([]HistoryRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = HistoryRowDTO{
			Actor:      row.Actor,
			NIP:        row.NIP,
			Department: row.Department,
			Warehouse:  row.Warehouse,
			Kind:       string(row.Kind),
			ItemType:   row.ItemType,
			Brand:      row.Brand,
			Quantity:   row.Quantity,
			OccurredAt: row.OccurredAt.Format(time.RFC3339),
			Location:   row.Location,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Summary returns withdrawal rollups grouped by ?by=actor (default) or
// ?by=department.
// GET /api/reports/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	var groups []inventory.SummaryGroup
	switch by := r.URL.Query().Get("by"); by {
	case "", "actor":
		groups, err = h.reporter.SummaryByActor(r.Context(), filter)
	case "department":
		groups, err = h.reporter.SummaryByDepartment(r.Context(), filter)
	default:
		writeError(w, http.StatusBadRequest, "Invalid 'by' parameter (use actor or department)", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build summary", err)
		return
	}

	dtos := make([]SummaryGroupDTO, len(groups))
	for i, g := range groups {
		dto := SummaryGroupDTO{
			ActorName:  g.Actor.Name,
			ActorNIP:   g.Actor.NIP,
			Department: g.Department,
			Warehouse:  g.Warehouse,
			Items:      make([]SummaryItemDTO, len(g.Items)),
		}
		for j, item := range g.Items {
			dto.Items[j] = SummaryItemDTO{
				ItemType:      item.ItemType,
				Brand:         item.Brand,
				TotalQuantity: item.TotalQuantity,
				LastDate:      item.LastDate.Format(time.RFC3339),
			}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// StockCard reconstructs per-item running balances for one warehouse over
// the ?month=/?year= window. With ?item_type= and ?brand= it restricts the
// card to a single item key.
// GET /api/reports/stock-card
func (h *Handler) StockCard(w http.ResponseWriter, r *http.Request) {
	warehouse := r.URL.Query().Get("warehouse")
	if warehouse == "" {
		writeError(w, http.StatusBadRequest, "warehouse is required", nil)
		return
	}
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	var rows []inventory.StockCardRow
	itemType := r.URL.Query().Get("item_type")
	brand := r.URL.Query().Get("brand")
	if itemType != "" && brand != "" {
		rows, err = h.cards.BuildForItem(r.Context(), warehouse, itemType, brand, period)
	} else {
		rows, err = h.cards.Build(r.Context(), warehouse, period)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build stock card", err)
		return
	}

	dtos := make([]StockCardRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = StockCardRowDTO{
			Date:        row.Date.Format(time.RFC3339),
			Item:        row.ItemLabel,
			Description: row.Description,
			StockIn:     row.StockIn,
			StockOut:    row.StockOut,
			Balance:     row.RunningBalance,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MonthlyFlow returns chronological per-month addition/withdrawal totals
// for one warehouse.
// GET /api/reports/monthly-flow
func (h *Handler) MonthlyFlow(w http.ResponseWriter, r *http.Request) {
	warehouse := r.URL.Query().Get("warehouse")
	if warehouse == "" {
		writeError(w, http.StatusBadRequest, "warehouse is required", nil)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	flows, err := h.reporter.MonthlyFlowByWarehouse(r.Context(), warehouse, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build monthly flow", err)
		return
	}

	dtos := make([]MonthlyFlowDTO, len(flows))
	for i, f := range flows {
		dtos[i] = MonthlyFlowDTO{
			Year:        f.Year,
			Month:       int(f.Month),
			Additions:   f.Additions,
			Withdrawals: f.Withdrawals,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ProposalStatusCounts tallies a warehouse's proposals by status.
// GET /api/reports/proposal-status
func (h *Handler) ProposalStatusCounts(w http.ResponseWriter, r *http.Request) {
	warehouse := r.URL.Query().Get("warehouse")
	if warehouse == "" {
		writeError(w, http.StatusBadRequest, "warehouse is required", nil)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	counts, err := h.reporter.ProposalStatusCounts(r.Context(), warehouse, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count proposals", err)
		return
	}

	writeJSON(w, http.StatusOK, StatusCountsDTO{
		Approved: counts.Approved,
		Rejected: counts.Rejected,
		Pending:  counts.Pending,
	})
}

// TopItems ranks a warehouse's most-withdrawn items.
// GET /api/reports/top-items
func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, h.reporter.TopWithdrawnItems)
}

// TopDepartments ranks a warehouse's most-consuming departments.
// GET /api/reports/top-departments
func (h *Handler) TopDepartments(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, h.reporter.TopDepartments)
}

func (h *Handler) ranking(w http.ResponseWriter, r *http.Request,
	rank func(context.Context, string, inventory.ReportFilter) ([]inventory.RankedCount, error)) {
	warehouse := r.URL.Query().Get("warehouse")
	if warehouse == "" {
		writeError(w, http.StatusBadRequest, "warehouse is required", nil)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	ranked, err := rank(r.Context(), warehouse, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build ranking", err)
		return
	}

	dtos := make([]RankedCountDTO, len(ranked))
	for i, rc := range ranked {
		dtos[i] = RankedCountDTO{Name: rc.Name, Quantity: rc.Quantity}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Reconcile replays the transaction log and reports keys whose balance
// disagrees with the live ledger.
// GET /api/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	divergences, err := inventory.CheckReplayIdentity(r.Context(), h.Engine.Store())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reconcile", err)
		return
	}

	resp := ReconcileResponse{
		Consistent:  len(divergences) == 0,
		Divergences: make([]DivergenceDTO, len(divergences)),
	}
	for i, d := range divergences {
		resp.Divergences[i] = DivergenceDTO{
			ItemType:  d.Key.ItemType,
			Brand:     d.Key.Brand,
			Warehouse: d.Key.Warehouse,
			Replayed:  d.Replayed,
			Live:      d.Live,
			Delta:     d.Delta(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// parseFilter reads optional ?month= (1-12) and ?year= query parameters.
func parseFilter(r *http.Request) (inventory.ReportFilter, error) {
	var f inventory.ReportFilter
	if m := r.URL.Query().Get("month"); m != "" {
		month, err := strconv.Atoi(m)
		if err != nil || month < 1 || month > 12 {
			return f, errors.New("month must be 1-12")
		}
		f.Month = time.Month(month)
	}
	if y := r.URL.Query().Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return f, errors.New("year must be a number")
		}
		f.Year = year
	}
	return f, nil
}

// parsePeriod maps ?month=/?year= to a reconstruction window: both set is
// one calendar month, year alone is one calendar year, neither is all time.
func parsePeriod(r *http.Request) (inventory.Period, error) {
	f, err := parseFilter(r)
	if err != nil {
		return inventory.Period{}, err
	}
	switch {
	case f.Month != 0 && f.Year != 0:
		return inventory.PeriodForMonth(f.Year, f.Month), nil
	case f.Month != 0:
		return inventory.Period{}, errors.New("month requires year")
	case f.Year != 0:
		return inventory.PeriodForYear(f.Year), nil
	default:
		return inventory.AllTime(), nil
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps domain errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, inventory.ErrNotPending):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, inventory.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
