/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Unit prices and totals are serialized as decimal strings, never floats.

VALIDATION:
  Validation is done in the engine, not in DTOs. DTOs are pure data
  carriers; handlers only reject unparseable bodies.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/types.go: The domain model behind them
*/
package api

import (
	"time"

	"github.com/sigap/inventory-engine/inventory"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// LineItemDTO is one (itemType, brand, quantity) line.
type LineItemDTO struct {
	ItemType string `json:"item_type"`
	Brand    string `json:"brand"`
	Quantity int    `json:"quantity"`
}

// StockItemDTO represents one stock ledger row.
type StockItemDTO struct {
	ID         string `json:"id"`
	ItemType   string `json:"item_type"`
	Brand      string `json:"brand"`
	Warehouse  string `json:"warehouse"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalValue string `json:"total_value"`
	OutOfStock bool   `json:"out_of_stock"`
}

// CentralStockItemDTO is one row of the cross-warehouse view.
type CentralStockItemDTO struct {
	ItemType   string `json:"item_type"`
	Brand      string `json:"brand"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalValue string `json:"total_value"`
}

// AdditionLineDTO is one line of a stock addition. When New is true the line
// introduces a new item type or brand and UnitPrice is required.
type AdditionLineDTO struct {
	ItemType  string `json:"item_type"`
	Brand     string `json:"brand"`
	Quantity  int    `json:"quantity"`
	New       bool   `json:"new,omitempty"`
	UnitPrice string `json:"unit_price,omitempty"`
}

// AddStockRequest is the request to record a batch of stock additions.
type AddStockRequest struct {
	StaffName string            `json:"staff_name"`
	StaffNIP  string            `json:"staff_nip,omitempty"`
	Warehouse string            `json:"warehouse"`
	Location  string            `json:"location,omitempty"`
	Lines     []AdditionLineDTO `json:"lines"`
}

// EntryDTO represents one transaction-log entry.
type EntryDTO struct {
	ID         string        `json:"id"`
	ActorName  string        `json:"actor_name"`
	ActorNIP   string        `json:"actor_nip,omitempty"`
	Department string        `json:"department,omitempty"`
	Warehouse  string        `json:"warehouse"`
	Items      []LineItemDTO `json:"items"`
	OccurredAt string        `json:"occurred_at"`
	Kind       string        `json:"kind"`
	PhotoRef   string        `json:"photo_ref,omitempty"`
	Location   string        `json:"location,omitempty"`
}

// SubmitProposalRequest is the request to submit a withdrawal proposal.
type SubmitProposalRequest struct {
	ActorName  string        `json:"actor_name"`
	ActorNIP   string        `json:"actor_nip,omitempty"`
	Department string        `json:"department,omitempty"`
	Warehouse  string        `json:"warehouse"`
	Items      []LineItemDTO `json:"items"`
	PhotoRef   string        `json:"photo_ref,omitempty"`
	Location   string        `json:"location,omitempty"`
}

// ProposalDTO represents a proposal in API responses.
type ProposalDTO struct {
	ID              string        `json:"id"`
	ActorName       string        `json:"actor_name"`
	ActorNIP        string        `json:"actor_nip,omitempty"`
	Department      string        `json:"department,omitempty"`
	Warehouse       string        `json:"warehouse"`
	Items           []LineItemDTO `json:"items"`
	SubmittedAt     string        `json:"submitted_at"`
	Status          string        `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	PhotoRef        string        `json:"photo_ref,omitempty"`
	Location        string        `json:"location,omitempty"`
}

// RejectRequest is the request body for a manual rejection.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ShortageDTO describes the first failing line of an insufficient approval.
type ShortageDTO struct {
	ItemType  string `json:"item_type"`
	Brand     string `json:"brand"`
	Warehouse string `json:"warehouse"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// ApprovalResponse reports the outcome of an approval attempt. On an
// insufficient_stock outcome the proposal has been auto-rejected and
// Shortage is set; Entry is set only on approval.
type ApprovalResponse struct {
	Outcome  string       `json:"outcome"`
	Proposal ProposalDTO  `json:"proposal"`
	Entry    *EntryDTO    `json:"entry,omitempty"`
	Shortage *ShortageDTO `json:"shortage,omitempty"`
}

// HistoryRowDTO is one flattened history row.
type HistoryRowDTO struct {
	Actor      string `json:"actor"`
	NIP        string `json:"nip,omitempty"`
	Department string `json:"department,omitempty"`
	Warehouse  string `json:"warehouse"`
	Kind       string `json:"kind"`
	ItemType   string `json:"item_type"`
	Brand      string `json:"brand"`
	Quantity   int    `json:"quantity"`
	OccurredAt string `json:"occurred_at"`
	Location   string `json:"location,omitempty"`
}

// SummaryItemDTO is one per-item rollup inside a summary group.
type SummaryItemDTO struct {
	ItemType      string `json:"item_type"`
	Brand         string `json:"brand"`
	TotalQuantity int    `json:"total_quantity"`
	LastDate      string `json:"last_date"`
}

// SummaryGroupDTO is one (actor, warehouse) or (department, warehouse) group.
type SummaryGroupDTO struct {
	ActorName  string           `json:"actor_name,omitempty"`
	ActorNIP   string           `json:"actor_nip,omitempty"`
	Department string           `json:"department,omitempty"`
	Warehouse  string           `json:"warehouse"`
	Items      []SummaryItemDTO `json:"items"`
}

// StockCardRowDTO is one line of the reconstruction report.
type StockCardRowDTO struct {
	Date        string `json:"date"`
	Item        string `json:"item"`
	Description string `json:"description"`
	StockIn     int    `json:"stock_in"`
	StockOut    int    `json:"stock_out"`
	Balance     int    `json:"balance"`
}

// DivergenceDTO flags one key whose replayed balance disagrees with the
// live ledger.
type DivergenceDTO struct {
	ItemType  string `json:"item_type"`
	Brand     string `json:"brand"`
	Warehouse string `json:"warehouse"`
	Replayed  int    `json:"replayed"`
	Live      int    `json:"live"`
	Delta     int    `json:"delta"`
}

// ReconcileResponse is the replay-identity check result.
type ReconcileResponse struct {
	Consistent  bool            `json:"consistent"`
	Divergences []DivergenceDTO `json:"divergences"`
}

// MonthlyFlowDTO is one month's addition/withdrawal totals.
type MonthlyFlowDTO struct {
	Year        int `json:"year"`
	Month       int `json:"month"`
	Additions   int `json:"additions"`
	Withdrawals int `json:"withdrawals"`
}

// StatusCountsDTO tallies proposals by status.
type StatusCountsDTO struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// RankedCountDTO is one row of a ranking view.
type RankedCountDTO struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toLineItemDTOs(items []inventory.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, len(items))
	for i, li := range items {
		dtos[i] = LineItemDTO{ItemType: li.ItemType, Brand: li.Brand, Quantity: li.Quantity}
	}
	return dtos
}

func toStockItemDTO(item inventory.StockItem) StockItemDTO {
	return StockItemDTO{
		ID:         item.ID,
		ItemType:   item.ItemType,
		Brand:      item.Brand,
		Warehouse:  item.Warehouse,
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice.String(),
		TotalValue: item.TotalValue().String(),
		OutOfStock: item.OutOfStock(),
	}
}

func toEntryDTO(e inventory.LogEntry) EntryDTO {
	return EntryDTO{
		ID:         string(e.ID),
		ActorName:  e.Actor.Name,
		ActorNIP:   e.Actor.NIP,
		Department: e.Department,
		Warehouse:  e.Warehouse,
		Items:      toLineItemDTOs(e.Items),
		OccurredAt: e.OccurredAt.Format(time.RFC3339),
		Kind:       string(e.Kind),
		PhotoRef:   e.PhotoRef,
		Location:   e.Location,
	}
}

func toEntryDTOs(entries []inventory.LogEntry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toProposalDTO(p inventory.Proposal) ProposalDTO {
	return ProposalDTO{
		ID:              string(p.ID),
		ActorName:       p.Actor.Name,
		ActorNIP:        p.Actor.NIP,
		Department:      p.Department,
		Warehouse:       p.Warehouse,
		Items:           toLineItemDTOs(p.Items),
		SubmittedAt:     p.SubmittedAt.Format(time.RFC3339),
		Status:          string(p.Status),
		RejectionReason: p.RejectionReason,
		PhotoRef:        p.PhotoRef,
		Location:        p.Location,
	}
}
