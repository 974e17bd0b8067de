/*
Package inventory provides the core inventory ledger and approval engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  consumable-item stock across multiple warehouses: the append-only
  transaction log, the materialized stock ledger, the withdrawal approval
  workflow, and the replay-based stock-card reconstruction used for
  historical reporting.

KEY CONCEPTS IN THIS FILE (types.go):
  - ItemKey: The (itemType, brand, warehouse) identity of a stock item,
    compared case-insensitively
  - StockItem: Current quantity and unit price for one key
  - LogEntry: An immutable transaction-log record (addition or withdrawal)
  - Proposal: A withdrawal request awaiting approval
  - Period: A time window for reconstruction and reporting

DESIGN PRINCIPLES:
  1. Single source of truth: the transaction log; the stock ledger is a
     materialized projection of it
  2. Immutability: log entries are never modified after append
  3. Precision: uses decimal.Decimal for currency values
  4. Opaqueness: photo references, locations, and actor identity are
     caller-supplied values the engine stores but never interprets

SEE ALSO:
  - ledger.go: Stock ledger mutations and the central aggregate view
  - engine.go: Proposal lifecycle and the approval state machine
  - stockcard.go: Point-in-time ledger reconstruction
*/
package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ITEM KEY - Case-insensitive (itemType, brand, warehouse) identity
// =============================================================================

// ItemKey identifies a stock item. Two keys refer to the same item when all
// three components are equal ignoring case and surrounding whitespace.
type ItemKey struct {
	ItemType  string
	Brand     string
	Warehouse string
}

// Normalize returns the canonical lookup form of the key.
func (k ItemKey) Normalize() ItemKey {
	return ItemKey{
		ItemType:  normalize(k.ItemType),
		Brand:     normalize(k.Brand),
		Warehouse: normalize(k.Warehouse),
	}
}

// Equal reports whether both keys identify the same stock item.
func (k ItemKey) Equal(other ItemKey) bool {
	return k.Normalize() == other.Normalize()
}

// Label returns the display form used in reports: "ItemType - Brand".
func (k ItemKey) Label() string {
	return k.ItemType + " - " + k.Brand
}

func (k ItemKey) String() string {
	return fmt.Sprintf("%s - %s @ %s", k.ItemType, k.Brand, k.Warehouse)
}

// IsComplete reports whether all key components are non-blank.
func (k ItemKey) IsComplete() bool {
	return normalize(k.ItemType) != "" && normalize(k.Brand) != "" && normalize(k.Warehouse) != ""
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// =============================================================================
// STOCK ITEM - Materialized current quantity per key
// =============================================================================

// StockItem is one row of the stock ledger. Quantity is never negative after
// a committed operation; a zero-quantity item persists as "out of stock".
type StockItem struct {
	ID        string
	ItemType  string
	Brand     string
	Warehouse string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Key returns the item's identity.
func (s StockItem) Key() ItemKey {
	return ItemKey{ItemType: s.ItemType, Brand: s.Brand, Warehouse: s.Warehouse}
}

// TotalValue returns quantity x unit price.
func (s StockItem) TotalValue() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// OutOfStock reports whether the item has been fully consumed.
func (s StockItem) OutOfStock() bool {
	return s.Quantity == 0
}

// =============================================================================
// ACTOR - Identity metadata supplied by callers, never authenticated here
// =============================================================================

// Actor is the person recorded on a proposal or log entry. NIP is an
// optional external identifier (employee registration number).
type Actor struct {
	Name string
	NIP  string
}

// AdminActor is the reserved actor name excluded from department rollups.
const AdminActor = "Admin"

// WarehouseDepartment is the department recorded on stock additions.
const WarehouseDepartment = "Gudang"

// =============================================================================
// LINE ITEM - One (itemType, brand, quantity) line on an entry or proposal
// =============================================================================

type LineItem struct {
	ItemType string
	Brand    string
	Quantity int
}

// Key returns the line's item identity within the given warehouse.
func (li LineItem) Key(warehouse string) ItemKey {
	return ItemKey{ItemType: li.ItemType, Brand: li.Brand, Warehouse: warehouse}
}

// Label returns the display form "ItemType - Brand".
func (li LineItem) Label() string {
	return li.ItemType + " - " + li.Brand
}

// =============================================================================
// LOG ENTRY - Immutable transaction-log record
// =============================================================================

type EntryID string

type EntryKind string

const (
	KindAddition   EntryKind = "addition"   // Stock received into a warehouse
	KindWithdrawal EntryKind = "withdrawal" // Stock taken out via an approved proposal
)

// LogEntry records one committed stock movement. Immutable once appended.
// PhotoRef and Location are opaque values from excluded collaborators.
type LogEntry struct {
	ID         EntryID
	Actor      Actor
	Department string
	Warehouse  string
	Items      []LineItem
	OccurredAt time.Time
	Kind       EntryKind
	PhotoRef   string
	Location   string
}

// TotalQuantity sums the entry's line quantities.
func (e LogEntry) TotalQuantity() int {
	total := 0
	for _, li := range e.Items {
		total += li.Quantity
	}
	return total
}

// =============================================================================
// PROPOSAL - Withdrawal request with a single pending -> terminal transition
// =============================================================================

type ProposalID string

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// IsTerminal reports whether the status permits no further transition.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalApproved || s == ProposalRejected
}

// Proposal is a withdrawal request submitted by a requester. Status moves
// exactly once from pending to approved or rejected; everything else is
// immutable after submission.
type Proposal struct {
	ID              ProposalID
	Actor           Actor
	Department      string
	Warehouse       string
	Items           []LineItem
	SubmittedAt     time.Time
	Status          ProposalStatus
	RejectionReason string
	PhotoRef        string
	Location        string
}

// =============================================================================
// PERIOD - Reporting window [Start, End], both inclusive
// =============================================================================

type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// PeriodForMonth returns the calendar-month window for year/month.
func PeriodForMonth(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// PeriodForYear returns the calendar-year window for year.
func PeriodForYear(year int) Period {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}

// AllTime returns a window wide enough to cover every recordable entry.
func AllTime() Period {
	return Period{
		Start: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(3000, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// IDR builds a rupiah amount. Prices are whole currency units; the decimal
// representation keeps value math exact in reports.
func IDR(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
