/*
store.go - Persistence interface for the three logical collections

PURPOSE:
  Defines the interface between the engine and the database. The store
  owns StockItems, Proposals, and the TransactionLog; different
  implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  The transaction log accepts AppendEntry/AppendEntries only. There is no
  update or delete for log entries; history is immutable.

ORDERING:
  Entries() returns log entries in insertion order. Reconstruction sorts
  by timestamp with a stable sort, so insertion order is the tie-breaker
  for entries sharing a timestamp.

CASE-INSENSITIVITY:
  GetStockItem and EntriesByWarehouse match keys/warehouses ignoring case
  and surrounding whitespace, per the ItemKey identity rules.

ATOMIC WRITES:
  TxStore.WithTx gives all-or-nothing semantics across multiple writes.
  Approving a proposal decrements several stock items, updates the
  proposal, and appends a log entry; either all of it commits or none.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - inventory/store/memory.go: In-memory for testing/dev

SEE ALSO:
  - engine.go: Drives WithTx during approval
  - ledger.go: Uses the stock-item methods
*/
package inventory

import "context"

// =============================================================================
// STORE - The three collections: StockItems, Proposals, TransactionLog
// =============================================================================

type Store interface {
	// GetStockItem returns the item for the key, or nil if absent.
	// Lookup is case-insensitive on all key components.
	GetStockItem(ctx context.Context, key ItemKey) (*StockItem, error)

	// PutStockItem inserts or replaces the item identified by its key.
	PutStockItem(ctx context.Context, item StockItem) error

	// ListStockItems returns every stock item in insertion order.
	ListStockItems(ctx context.Context) ([]StockItem, error)

	// ListStockItemsByWarehouse returns the items of one warehouse,
	// matched case-insensitively.
	ListStockItemsByWarehouse(ctx context.Context, warehouse string) ([]StockItem, error)

	// PutProposal inserts or replaces a proposal by ID.
	PutProposal(ctx context.Context, p Proposal) error

	// GetProposal returns the proposal, or nil if absent.
	GetProposal(ctx context.Context, id ProposalID) (*Proposal, error)

	// ListProposals returns proposals in insertion order, optionally
	// filtered by status ("" = all).
	ListProposals(ctx context.Context, status ProposalStatus) ([]Proposal, error)

	// AppendEntry adds one immutable entry to the transaction log.
	// This and AppendEntries are the ONLY log write operations.
	AppendEntry(ctx context.Context, e LogEntry) error

	// AppendEntries adds multiple entries atomically.
	AppendEntries(ctx context.Context, es []LogEntry) error

	// Entries returns the whole transaction log in insertion order.
	Entries(ctx context.Context) ([]LogEntry, error)

	// EntriesByWarehouse returns the log restricted to one warehouse,
	// matched case-insensitively, in insertion order.
	EntriesByWarehouse(ctx context.Context, warehouse string) ([]LogEntry, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
// Use this when a sequence of writes must be all-or-nothing.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns an error, every write inside it is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
