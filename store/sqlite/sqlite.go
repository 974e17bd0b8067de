/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements inventory.Store and inventory.TxStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  The transaction log is append-only:
  - No UPDATE statements on the log_entries table
  - No DELETE statements on the log_entries table (Reset excepted)
  - Entries carry a monotonic seq; all log reads ORDER BY seq ASC, so
    insertion order survives a round trip

KEY TABLES:
  stock_items: Materialized stock ledger, one row per (itemType, brand,
               warehouse) key. Normalized key columns carry a UNIQUE
               constraint so case-variant inserts collapse to one row.
  proposals:   Withdrawal requests with their approval status
  log_entries: Immutable transaction log

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := inventory.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/sigap/inventory-engine/inventory"
)

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and the
	// store's mutex serializes access anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Stock ledger (materialized projection of the log)
	CREATE TABLE IF NOT EXISTS stock_items (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		item_type TEXT NOT NULL,
		brand TEXT NOT NULL,
		warehouse TEXT NOT NULL,
		item_type_norm TEXT NOT NULL,
		brand_norm TEXT NOT NULL,
		warehouse_norm TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		UNIQUE(item_type_norm, brand_norm, warehouse_norm)
	);

	CREATE INDEX IF NOT EXISTS idx_stock_items_warehouse
		ON stock_items(warehouse_norm);

	-- Proposals (approval workflow)
	CREATE TABLE IF NOT EXISTS proposals (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		actor_name TEXT NOT NULL,
		actor_nip TEXT,
		department TEXT,
		warehouse TEXT NOT NULL,
		items_json TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		status TEXT NOT NULL,
		rejection_reason TEXT,
		photo_ref TEXT,
		location TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_proposals_status
		ON proposals(status);

	-- Transaction log (append-only)
	CREATE TABLE IF NOT EXISTS log_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		actor_name TEXT NOT NULL,
		actor_nip TEXT,
		department TEXT,
		warehouse TEXT NOT NULL,
		warehouse_norm TEXT NOT NULL,
		items_json TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		photo_ref TEXT,
		location TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_log_entries_warehouse
		ON log_entries(warehouse_norm);
	CREATE INDEX IF NOT EXISTS idx_log_entries_kind
		ON log_entries(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// helpers serve both transactional and direct access.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Timestamps round-trip as RFC3339Nano so sub-second ordering survives.
const timeLayout = time.RFC3339Nano

// =============================================================================
// STOCK ITEMS (inventory.Store interface)
// =============================================================================

// GetStockItem returns the item for the key, or nil if absent.
func (s *Store) GetStockItem(ctx context.Context, key inventory.ItemKey) (*inventory.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getStockItem(ctx, s.db, key)
}

func getStockItem(ctx context.Context, db dbtx, key inventory.ItemKey) (*inventory.StockItem, error) {
	n := key.Normalize()
	row := db.QueryRowContext(ctx, `
		SELECT id, item_type, brand, warehouse, quantity, unit_price
		FROM stock_items
		WHERE item_type_norm = ? AND brand_norm = ? AND warehouse_norm = ?`,
		n.ItemType, n.Brand, n.Warehouse,
	)

	var item inventory.StockItem
	var price string
	err := row.Scan(&item.ID, &item.ItemType, &item.Brand, &item.Warehouse, &item.Quantity, &price)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock item: %w", err)
	}

	item.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit price %q: %w", price, err)
	}
	return &item, nil
}

// PutStockItem inserts or replaces the item identified by its key.
func (s *Store) PutStockItem(ctx context.Context, item inventory.StockItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putStockItem(ctx, s.db, item)
}

func putStockItem(ctx context.Context, db dbtx, item inventory.StockItem) error {
	n := item.Key().Normalize()
	query := `
		INSERT INTO stock_items
		(id, item_type, brand, warehouse, item_type_norm, brand_norm, warehouse_norm, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_type_norm, brand_norm, warehouse_norm) DO UPDATE SET
			quantity = excluded.quantity,
			unit_price = excluded.unit_price
	`

	_, err := db.ExecContext(ctx, query,
		item.ID, item.ItemType, item.Brand, item.Warehouse,
		n.ItemType, n.Brand, n.Warehouse,
		item.Quantity, item.UnitPrice.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to put stock item: %w", err)
	}
	return nil
}

// ListStockItems returns every stock item in insertion order.
func (s *Store) ListStockItems(ctx context.Context) ([]inventory.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryStockItems(ctx, s.db, `
		SELECT id, item_type, brand, warehouse, quantity, unit_price
		FROM stock_items ORDER BY seq ASC`)
}

// ListStockItemsByWarehouse returns one warehouse's items in insertion order.
func (s *Store) ListStockItemsByWarehouse(ctx context.Context, warehouse string) ([]inventory.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryStockItems(ctx, s.db, `
		SELECT id, item_type, brand, warehouse, quantity, unit_price
		FROM stock_items WHERE warehouse_norm = ? ORDER BY seq ASC`,
		norm(warehouse))
}

func queryStockItems(ctx context.Context, db dbtx, query string, args ...any) ([]inventory.StockItem, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock items: %w", err)
	}
	defer rows.Close()

	var items []inventory.StockItem
	for rows.Next() {
		var item inventory.StockItem
		var price string
		if err := rows.Scan(&item.ID, &item.ItemType, &item.Brand, &item.Warehouse, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("failed to scan stock item: %w", err)
		}
		item.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("failed to parse unit price %q: %w", price, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// PROPOSALS
// =============================================================================

// PutProposal inserts or replaces a proposal by ID.
func (s *Store) PutProposal(ctx context.Context, p inventory.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putProposal(ctx, s.db, p)
}

func putProposal(ctx context.Context, db dbtx, p inventory.Proposal) error {
	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal items: %w", err)
	}

	query := `
		INSERT INTO proposals
		(id, actor_name, actor_nip, department, warehouse, items_json,
		 submitted_at, status, rejection_reason, photo_ref, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			rejection_reason = excluded.rejection_reason
	`

	_, err = db.ExecContext(ctx, query,
		string(p.ID), p.Actor.Name, p.Actor.NIP, p.Department, p.Warehouse,
		string(itemsJSON), p.SubmittedAt.UTC().Format(timeLayout),
		string(p.Status), p.RejectionReason, p.PhotoRef, p.Location,
	)
	if err != nil {
		return fmt.Errorf("failed to put proposal: %w", err)
	}
	return nil
}

// GetProposal returns the proposal, or nil if absent.
func (s *Store) GetProposal(ctx context.Context, id inventory.ProposalID) (*inventory.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProposal(ctx, s.db, id)
}

func getProposal(ctx context.Context, db dbtx, id inventory.ProposalID) (*inventory.Proposal, error) {
	ps, err := queryProposals(ctx, db, `
		SELECT id, actor_name, actor_nip, department, warehouse, items_json,
		       submitted_at, status, rejection_reason, photo_ref, location
		FROM proposals WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, nil
	}
	return &ps[0], nil
}

// ListProposals returns proposals in insertion order, optionally filtered
// by status ("" = all).
func (s *Store) ListProposals(ctx context.Context, status inventory.ProposalStatus) ([]inventory.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProposals(ctx, s.db, status)
}

func listProposals(ctx context.Context, db dbtx, status inventory.ProposalStatus) ([]inventory.Proposal, error) {
	base := `
		SELECT id, actor_name, actor_nip, department, warehouse, items_json,
		       submitted_at, status, rejection_reason, photo_ref, location
		FROM proposals`
	if status == "" {
		return queryProposals(ctx, db, base+" ORDER BY seq ASC")
	}
	return queryProposals(ctx, db, base+" WHERE status = ? ORDER BY seq ASC", string(status))
}

func queryProposals(ctx context.Context, db dbtx, query string, args ...any) ([]inventory.Proposal, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	var proposals []inventory.Proposal
	for rows.Next() {
		var (
			p            inventory.Proposal
			id, status   string
			nip          sql.NullString
			department   sql.NullString
			itemsJSON    string
			submittedAt  string
			rejectReason sql.NullString
			photoRef     sql.NullString
			location     sql.NullString
		)
		if err := rows.Scan(&id, &p.Actor.Name, &nip, &department, &p.Warehouse,
			&itemsJSON, &submittedAt, &status, &rejectReason, &photoRef, &location); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}

		p.ID = inventory.ProposalID(id)
		p.Actor.NIP = nip.String
		p.Department = department.String
		p.Status = inventory.ProposalStatus(status)
		p.RejectionReason = rejectReason.String
		p.PhotoRef = photoRef.String
		p.Location = location.String
		if err := json.Unmarshal([]byte(itemsJSON), &p.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proposal items: %w", err)
		}
		p.SubmittedAt, err = time.Parse(timeLayout, submittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse submitted_at %q: %w", submittedAt, err)
		}

		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// =============================================================================
// TRANSACTION LOG - Append-only
// =============================================================================

// AppendEntry adds one immutable entry to the transaction log.
func (s *Store) AppendEntry(ctx context.Context, e inventory.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, db dbtx, e inventory.LogEntry) error {
	itemsJSON, err := json.Marshal(e.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal entry items: %w", err)
	}

	query := `
		INSERT INTO log_entries
		(id, actor_name, actor_nip, department, warehouse, warehouse_norm,
		 items_json, occurred_at, kind, photo_ref, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		string(e.ID), e.Actor.Name, e.Actor.NIP, e.Department,
		e.Warehouse, norm(e.Warehouse),
		string(itemsJSON), e.OccurredAt.UTC().Format(timeLayout),
		string(e.Kind), e.PhotoRef, e.Location,
	)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// AppendEntries adds multiple entries atomically.
func (s *Store) AppendEntries(ctx context.Context, es []inventory.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range es {
		if err := appendEntry(ctx, sqlTx, e); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// Entries returns the whole transaction log in insertion order.
func (s *Store) Entries(ctx context.Context) ([]inventory.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryEntries(ctx, s.db, `
		SELECT id, actor_name, actor_nip, department, warehouse,
		       items_json, occurred_at, kind, photo_ref, location
		FROM log_entries ORDER BY seq ASC`)
}

// EntriesByWarehouse returns the log restricted to one warehouse.
func (s *Store) EntriesByWarehouse(ctx context.Context, warehouse string) ([]inventory.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryEntries(ctx, s.db, `
		SELECT id, actor_name, actor_nip, department, warehouse,
		       items_json, occurred_at, kind, photo_ref, location
		FROM log_entries WHERE warehouse_norm = ? ORDER BY seq ASC`,
		norm(warehouse))
}

func queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]inventory.LogEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	var entries []inventory.LogEntry
	for rows.Next() {
		var (
			e          inventory.LogEntry
			id, kind   string
			nip        sql.NullString
			department sql.NullString
			itemsJSON  string
			occurredAt string
			photoRef   sql.NullString
			location   sql.NullString
		)
		if err := rows.Scan(&id, &e.Actor.Name, &nip, &department, &e.Warehouse,
			&itemsJSON, &occurredAt, &kind, &photoRef, &location); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		e.ID = inventory.EntryID(id)
		e.Actor.NIP = nip.String
		e.Department = department.String
		e.Kind = inventory.EntryKind(kind)
		e.PhotoRef = photoRef.String
		e.Location = location.String
		if err := json.Unmarshal([]byte(itemsJSON), &e.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry items: %w", err)
		}
		e.OccurredAt, err = time.Parse(timeLayout, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse occurred_at %q: %w", occurredAt, err)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (inventory.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx}
	if err := fn(txStore); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every call through the open *sql.Tx. The parent's mutex is
// held for the duration of WithTx, so no extra locking here.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetStockItem(ctx context.Context, key inventory.ItemKey) (*inventory.StockItem, error) {
	return getStockItem(ctx, ts.tx, key)
}

func (ts *txStore) PutStockItem(ctx context.Context, item inventory.StockItem) error {
	return putStockItem(ctx, ts.tx, item)
}

func (ts *txStore) ListStockItems(ctx context.Context) ([]inventory.StockItem, error) {
	return queryStockItems(ctx, ts.tx, `
		SELECT id, item_type, brand, warehouse, quantity, unit_price
		FROM stock_items ORDER BY seq ASC`)
}

func (ts *txStore) ListStockItemsByWarehouse(ctx context.Context, warehouse string) ([]inventory.StockItem, error) {
	return queryStockItems(ctx, ts.tx, `
		SELECT id, item_type, brand, warehouse, quantity, unit_price
		FROM stock_items WHERE warehouse_norm = ? ORDER BY seq ASC`,
		norm(warehouse))
}

func (ts *txStore) PutProposal(ctx context.Context, p inventory.Proposal) error {
	return putProposal(ctx, ts.tx, p)
}

func (ts *txStore) GetProposal(ctx context.Context, id inventory.ProposalID) (*inventory.Proposal, error) {
	return getProposal(ctx, ts.tx, id)
}

func (ts *txStore) ListProposals(ctx context.Context, status inventory.ProposalStatus) ([]inventory.Proposal, error) {
	return listProposals(ctx, ts.tx, status)
}

func (ts *txStore) AppendEntry(ctx context.Context, e inventory.LogEntry) error {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) AppendEntries(ctx context.Context, es []inventory.LogEntry) error {
	for _, e := range es {
		if err := appendEntry(ctx, ts.tx, e); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) Entries(ctx context.Context) ([]inventory.LogEntry, error) {
	return queryEntries(ctx, ts.tx, `
		SELECT id, actor_name, actor_nip, department, warehouse,
		       items_json, occurred_at, kind, photo_ref, location
		FROM log_entries ORDER BY seq ASC`)
}

func (ts *txStore) EntriesByWarehouse(ctx context.Context, warehouse string) ([]inventory.LogEntry, error) {
	return queryEntries(ctx, ts.tx, `
		SELECT id, actor_name, actor_nip, department, warehouse,
		       items_json, occurred_at, kind, photo_ref, location
		FROM log_entries WHERE warehouse_norm = ? ORDER BY seq ASC`,
		norm(warehouse))
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"log_entries", "proposals", "stock_items"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
