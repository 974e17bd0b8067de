// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/sigap/inventory-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	stock     map[inventory.ItemKey]inventory.StockItem // keyed by normalized key
	stockSeq  []inventory.ItemKey                       // insertion order
	proposals map[inventory.ProposalID]inventory.Proposal
	propSeq   []inventory.ProposalID
	entries   []inventory.LogEntry // append-only
}

func NewMemory() *Memory {
	return &Memory{
		stock:     make(map[inventory.ItemKey]inventory.StockItem),
		proposals: make(map[inventory.ProposalID]inventory.Proposal),
	}
}

// =============================================================================
// STOCK ITEMS
// =============================================================================

func (m *Memory) GetStockItem(_ context.Context, key inventory.ItemKey) (*inventory.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStockLocked(key), nil
}

func (m *Memory) getStockLocked(key inventory.ItemKey) *inventory.StockItem {
	if item, ok := m.stock[key.Normalize()]; ok {
		copied := item
		return &copied
	}
	return nil
}

func (m *Memory) PutStockItem(_ context.Context, item inventory.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putStockLocked(item)
	return nil
}

func (m *Memory) putStockLocked(item inventory.StockItem) {
	norm := item.Key().Normalize()
	if _, ok := m.stock[norm]; !ok {
		m.stockSeq = append(m.stockSeq, norm)
	}
	m.stock[norm] = item
}

func (m *Memory) ListStockItems(_ context.Context) ([]inventory.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.StockItem, 0, len(m.stockSeq))
	for _, norm := range m.stockSeq {
		result = append(result, m.stock[norm])
	}
	return result, nil
}

func (m *Memory) ListStockItemsByWarehouse(_ context.Context, warehouse string) ([]inventory.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	target := inventory.ItemKey{Warehouse: warehouse}.Normalize().Warehouse
	var result []inventory.StockItem
	for _, norm := range m.stockSeq {
		if norm.Warehouse == target {
			result = append(result, m.stock[norm])
		}
	}
	return result, nil
}

// =============================================================================
// PROPOSALS
// =============================================================================

func (m *Memory) PutProposal(_ context.Context, p inventory.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putProposalLocked(p)
	return nil
}

func (m *Memory) putProposalLocked(p inventory.Proposal) {
	if _, ok := m.proposals[p.ID]; !ok {
		m.propSeq = append(m.propSeq, p.ID)
	}
	m.proposals[p.ID] = p
}

func (m *Memory) GetProposal(_ context.Context, id inventory.ProposalID) (*inventory.Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.proposals[id]; ok {
		copied := p
		return &copied, nil
	}
	return nil, nil
}

func (m *Memory) ListProposals(_ context.Context, status inventory.ProposalStatus) ([]inventory.Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []inventory.Proposal
	for _, id := range m.propSeq {
		p := m.proposals[id]
		if status == "" || p.Status == status {
			result = append(result, p)
		}
	}
	return result, nil
}

// =============================================================================
// TRANSACTION LOG - Append-only
// =============================================================================

func (m *Memory) AppendEntry(_ context.Context, e inventory.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) AppendEntries(_ context.Context, es []inventory.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, es...)
	return nil
}

func (m *Memory) Entries(_ context.Context) ([]inventory.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.LogEntry, len(m.entries))
	copy(result, m.entries)
	return result, nil
}

func (m *Memory) EntriesByWarehouse(_ context.Context, warehouse string) ([]inventory.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	target := inventory.ItemKey{Warehouse: warehouse}.Normalize().Warehouse
	var result []inventory.LogEntry
	for _, e := range m.entries {
		if (inventory.ItemKey{Warehouse: e.Warehouse}).Normalize().Warehouse == target {
			result = append(result, e)
		}
	}
	return result, nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock = make(map[inventory.ItemKey]inventory.StockItem)
	m.stockSeq = nil
	m.proposals = make(map[inventory.ProposalID]inventory.Proposal)
	m.propSeq = nil
	m.entries = nil
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	txStore := &txMemoryView{parent: tm}

	if err := fn(txStore); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	stock     map[inventory.ItemKey]inventory.StockItem
	stockSeq  []inventory.ItemKey
	proposals map[inventory.ProposalID]inventory.Proposal
	propSeq   []inventory.ProposalID
	entries   []inventory.LogEntry
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		stock:     make(map[inventory.ItemKey]inventory.StockItem, len(tm.stock)),
		stockSeq:  append([]inventory.ItemKey{}, tm.stockSeq...),
		proposals: make(map[inventory.ProposalID]inventory.Proposal, len(tm.proposals)),
		propSeq:   append([]inventory.ProposalID{}, tm.propSeq...),
		entries:   append([]inventory.LogEntry{}, tm.entries...),
	}
	for k, v := range tm.stock {
		s.stock[k] = v
	}
	for k, v := range tm.proposals {
		s.proposals[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.stock = s.stock
	tm.stockSeq = s.stockSeq
	tm.proposals = s.proposals
	tm.propSeq = s.propSeq
	tm.entries = s.entries
}

// txMemoryView bypasses the parent's locks; WithTx already holds them.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetStockItem(_ context.Context, key inventory.ItemKey) (*inventory.StockItem, error) {
	return tv.parent.getStockLocked(key), nil
}

func (tv *txMemoryView) PutStockItem(_ context.Context, item inventory.StockItem) error {
	tv.parent.putStockLocked(item)
	return nil
}

func (tv *txMemoryView) ListStockItems(_ context.Context) ([]inventory.StockItem, error) {
	result := make([]inventory.StockItem, 0, len(tv.parent.stockSeq))
	for _, norm := range tv.parent.stockSeq {
		result = append(result, tv.parent.stock[norm])
	}
	return result, nil
}

func (tv *txMemoryView) ListStockItemsByWarehouse(_ context.Context, warehouse string) ([]inventory.StockItem, error) {
	target := inventory.ItemKey{Warehouse: warehouse}.Normalize().Warehouse
	var result []inventory.StockItem
	for _, norm := range tv.parent.stockSeq {
		if norm.Warehouse == target {
			result = append(result, tv.parent.stock[norm])
		}
	}
	return result, nil
}

func (tv *txMemoryView) PutProposal(_ context.Context, p inventory.Proposal) error {
	tv.parent.putProposalLocked(p)
	return nil
}

func (tv *txMemoryView) GetProposal(_ context.Context, id inventory.ProposalID) (*inventory.Proposal, error) {
	if p, ok := tv.parent.proposals[id]; ok {
		copied := p
		return &copied, nil
	}
	return nil, nil
}

func (tv *txMemoryView) ListProposals(_ context.Context, status inventory.ProposalStatus) ([]inventory.Proposal, error) {
	var result []inventory.Proposal
	for _, id := range tv.parent.propSeq {
		p := tv.parent.proposals[id]
		if status == "" || p.Status == status {
			result = append(result, p)
		}
	}
	return result, nil
}

func (tv *txMemoryView) AppendEntry(_ context.Context, e inventory.LogEntry) error {
	tv.parent.entries = append(tv.parent.entries, e)
	return nil
}

func (tv *txMemoryView) AppendEntries(_ context.Context, es []inventory.LogEntry) error {
	tv.parent.entries = append(tv.parent.entries, es...)
	return nil
}

func (tv *txMemoryView) Entries(_ context.Context) ([]inventory.LogEntry, error) {
	result := make([]inventory.LogEntry, len(tv.parent.entries))
	copy(result, tv.parent.entries)
	return result, nil
}

func (tv *txMemoryView) EntriesByWarehouse(_ context.Context, warehouse string) ([]inventory.LogEntry, error) {
	target := inventory.ItemKey{Warehouse: warehouse}.Normalize().Warehouse
	var result []inventory.LogEntry
	for _, e := range tv.parent.entries {
		if (inventory.ItemKey{Warehouse: e.Warehouse}).Normalize().Warehouse == target {
			result = append(result, e)
		}
	}
	return result, nil
}
