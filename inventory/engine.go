/*
engine.go - Proposal lifecycle and the approval state machine

PURPOSE:
  Orchestrates every state-mutating operation: stock additions, proposal
  submission, approval, and rejection. All four run under one mutex, so
  the read-check-then-write sequence inside Approve is atomic relative to
  any concurrent mutation touching the same keys.

STATE MACHINE:
  pending -> approved   (terminal)
  pending -> rejected   (terminal)

  No other transitions exist. A terminal proposal never re-enters pending,
  and a second Approve/Reject fails with ErrNotPending.

APPROVAL RULE:
  An approval attempt against insufficient stock becomes a rejection, not
  a retryable pending state. Approve checks every line first; on any
  shortfall it auto-rejects the proposal with a reason naming the first
  insufficient line and the warehouse, applies no ledger mutation, and
  reports an InsufficientStock outcome. Only when every line is
  sufficient does it decrement the ledger, mark the proposal approved,
  and append exactly one withdrawal entry cloned from the proposal.

ALL-OR-NOTHING:
  The sufficiency pass fully precedes any mutation, and the mutation
  sequence (decrements + proposal update + log append) runs inside
  TxStore.WithTx. No partial decrement is possible.

SEE ALSO:
  - ledger.go: The decrement/increment primitives
  - errors.go: ErrNotFound, ErrNotPending, ErrInvalidInput
*/
package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	mu    sync.Mutex
	store TxStore
}

func NewEngine(store TxStore) *Engine {
	return &Engine{store: store}
}

// Store exposes the underlying store for read-only collaborators.
func (e *Engine) Store() Store { return e.store }

// =============================================================================
// STOCK ADDITION - Tagged-variant input resolved to canonical keys
// =============================================================================

// KnownKey references an item type and brand that already exist.
type KnownKey struct {
	ItemType string
	Brand    string
}

// NewDefinition introduces a new item type or brand; a positive unit price
// is required so the ledger can record it.
type NewDefinition struct {
	ItemType  string
	Brand     string
	UnitPrice decimal.Decimal
}

// AdditionLine is a tagged variant: exactly one of Known or New is set.
type AdditionLine struct {
	Known    *KnownKey
	New      *NewDefinition
	Quantity int
}

// resolve returns the canonical line fields, or a validation error.
func (al AdditionLine) resolve() (itemType, brand string, price *decimal.Decimal, err error) {
	switch {
	case al.Known != nil && al.New != nil:
		return "", "", nil, &ValidationError{Field: "line", Message: "both known key and new definition set"}
	case al.Known != nil:
		if normalize(al.Known.ItemType) == "" || normalize(al.Known.Brand) == "" {
			return "", "", nil, &ValidationError{Field: "line", Message: "item type and brand are required"}
		}
		return strings.TrimSpace(al.Known.ItemType), strings.TrimSpace(al.Known.Brand), nil, nil
	case al.New != nil:
		if normalize(al.New.ItemType) == "" || normalize(al.New.Brand) == "" {
			return "", "", nil, &ValidationError{Field: "line", Message: "item type and brand are required"}
		}
		if !al.New.UnitPrice.IsPositive() {
			return "", "", nil, &ValidationError{Field: "unit_price", Message: "new definitions require a positive unit price"}
		}
		p := al.New.UnitPrice
		return strings.TrimSpace(al.New.ItemType), strings.TrimSpace(al.New.Brand), &p, nil
	default:
		return "", "", nil, &ValidationError{Field: "line", Message: "either known key or new definition is required"}
	}
}

// StockAddition is a batch of addition lines received by one staff member
// into one warehouse. Location is an opaque caller-resolved value.
type StockAddition struct {
	Staff     Actor
	Warehouse string
	Location  string
	Lines     []AdditionLine
}

// AddStock applies every line to the stock ledger and appends one Addition
// entry per line, all atomically. Returns the appended entries.
func (e *Engine) AddStock(ctx context.Context, add StockAddition) ([]LogEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.TrimSpace(add.Staff.Name) == "" {
		return nil, &ValidationError{Field: "staff", Message: "staff name is required"}
	}
	if normalize(add.Warehouse) == "" {
		return nil, &ValidationError{Field: "warehouse", Message: "warehouse is required"}
	}
	if len(add.Lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: "at least one line is required"}
	}
	for _, line := range add.Lines {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Field: "quantity", Message: fmt.Sprintf("must be positive, got %d", line.Quantity)}
		}
		if _, _, _, err := line.resolve(); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	var entries []LogEntry

	err := e.store.WithTx(ctx, func(s Store) error {
		ledger := NewStockLedger(s)
		entries = entries[:0]

		for _, line := range add.Lines {
			itemType, brand, price, err := line.resolve()
			if err != nil {
				return err
			}
			key := ItemKey{ItemType: itemType, Brand: brand, Warehouse: add.Warehouse}
			if _, err := ledger.ApplyAddition(ctx, key, line.Quantity, price); err != nil {
				return err
			}
			entries = append(entries, LogEntry{
				ID:         EntryID(uuid.NewString()),
				Actor:      add.Staff,
				Department: WarehouseDepartment,
				Warehouse:  strings.TrimSpace(add.Warehouse),
				Items:      []LineItem{{ItemType: itemType, Brand: brand, Quantity: line.Quantity}},
				OccurredAt: now,
				Kind:       KindAddition,
				Location:   add.Location,
			})
		}
		return s.AppendEntries(ctx, entries)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// =============================================================================
// PROPOSAL SUBMISSION
// =============================================================================

// ProposalInput carries everything a requester supplies when asking to
// withdraw stock. PhotoRef and Location are opaque.
type ProposalInput struct {
	Actor      Actor
	Department string
	Warehouse  string
	Items      []LineItem
	PhotoRef   string
	Location   string
}

// SubmitProposal validates the input and stores a pending proposal.
// Submission never checks stock; sufficiency is decided at approval time.
func (e *Engine) SubmitProposal(ctx context.Context, in ProposalInput) (*Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.TrimSpace(in.Actor.Name) == "" {
		return nil, &ValidationError{Field: "actor", Message: "actor name is required"}
	}
	if normalize(in.Warehouse) == "" {
		return nil, &ValidationError{Field: "warehouse", Message: "warehouse is required"}
	}
	if len(in.Items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one line item is required"}
	}
	for _, li := range in.Items {
		if normalize(li.ItemType) == "" || normalize(li.Brand) == "" {
			return nil, &ValidationError{Field: "items", Message: "item type and brand are required on every line"}
		}
		if li.Quantity <= 0 {
			return nil, &ValidationError{Field: "items", Message: fmt.Sprintf("quantity must be positive, got %d", li.Quantity)}
		}
	}

	p := Proposal{
		ID:          ProposalID(uuid.NewString()),
		Actor:       in.Actor,
		Department:  in.Department,
		Warehouse:   strings.TrimSpace(in.Warehouse),
		Items:       in.Items,
		SubmittedAt: time.Now().UTC(),
		Status:      ProposalPending,
		PhotoRef:    in.PhotoRef,
		Location:    in.Location,
	}

	if err := e.store.PutProposal(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// APPROVAL - pending -> approved, or auto-rejection on insufficiency
// =============================================================================

type ApprovalOutcome string

const (
	OutcomeApproved          ApprovalOutcome = "approved"
	OutcomeInsufficientStock ApprovalOutcome = "insufficient_stock"
)

// ApprovalResult reports what Approve decided. On OutcomeApproved, Entry is
// the appended withdrawal entry. On OutcomeInsufficientStock, the proposal
// has been auto-rejected and Shortage carries the first failing line.
type ApprovalResult struct {
	Outcome  ApprovalOutcome
	Proposal *Proposal
	Entry    *LogEntry
	Shortage *InsufficientStockError
}

// Approve runs the approval state machine for one proposal.
func (e *Engine) Approve(ctx context.Context, id ProposalID) (*ApprovalResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("proposal %s: %w", id, ErrNotFound)
	}
	if p.Status != ProposalPending {
		return nil, fmt.Errorf("proposal %s has status %s: %w", id, p.Status, ErrNotPending)
	}

	// Sufficiency pass over every line. Nothing is mutated until all pass.
	ledger := NewStockLedger(e.store)
	for _, li := range p.Items {
		ok, available, err := ledger.Sufficient(ctx, li.Key(p.Warehouse), li.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			shortage := &InsufficientStockError{
				Key:       li.Key(p.Warehouse),
				Available: available,
				Requested: li.Quantity,
			}
			reason := fmt.Sprintf("insufficient stock for %s in %s", li.Label(), p.Warehouse)
			rejected, err := e.rejectLocked(ctx, p, reason)
			if err != nil {
				return nil, err
			}
			return &ApprovalResult{
				Outcome:  OutcomeInsufficientStock,
				Proposal: rejected,
				Shortage: shortage,
			}, nil
		}
	}

	// Every line is sufficient: decrement, mark approved, append the
	// withdrawal entry cloned from the proposal. All-or-nothing.
	entry := LogEntry{
		ID:         EntryID(uuid.NewString()),
		Actor:      p.Actor,
		Department: p.Department,
		Warehouse:  p.Warehouse,
		Items:      p.Items,
		OccurredAt: p.SubmittedAt,
		Kind:       KindWithdrawal,
		PhotoRef:   p.PhotoRef,
		Location:   p.Location,
	}

	approved := *p
	approved.Status = ProposalApproved

	err = e.store.WithTx(ctx, func(s Store) error {
		txLedger := NewStockLedger(s)
		for _, li := range p.Items {
			if _, err := txLedger.ApplyWithdrawal(ctx, li.Key(p.Warehouse), li.Quantity); err != nil {
				return err
			}
		}
		if err := s.PutProposal(ctx, approved); err != nil {
			return err
		}
		return s.AppendEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return &ApprovalResult{
		Outcome:  OutcomeApproved,
		Proposal: &approved,
		Entry:    &entry,
	}, nil
}

// Reject moves a pending proposal to rejected with the caller's reason.
// No stock ledger mutation, no log entry.
func (e *Engine) Reject(ctx context.Context, id ProposalID, reason string) (*Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "reason", Message: "rejection reason is required"}
	}

	p, err := e.store.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("proposal %s: %w", id, ErrNotFound)
	}
	if p.Status != ProposalPending {
		return nil, fmt.Errorf("proposal %s has status %s: %w", id, p.Status, ErrNotPending)
	}

	return e.rejectLocked(ctx, p, reason)
}

// rejectLocked persists the terminal rejected status. Caller holds e.mu and
// has already verified the proposal is pending.
func (e *Engine) rejectLocked(ctx context.Context, p *Proposal, reason string) (*Proposal, error) {
	rejected := *p
	rejected.Status = ProposalRejected
	rejected.RejectionReason = reason

	if err := e.store.PutProposal(ctx, rejected); err != nil {
		return nil, err
	}
	return &rejected, nil
}
