/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Lookup errors - Unknown proposal or stock key
  2. State errors - Operations against a terminal proposal
  3. Validation errors - Bad caller input
  4. Stock errors - Withdrawal exceeding available quantity

SPECIAL CASE:
  Insufficient stock discovered during approval is NOT surfaced as an
  error from Approve: the engine recovers by auto-rejecting the proposal
  and returns a structured outcome instead. The InsufficientStockError
  type still carries the shortage details inside that outcome, and is
  returned directly from StockLedger.ApplyWithdrawal.

SEE ALSO:
  - engine.go: Uses these errors in the approval state machine
  - ledger.go: Returns InsufficientStockError on direct withdrawals
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced proposal or stock key
	// doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrNotPending is returned when approving or rejecting a proposal
	// that already reached a terminal status.
	ErrNotPending = errors.New("proposal is not pending")

	// ErrInsufficientStock is returned when a withdrawal exceeds the
	// available quantity for its key.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidInput is returned for bad caller input: empty rejection
	// reason, non-positive quantity, missing line-item fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreRequired is returned when an operation needs a store
	// capability the configured store doesn't provide.
	ErrStoreRequired = errors.New("operation requires extended store interface")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError describes a stock shortage for one item key.
type InsufficientStockError struct {
	Key       ItemKey
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.Key, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ValidationError describes a rejected input with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than an internal fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotPending)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
