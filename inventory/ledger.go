/*
ledger.go - Stock ledger: the materialized current-quantity projection

PURPOSE:
  The stock ledger answers "how much is on the shelf right now?" without
  replaying the transaction log. It is a projection maintained
  incrementally by the same operations that append to the log; the log
  remains the source of truth, and reconcile.go checks the two agree.

MUTATIONS:
  ApplyAddition:   increment (create on first sight), optional price
                   overwrite when a price accompanies the addition
  ApplyWithdrawal: decrement, failing with InsufficientStockError when
                   the key is missing or short

  Neither method touches the transaction log; the engine appends the
  matching entries under the same transaction (see engine.go).

INVARIANT:
  Quantity never goes negative. ApplyWithdrawal checks before writing,
  and the engine serializes mutations, so no interleaving can overdraw.

SEE ALSO:
  - engine.go: Serializes calls and pairs them with log appends
  - reconcile.go: Replay-identity check against the log
*/
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// STOCK LEDGER
// =============================================================================

type StockLedger struct {
	store Store
}

func NewStockLedger(store Store) *StockLedger {
	return &StockLedger{store: store}
}

// ApplyAddition increments the quantity for key, creating the item on first
// sight. When price is non-nil (a new brand or item type being introduced),
// the stored unit price is overwritten.
func (l *StockLedger) ApplyAddition(ctx context.Context, key ItemKey, quantity int, price *decimal.Decimal) (*StockItem, error) {
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: fmt.Sprintf("must be positive, got %d", quantity)}
	}
	if !key.IsComplete() {
		return nil, &ValidationError{Field: "key", Message: "item type, brand, and warehouse are required"}
	}

	item, err := l.store.GetStockItem(ctx, key)
	if err != nil {
		return nil, err
	}

	if item == nil {
		item = &StockItem{
			ID:        newStockItemID(key),
			ItemType:  strings.TrimSpace(key.ItemType),
			Brand:     strings.TrimSpace(key.Brand),
			Warehouse: strings.TrimSpace(key.Warehouse),
			Quantity:  0,
		}
	}

	item.Quantity += quantity
	if price != nil && price.IsPositive() {
		item.UnitPrice = *price
	}

	if err := l.store.PutStockItem(ctx, *item); err != nil {
		return nil, err
	}
	return item, nil
}

// ApplyWithdrawal decrements the quantity for key. Fails with
// InsufficientStockError when no matching item exists or the quantity is
// short; the check fully precedes the write.
func (l *StockLedger) ApplyWithdrawal(ctx context.Context, key ItemKey, quantity int) (*StockItem, error) {
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: fmt.Sprintf("must be positive, got %d", quantity)}
	}

	item, err := l.store.GetStockItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &InsufficientStockError{Key: key, Available: 0, Requested: quantity}
	}
	if item.Quantity < quantity {
		return nil, &InsufficientStockError{Key: key, Available: item.Quantity, Requested: quantity}
	}

	item.Quantity -= quantity
	if err := l.store.PutStockItem(ctx, *item); err != nil {
		return nil, err
	}
	return item, nil
}

// Sufficient reports whether the key holds at least quantity units, without
// mutating anything. Used by the approval sufficiency pass.
func (l *StockLedger) Sufficient(ctx context.Context, key ItemKey, quantity int) (bool, int, error) {
	item, err := l.store.GetStockItem(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if item == nil {
		return false, 0, nil
	}
	return item.Quantity >= quantity, item.Quantity, nil
}

// =============================================================================
// CENTRAL VIEW - Cross-warehouse aggregation (read-only fold)
// =============================================================================

// CentralStockItem is one row of the consolidated view: total quantity per
// (itemType, brand) across all warehouses. UnitPrice is the first price seen.
type CentralStockItem struct {
	ItemType  string
	Brand     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// TotalValue returns quantity x unit price.
func (c CentralStockItem) TotalValue() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// AggregateAcrossWarehouses folds the ledger into the central view. Rows
// appear in first-seen order. No mutation.
func (l *StockLedger) AggregateAcrossWarehouses(ctx context.Context) ([]CentralStockItem, error) {
	items, err := l.store.ListStockItems(ctx)
	if err != nil {
		return nil, err
	}

	type pairKey struct{ itemType, brand string }
	index := make(map[pairKey]int)
	var result []CentralStockItem

	for _, item := range items {
		pk := pairKey{normalize(item.ItemType), normalize(item.Brand)}
		if i, ok := index[pk]; ok {
			result[i].Quantity += item.Quantity
			continue
		}
		index[pk] = len(result)
		result = append(result, CentralStockItem{
			ItemType:  item.ItemType,
			Brand:     item.Brand,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return result, nil
}

func newStockItemID(key ItemKey) string {
	slug := func(s string) string {
		return strings.ReplaceAll(normalize(s), " ", "-")
	}
	return fmt.Sprintf("%s-%s-%s", slug(key.ItemType), slug(key.Brand), uuid.NewString()[:8])
}
