/*
stockcard.go - Point-in-time ledger reconstruction (the stock card)

PURPOSE:
  Rebuilds, from the transaction log alone, what a warehouse's stock for
  an item looked like over a reporting window: an opening balance carried
  in from before the window, then a running balance across every in-period
  movement. This is the audit view; the live stock ledger is never
  consulted for balances here.

ALGORITHM (per item key):
  1. Collect every log line touching (warehouse, itemType, brand) across
     all time; stable-sort ascending by timestamp so insertion order
     breaks ties.
  2. Opening balance = signed sum of lines strictly before the window.
  3. If the opening balance is non-zero, emit a synthetic "Opening
     Balance" row dated at the window start.
  4. Walk the in-period lines, maintaining the running balance. The
     globally-first addition ever recorded for the key is labeled
     "Opening Stock"; later additions "Purchase"; withdrawals
     "Usage by <department>".
  5. A key with zero opening balance and no in-period lines is omitted
     entirely.

DIVERGENCE:
  An item pre-seeded into the live ledger with no originating log entry
  will replay to a different balance. The stock card does not reconcile
  against the live ledger; reconcile.go flags such anomalies.

SEE ALSO:
  - reconcile.go: Replay-identity check
  - report.go: Aggregation over the same log
*/
package inventory

import (
	"context"
	"sort"
	"time"
)

// =============================================================================
// STOCK CARD ROWS
// =============================================================================

// Row descriptions. Usage rows carry "Usage by <department>".
const (
	DescOpeningBalance = "Opening Balance"
	DescOpeningStock   = "Opening Stock"
	DescPurchase       = "Purchase"
	descUsagePrefix    = "Usage by "
)

// StockCardRow is one line of the reconstruction report.
type StockCardRow struct {
	Date           time.Time
	ItemLabel      string
	Description    string
	StockIn        int
	StockOut       int
	RunningBalance int
}

// =============================================================================
// STOCK CARD BUILDER
// =============================================================================

type StockCardBuilder struct {
	store Store
}

func NewStockCardBuilder(store Store) *StockCardBuilder {
	return &StockCardBuilder{store: store}
}

// movement is one log line flattened with its entry metadata, in log order.
type movement struct {
	entryID    EntryID
	occurredAt time.Time
	kind       EntryKind
	department string
	line       LineItem
}

// Build reconstructs the stock card for every item key ever seen in the
// warehouse (live ledger keys plus log keys), item groups ordered by label.
func (b *StockCardBuilder) Build(ctx context.Context, warehouse string, period Period) ([]StockCardRow, error) {
	entries, err := b.store.EntriesByWarehouse(ctx, warehouse)
	if err != nil {
		return nil, err
	}
	items, err := b.store.ListStockItemsByWarehouse(ctx, warehouse)
	if err != nil {
		return nil, err
	}

	type pairKey struct{ itemType, brand string }
	labels := make(map[pairKey]string)
	for _, item := range items {
		pk := pairKey{normalize(item.ItemType), normalize(item.Brand)}
		if _, ok := labels[pk]; !ok {
			labels[pk] = item.Key().Label()
		}
	}
	for _, e := range entries {
		for _, li := range e.Items {
			pk := pairKey{normalize(li.ItemType), normalize(li.Brand)}
			if _, ok := labels[pk]; !ok {
				labels[pk] = li.Label()
			}
		}
	}

	keys := make([]pairKey, 0, len(labels))
	for pk := range labels {
		keys = append(keys, pk)
	}
	sort.Slice(keys, func(i, j int) bool { return labels[keys[i]] < labels[keys[j]] })

	var rows []StockCardRow
	for _, pk := range keys {
		itemRows := buildItemCard(entries, pk.itemType, pk.brand, labels[pk], period)
		rows = append(rows, itemRows...)
	}
	return rows, nil
}

// BuildForItem reconstructs the card for a single (itemType, brand) key.
func (b *StockCardBuilder) BuildForItem(ctx context.Context, warehouse, itemType, brand string, period Period) ([]StockCardRow, error) {
	entries, err := b.store.EntriesByWarehouse(ctx, warehouse)
	if err != nil {
		return nil, err
	}
	label := ItemKey{ItemType: itemType, Brand: brand}.Label()
	return buildItemCard(entries, normalize(itemType), normalize(brand), label, period), nil
}

// buildItemCard is the per-key replay. entries must be in log order;
// itemType/brand must be normalized.
func buildItemCard(entries []LogEntry, itemType, brand, label string, period Period) []StockCardRow {
	var moves []movement
	for _, e := range entries {
		for _, li := range e.Items {
			if normalize(li.ItemType) != itemType || normalize(li.Brand) != brand {
				continue
			}
			moves = append(moves, movement{
				entryID:    e.ID,
				occurredAt: e.OccurredAt,
				kind:       e.Kind,
				department: e.Department,
				line:       li,
			})
		}
	}
	if len(moves) == 0 {
		return nil
	}

	// Stable: log order breaks timestamp ties.
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].occurredAt.Before(moves[j].occurredAt)
	})

	// The globally-first addition across all time, not just in-period.
	var firstAdditionID EntryID
	for _, m := range moves {
		if m.kind == KindAddition {
			firstAdditionID = m.entryID
			break
		}
	}

	opening := 0
	var inPeriod []movement
	for _, m := range moves {
		switch {
		case m.occurredAt.Before(period.Start):
			if m.kind == KindAddition {
				opening += m.line.Quantity
			} else {
				opening -= m.line.Quantity
			}
		case period.Contains(m.occurredAt):
			inPeriod = append(inPeriod, m)
		}
	}

	if opening == 0 && len(inPeriod) == 0 {
		return nil
	}

	var rows []StockCardRow
	balance := opening
	if opening != 0 {
		rows = append(rows, StockCardRow{
			Date:           period.Start,
			ItemLabel:      label,
			Description:    DescOpeningBalance,
			RunningBalance: opening,
		})
	}

	for _, m := range inPeriod {
		row := StockCardRow{Date: m.occurredAt, ItemLabel: label}
		if m.kind == KindAddition {
			row.StockIn = m.line.Quantity
			balance += m.line.Quantity
			if m.entryID == firstAdditionID {
				row.Description = DescOpeningStock
			} else {
				row.Description = DescPurchase
			}
		} else {
			row.StockOut = m.line.Quantity
			balance -= m.line.Quantity
			row.Description = descUsagePrefix + m.department
		}
		row.RunningBalance = balance
		rows = append(rows, row)
	}
	return rows
}
