/*
report.go - Aggregation over the transaction log for summary reporting

PURPOSE:
  Read-only folds over the log (and proposals) that feed the export
  collaborators: flat history rows, per-actor and per-department
  withdrawal summaries, monthly flow totals, proposal status counts, and
  top-withdrawn rankings.

FILTERING:
  ReportFilter selects by calendar month and/or year; the zero value is a
  wildcard ("all"). Filters apply to entry timestamps.

GROUPING RULES:
  - Summaries cover Withdrawal entries only.
  - Actor summaries group by (actor name, warehouse).
  - Department summaries group by (department, warehouse) and exclude the
    reserved "Admin" actor.
  - Items inside a group keep first-seen order, accumulate quantity, and
    track the latest timestamp per (itemType, brand).
  - Group ordering is unspecified; consumers must not depend on it.

SEE ALSO:
  - stockcard.go: The per-item reconstruction view
*/
package inventory

import (
	"context"
	"sort"
	"time"
)

// =============================================================================
// FILTER
// =============================================================================

// ReportFilter selects entries by calendar month/year. Zero fields are
// wildcards.
type ReportFilter struct {
	Month time.Month // 0 = all months
	Year  int        // 0 = all years
}

// Matches reports whether t passes the filter.
func (f ReportFilter) Matches(t time.Time) bool {
	if f.Month != 0 && t.Month() != f.Month {
		return false
	}
	if f.Year != 0 && t.Year() != f.Year {
		return false
	}
	return true
}

// =============================================================================
// REPORTER
// =============================================================================

type Reporter struct {
	store Store
}

func NewReporter(store Store) *Reporter {
	return &Reporter{store: store}
}

// =============================================================================
// FLAT HISTORY ROWS - One record per (entry, line) for export collaborators
// =============================================================================

type HistoryRow struct {
	Actor      string
	NIP        string
	Department string
	Warehouse  string
	Kind       EntryKind
	ItemType   string
	Brand      string
	Quantity   int
	OccurredAt time.Time
	Location   string
}

// HistoryRows flattens the filtered log into one row per line item,
// preserving log order.
func (r *Reporter) HistoryRows(ctx context.Context, f ReportFilter) ([]HistoryRow, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return nil, err
	}

	var rows []HistoryRow
	for _, e := range entries {
		if !f.Matches(e.OccurredAt) {
			continue
		}
		for _, li := range e.Items {
			rows = append(rows, HistoryRow{
				Actor:      e.Actor.Name,
				NIP:        e.Actor.NIP,
				Department: e.Department,
				Warehouse:  e.Warehouse,
				Kind:       e.Kind,
				ItemType:   li.ItemType,
				Brand:      li.Brand,
				Quantity:   li.Quantity,
				OccurredAt: e.OccurredAt,
				Location:   e.Location,
			})
		}
	}
	return rows, nil
}

// =============================================================================
// WITHDRAWAL SUMMARIES
// =============================================================================

// SummaryItem is a per-(itemType, brand) running total inside a group.
type SummaryItem struct {
	ItemType      string
	Brand         string
	TotalQuantity int
	LastDate      time.Time
}

// SummaryGroup is one (actor, warehouse) or (department, warehouse) rollup.
// Actor is zero-valued in department summaries.
type SummaryGroup struct {
	Actor      Actor
	Department string
	Warehouse  string
	Items      []SummaryItem
}

// SummaryByActor groups filtered withdrawals by (actor name, warehouse).
func (r *Reporter) SummaryByActor(ctx context.Context, f ReportFilter) ([]SummaryGroup, error) {
	return r.summarize(ctx, f, func(e LogEntry) (string, SummaryGroup, bool) {
		key := e.Actor.Name + "\x00" + normalize(e.Warehouse)
		return key, SummaryGroup{
			Actor:      e.Actor,
			Department: e.Department,
			Warehouse:  e.Warehouse,
		}, true
	})
}

// SummaryByDepartment groups filtered withdrawals by (department,
// warehouse), excluding the reserved Admin actor.
func (r *Reporter) SummaryByDepartment(ctx context.Context, f ReportFilter) ([]SummaryGroup, error) {
	return r.summarize(ctx, f, func(e LogEntry) (string, SummaryGroup, bool) {
		if e.Actor.Name == AdminActor || e.Department == "" {
			return "", SummaryGroup{}, false
		}
		key := e.Department + "\x00" + normalize(e.Warehouse)
		return key, SummaryGroup{
			Department: e.Department,
			Warehouse:  e.Warehouse,
		}, true
	})
}

func (r *Reporter) summarize(ctx context.Context, f ReportFilter, groupOf func(LogEntry) (string, SummaryGroup, bool)) ([]SummaryGroup, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return nil, err
	}

	type itemKey struct{ itemType, brand string }
	groupIndex := make(map[string]int)
	itemIndex := make(map[string]map[itemKey]int)
	var groups []SummaryGroup

	for _, e := range entries {
		if e.Kind != KindWithdrawal || !f.Matches(e.OccurredAt) {
			continue
		}
		key, proto, ok := groupOf(e)
		if !ok {
			continue
		}

		gi, seen := groupIndex[key]
		if !seen {
			gi = len(groups)
			groupIndex[key] = gi
			itemIndex[key] = make(map[itemKey]int)
			groups = append(groups, proto)
		}

		for _, li := range e.Items {
			ik := itemKey{normalize(li.ItemType), normalize(li.Brand)}
			ii, seen := itemIndex[key][ik]
			if !seen {
				ii = len(groups[gi].Items)
				itemIndex[key][ik] = ii
				groups[gi].Items = append(groups[gi].Items, SummaryItem{
					ItemType: li.ItemType,
					Brand:    li.Brand,
					LastDate: e.OccurredAt,
				})
			}
			groups[gi].Items[ii].TotalQuantity += li.Quantity
			if e.OccurredAt.After(groups[gi].Items[ii].LastDate) {
				groups[gi].Items[ii].LastDate = e.OccurredAt
			}
		}
	}
	return groups, nil
}

// =============================================================================
// FLOW AND RANKING VIEWS
// =============================================================================

// MonthlyFlow totals additions and withdrawals per calendar month.
type MonthlyFlow struct {
	Year        int
	Month       time.Month
	Additions   int
	Withdrawals int
}

// MonthlyFlowByWarehouse folds the filtered log of one warehouse into
// chronological per-month totals.
func (r *Reporter) MonthlyFlowByWarehouse(ctx context.Context, warehouse string, f ReportFilter) ([]MonthlyFlow, error) {
	entries, err := r.store.EntriesByWarehouse(ctx, warehouse)
	if err != nil {
		return nil, err
	}

	type ym struct {
		year  int
		month time.Month
	}
	totals := make(map[ym]*MonthlyFlow)

	for _, e := range entries {
		if !f.Matches(e.OccurredAt) {
			continue
		}
		k := ym{e.OccurredAt.Year(), e.OccurredAt.Month()}
		flow, ok := totals[k]
		if !ok {
			flow = &MonthlyFlow{Year: k.year, Month: k.month}
			totals[k] = flow
		}
		if e.Kind == KindAddition {
			flow.Additions += e.TotalQuantity()
		} else {
			flow.Withdrawals += e.TotalQuantity()
		}
	}

	result := make([]MonthlyFlow, 0, len(totals))
	for _, flow := range totals {
		result = append(result, *flow)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return result, nil
}

// StatusCounts tallies resolved proposals for one warehouse.
type StatusCounts struct {
	Approved int
	Rejected int
	Pending  int
}

// ProposalStatusCounts tallies proposals for a warehouse in the filter
// window (by submission time).
func (r *Reporter) ProposalStatusCounts(ctx context.Context, warehouse string, f ReportFilter) (StatusCounts, error) {
	proposals, err := r.store.ListProposals(ctx, "")
	if err != nil {
		return StatusCounts{}, err
	}

	var counts StatusCounts
	for _, p := range proposals {
		if normalize(p.Warehouse) != normalize(warehouse) || !f.Matches(p.SubmittedAt) {
			continue
		}
		switch p.Status {
		case ProposalApproved:
			counts.Approved++
		case ProposalRejected:
			counts.Rejected++
		case ProposalPending:
			counts.Pending++
		}
	}
	return counts, nil
}

// RankedCount is one row of a ranking view.
type RankedCount struct {
	Name     string
	Quantity int
}

// TopWithdrawnItems ranks (itemType, brand) labels by withdrawn quantity,
// descending, for one warehouse.
func (r *Reporter) TopWithdrawnItems(ctx context.Context, warehouse string, f ReportFilter) ([]RankedCount, error) {
	entries, err := r.store.EntriesByWarehouse(ctx, warehouse)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var result []RankedCount
	for _, e := range entries {
		if e.Kind != KindWithdrawal || !f.Matches(e.OccurredAt) {
			continue
		}
		for _, li := range e.Items {
			label := li.Label()
			i, ok := index[label]
			if !ok {
				i = len(result)
				index[label] = i
				result = append(result, RankedCount{Name: label})
			}
			result[i].Quantity += li.Quantity
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Quantity > result[j].Quantity })
	return result, nil
}

// TopDepartments ranks departments by withdrawn quantity, descending, for
// one warehouse. The reserved Admin actor is excluded.
func (r *Reporter) TopDepartments(ctx context.Context, warehouse string, f ReportFilter) ([]RankedCount, error) {
	entries, err := r.store.EntriesByWarehouse(ctx, warehouse)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var result []RankedCount
	for _, e := range entries {
		if e.Kind != KindWithdrawal || !f.Matches(e.OccurredAt) {
			continue
		}
		if e.Actor.Name == AdminActor || e.Department == "" {
			continue
		}
		i, ok := index[e.Department]
		if !ok {
			i = len(result)
			index[e.Department] = i
			result = append(result, RankedCount{Name: e.Department})
		}
		result[i].Quantity += e.TotalQuantity()
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Quantity > result[j].Quantity })
	return result, nil
}
