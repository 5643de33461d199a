package engine

import "github.com/gleyba/test-db/internal/value"

// FilterResult is what a Filter returns for a given row.
type FilterResult int

const (
	Accept FilterResult = iota
	Skip
	Stop
)

// Filter is a composable row predicate with an early-stop signal for LIMIT.
type Filter interface {
	Filter(row RecordView) (FilterResult, error)
}

// LimitFilter returns Stop once more than Limit rows have been offered to it.
// The counter increments on every call, including calls for rows a later
// filter in the chain will go on to Skip — see CompositeFilter's doc comment.
type LimitFilter struct {
	Limit int
	count int
}

func NewLimitFilter(limit int) *LimitFilter {
	return &LimitFilter{Limit: limit}
}

func (f *LimitFilter) Filter(row RecordView) (FilterResult, error) {
	f.count++
	if f.count > f.Limit {
		return Stop, nil
	}
	return Accept, nil
}

// SelectionFilter implements the single equality predicate col = literal.
type SelectionFilter struct {
	ColIdx int
	Key    value.OrderKey
}

func NewSelectionFilter(colIdx int, literal value.Value) *SelectionFilter {
	return &SelectionFilter{ColIdx: colIdx, Key: literal.OrderKey()}
}

func (f *SelectionFilter) Filter(row RecordView) (FilterResult, error) {
	if row.ValueAt(f.ColIdx).OrderKey().Equal(f.Key) {
		return Accept, nil
	}
	return Skip, nil
}

// CompositeFilter evaluates sub-filters in order; the first non-Accept
// result short-circuits and is returned.
//
// When both a limit and a selection are present, the compiled order is
// Composite(Limit, Selection) — LimitFilter counts every row the driver
// offers, including rows the selection later skips. This is an explicit,
// preserved behavior (not a bug): LIMIT N with a WHERE clause stops the scan
// after N rows have been *examined*, not after N rows have *matched*.
type CompositeFilter struct {
	Filters []Filter
}

func (f *CompositeFilter) Filter(row RecordView) (FilterResult, error) {
	for _, sub := range f.Filters {
		res, err := sub.Filter(row)
		if err != nil {
			return 0, err
		}
		if res != Accept {
			return res, nil
		}
	}
	return Accept, nil
}

// acceptAllFilter is used when a query has neither LIMIT nor WHERE.
type acceptAllFilter struct{}

func (acceptAllFilter) Filter(RecordView) (FilterResult, error) { return Accept, nil }

// NewFilter wires the filter chain for a query: nil/nil builds a filter that
// always accepts, either alone builds that single stage, both builds the
// Composite(Limit, Selection) chain, limit running first so it counts every
// row offered to it regardless of whether selection later rejects it.
func NewFilter(limit *LimitFilter, selection *SelectionFilter) Filter {
	switch {
	case limit != nil && selection != nil:
		return &CompositeFilter{Filters: []Filter{limit, selection}}
	case limit != nil:
		return limit
	case selection != nil:
		return selection
	default:
		return acceptAllFilter{}
	}
}
