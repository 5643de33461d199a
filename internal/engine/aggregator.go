package engine

import (
	"fmt"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/value"
)

// Aggregator is the base contract every variant satisfies.
type Aggregator interface {
	Aggregate(row RecordView) error
	Iter() RecordIterator
}

// orderCompatible is the extra contract only Columns and Group-by satisfy,
// letting the order-by wrapper address a previously-emitted row by a stable
// ordinal and read an OrderKey out of one of its projected positions. Count
// does not implement this — combining ORDER BY with a bare count(*) is a
// compile-time error.
type orderCompatible interface {
	Aggregator
	AggregateWithOrdinal(row RecordView) (ordinal int, err error)
	RowAt(ordinal int) (RecordView, error)
	OrderKeyAt(ordinal, projIdx int) (value.OrderKey, error)
}

// ColumnsAggregator appends, for every accepted row, a vector holding one
// value per projected input column, in projection order.
type ColumnsAggregator struct {
	Columns []int
	rows    [][]value.Value
}

func NewColumnsAggregator(columns []int) *ColumnsAggregator {
	return &ColumnsAggregator{Columns: columns}
}

func (a *ColumnsAggregator) Aggregate(row RecordView) error {
	_, err := a.AggregateWithOrdinal(row)
	return err
}

func (a *ColumnsAggregator) AggregateWithOrdinal(row RecordView) (int, error) {
	rec := make([]value.Value, len(a.Columns))
	for i, c := range a.Columns {
		if c >= row.Len() {
			return 0, dberr.Storagef("column index %d out of range for row of length %d", c, row.Len())
		}
		rec[i] = row.ValueAt(c)
	}
	a.rows = append(a.rows, rec)
	return len(a.rows) - 1, nil
}

func (a *ColumnsAggregator) RowAt(ordinal int) (RecordView, error) {
	if ordinal < 0 || ordinal >= len(a.rows) {
		return nil, dberr.Consistencyf("columns aggregator: ordinal %d out of range", ordinal)
	}
	return Row(a.rows[ordinal]), nil
}

func (a *ColumnsAggregator) OrderKeyAt(ordinal, projIdx int) (value.OrderKey, error) {
	row, err := a.RowAt(ordinal)
	if err != nil {
		return value.OrderKey{}, err
	}
	if projIdx < 0 || projIdx >= row.Len() {
		return value.OrderKey{}, dberr.Consistencyf("columns aggregator: projection index %d out of range", projIdx)
	}
	return row.ValueAt(projIdx).OrderKey(), nil
}

func (a *ColumnsAggregator) Iter() RecordIterator {
	rows := make([]RecordView, len(a.rows))
	for i, r := range a.rows {
		rows[i] = Row(r)
	}
	return newSliceIterator(rows)
}

// CountAggregator increments a counter per accepted row and yields exactly
// one output row holding that count.
type CountAggregator struct {
	count uint64
}

func NewCountAggregator() *CountAggregator { return &CountAggregator{} }

func (a *CountAggregator) Aggregate(RecordView) error {
	a.count++
	return nil
}

func (a *CountAggregator) Iter() RecordIterator {
	return newOneShotIterator(Row{value.UInt(a.count)})
}

// groupSlot is what a signature position carries: either the group key
// itself, or a Count sub-aggregator.
type groupSlot int

const (
	slotGroupKey groupSlot = iota
	slotCount
)

// GroupByAggregator is an insertion-ordered map from group key to a
// per-group signature of sub-aggregator state. The signature is fixed at
// compile time and mirrors projection order.
type GroupByAggregator struct {
	ColIdx    int
	Signature []groupSlot

	order []value.OrderKey
	index map[value.OrderKey]int
	// counts[g][p] is the running count for group g at signature position p
	// (meaningless, left zero, at slotGroupKey positions).
	counts [][]uint64
}

func NewGroupByAggregator(colIdx int, signature []groupSlot) *GroupByAggregator {
	return &GroupByAggregator{
		ColIdx:    colIdx,
		Signature: signature,
		index:     make(map[value.OrderKey]int),
	}
}

func (a *GroupByAggregator) Aggregate(row RecordView) error {
	_, err := a.AggregateWithOrdinal(row)
	return err
}

func (a *GroupByAggregator) AggregateWithOrdinal(row RecordView) (int, error) {
	if a.ColIdx >= row.Len() {
		return 0, dberr.Storagef("group column index %d out of range for row of length %d", a.ColIdx, row.Len())
	}
	key := row.ValueAt(a.ColIdx).OrderKey()
	ordinal, ok := a.index[key]
	if !ok {
		ordinal = len(a.order)
		a.order = append(a.order, key)
		a.index[key] = ordinal
		a.counts = append(a.counts, make([]uint64, len(a.Signature)))
	}
	for i, slot := range a.Signature {
		if slot == slotCount {
			a.counts[ordinal][i]++
		}
	}
	return ordinal, nil
}

func (a *GroupByAggregator) RowAt(ordinal int) (RecordView, error) {
	if ordinal < 0 || ordinal >= len(a.order) {
		return nil, dberr.Consistencyf("group-by aggregator: ordinal %d out of range", ordinal)
	}
	return &groupRow{agg: a, ordinal: ordinal}, nil
}

func (a *GroupByAggregator) OrderKeyAt(ordinal, projIdx int) (value.OrderKey, error) {
	row, err := a.RowAt(ordinal)
	if err != nil {
		return value.OrderKey{}, err
	}
	if projIdx < 0 || projIdx >= row.Len() {
		return value.OrderKey{}, dberr.Consistencyf("group-by aggregator: projection index %d out of range", projIdx)
	}
	return row.ValueAt(projIdx).OrderKey(), nil
}

func (a *GroupByAggregator) Iter() RecordIterator {
	rows := make([]RecordView, len(a.order))
	for i := range a.order {
		rows[i] = &groupRow{agg: a, ordinal: i}
	}
	return newSliceIterator(rows)
}

// groupRow is a synthesized RecordView over one group's output row: each
// position renders either the group key or a sub-aggregator's count.
type groupRow struct {
	agg     *GroupByAggregator
	ordinal int
}

func (r *groupRow) Len() int { return len(r.agg.Signature) }

func (r *groupRow) ValueAt(p int) value.Value {
	switch r.agg.Signature[p] {
	case slotGroupKey:
		return r.agg.order[r.ordinal].AsValue()
	case slotCount:
		return value.UInt(r.agg.counts[r.ordinal][p])
	default:
		panic(fmt.Sprintf("unknown group signature slot %v", r.agg.Signature[p]))
	}
}
