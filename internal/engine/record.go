// Package engine implements the query execution pipeline: the filter chain,
// the three aggregator variants, the order-by wrapper, query compilation,
// and the driver that threads a table cursor through all three.
package engine

import "github.com/gleyba/test-db/internal/value"

// RecordView is the uniform read-only interface every row-shaped thing in the
// pipeline exposes, regardless of whether it's a freshly read storage record,
// a materialized aggregator output row, or a synthesized group row.
type RecordView interface {
	Len() int
	ValueAt(i int) value.Value
}

// Row is the simplest RecordView: an owned slice of values.
type Row []value.Value

func (r Row) Len() int                  { return len(r) }
func (r Row) ValueAt(i int) value.Value { return r[i] }

// RecordIterator yields record views lazily, one at a time. Ok is false once
// the sequence is exhausted; a non-nil error aborts iteration.
type RecordIterator interface {
	Next() (rv RecordView, ok bool, err error)
}

// sliceIterator adapts a pre-materialized slice of rows into a RecordIterator
// (used by the Columns and Group-by aggregators' Iter()).
type sliceIterator struct {
	rows []RecordView
	pos  int
}

func newSliceIterator(rows []RecordView) *sliceIterator {
	return &sliceIterator{rows: rows}
}

func (it *sliceIterator) Next() (RecordView, bool, error) {
	if it.pos >= len(it.rows) {
		return nil, false, nil
	}
	rv := it.rows[it.pos]
	it.pos++
	return rv, true, nil
}

// oneShotIterator yields exactly one row then stops (used by Count).
type oneShotIterator struct {
	row  RecordView
	done bool
}

func newOneShotIterator(row RecordView) *oneShotIterator {
	return &oneShotIterator{row: row}
}

func (it *oneShotIterator) Next() (RecordView, bool, error) {
	if it.done {
		return nil, false, nil
	}
	it.done = true
	return it.row, true, nil
}
