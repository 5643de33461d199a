package engine

import (
	"sort"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/value"
)

// orderKeySource tells the wrapper where to read a row's order key from: a
// resolved projection position (valid for both Columns and Group-by), or a
// raw input column (valid only for Columns, since a Group-by's only column
// references are the ones baked into its signature).
type orderKeySource int

const (
	sourceProjection orderKeySource = iota
	sourceRawColumn
)

// orderedBuckets is the sorted-key, bucketed-ordinal structure backing the
// order-by key-to-ordinals map: a sorted slice of distinct keys (found by
// binary search via sort.Search) paired with a key->ordinal-set map.
type orderedBuckets struct {
	keys    []value.OrderKey
	buckets map[value.OrderKey]map[int]struct{}
}

func newOrderedBuckets() *orderedBuckets {
	return &orderedBuckets{buckets: make(map[value.OrderKey]map[int]struct{})}
}

func (b *orderedBuckets) find(key value.OrderKey) int {
	return sort.Search(len(b.keys), func(i int) bool { return !b.keys[i].Less(key) })
}

func (b *orderedBuckets) insert(key value.OrderKey, ordinal int) error {
	set, ok := b.buckets[key]
	if !ok {
		i := b.find(key)
		b.keys = append(b.keys, value.OrderKey{})
		copy(b.keys[i+1:], b.keys[i:])
		b.keys[i] = key
		set = make(map[int]struct{})
		b.buckets[key] = set
	}
	if _, dup := set[ordinal]; dup {
		return dberr.Consistencyf("order-by: ordinal %d double-inserted under the same key", ordinal)
	}
	set[ordinal] = struct{}{}
	return nil
}

func (b *orderedBuckets) remove(key value.OrderKey, ordinal int) error {
	set, ok := b.buckets[key]
	if !ok {
		return dberr.Consistencyf("order-by: removing ordinal %d from a key with no bucket", ordinal)
	}
	if _, present := set[ordinal]; !present {
		return dberr.Consistencyf("order-by: ordinal %d not present in its recorded bucket", ordinal)
	}
	delete(set, ordinal)
	if len(set) == 0 {
		delete(b.buckets, key)
		i := b.find(key)
		// find() returns the first key >= target; since the key existed it
		// lands exactly on it.
		b.keys = append(b.keys[:i], b.keys[i+1:]...)
	}
	return nil
}

// ascending/descending traversal: each bucket's ordinal set iterates in Go's
// unspecified map order, so ordinals sharing a key have no guaranteed
// secondary ordering.
func (b *orderedBuckets) ordinalsAsc() []int {
	out := make([]int, 0, len(b.buckets))
	for _, k := range b.keys {
		for ord := range b.buckets[k] {
			out = append(out, ord)
		}
	}
	return out
}

func (b *orderedBuckets) ordinalsDesc() []int {
	out := make([]int, 0, len(b.buckets))
	for i := len(b.keys) - 1; i >= 0; i-- {
		for ord := range b.buckets[b.keys[i]] {
			out = append(out, ord)
		}
	}
	return out
}

// OrderByAggregator wraps a Columns or Group-by aggregator, buffering row
// ordinals into an externally sorted multi-map keyed by the order
// expression: an ordinal-to-key map plus a key-to-ordinals map kept in sync
// on every update.
type OrderByAggregator struct {
	inner      orderCompatible
	source     orderKeySource
	idx        int // projection index, or raw column index
	descending bool

	recValues map[int]value.OrderKey
	buckets   *orderedBuckets
}

func newOrderByAggregator(inner orderCompatible, source orderKeySource, idx int, descending bool) *OrderByAggregator {
	return &OrderByAggregator{
		inner:      inner,
		source:     source,
		idx:        idx,
		descending: descending,
		recValues:  make(map[int]value.OrderKey),
		buckets:    newOrderedBuckets(),
	}
}

func (a *OrderByAggregator) Aggregate(row RecordView) error {
	ordinal, err := a.inner.AggregateWithOrdinal(row)
	if err != nil {
		return err
	}

	var key value.OrderKey
	switch a.source {
	case sourceProjection:
		key, err = a.inner.OrderKeyAt(ordinal, a.idx)
		if err != nil {
			return err
		}
	case sourceRawColumn:
		if a.idx >= row.Len() {
			return dberr.Storagef("order-by raw column %d out of range for row of length %d", a.idx, row.Len())
		}
		key = row.ValueAt(a.idx).OrderKey()
	}

	old, existed := a.recValues[ordinal]
	if existed && old.Equal(key) {
		return nil
	}
	if existed {
		if err := a.buckets.remove(old, ordinal); err != nil {
			return err
		}
	}
	a.recValues[ordinal] = key
	return a.buckets.insert(key, ordinal)
}

func (a *OrderByAggregator) Iter() RecordIterator {
	var ordinals []int
	if a.descending {
		ordinals = a.buckets.ordinalsDesc()
	} else {
		ordinals = a.buckets.ordinalsAsc()
	}
	return &orderByIterator{inner: a.inner, ordinals: ordinals}
}

type orderByIterator struct {
	inner    orderCompatible
	ordinals []int
	pos      int
}

func (it *orderByIterator) Next() (RecordView, bool, error) {
	if it.pos >= len(it.ordinals) {
		return nil, false, nil
	}
	rv, err := it.inner.RowAt(it.ordinals[it.pos])
	it.pos++
	if err != nil {
		return nil, false, err
	}
	return rv, true, nil
}
