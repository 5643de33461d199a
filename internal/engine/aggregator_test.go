package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleyba/test-db/internal/value"
)

func drain(t *testing.T, it RecordIterator) []RecordView {
	t.Helper()
	var out []RecordView
	for {
		rv, ok, err := it.Next()
		require.NoError(t, err, "iterator error")
		if !ok {
			return out
		}
		out = append(out, rv)
	}
}

func TestColumnsAggregatorIdentityProjection(t *testing.T) {
	agg := NewColumnsAggregator([]int{0, 1})
	input := []Row{
		row(value.String("a"), value.Int(1)),
		row(value.String("b"), value.Null()),
	}
	for _, r := range input {
		require.NoError(t, agg.Aggregate(r))
	}
	out := drain(t, agg.Iter())
	require.Len(t, out, len(input))
	for i, r := range input {
		for c := 0; c < r.Len(); c++ {
			assert.Truef(t, out[i].ValueAt(c).OrderKey().Equal(r.ValueAt(c).OrderKey()), "row %d cell %d mismatch", i, c)
		}
	}
}

func TestCountAggregator(t *testing.T) {
	agg := NewCountAggregator()
	for i := 0; i < 285; i++ {
		require.NoError(t, agg.Aggregate(row(value.Int(int64(i)))))
	}
	out := drain(t, agg.Iter())
	require.Len(t, out, 1, "expected exactly one output row")
	assert.EqualValues(t, 285, out[0].ValueAt(0).U)
}

func TestGroupByInsertionOrderAndCounts(t *testing.T) {
	// signature: [group key, count]
	agg := NewGroupByAggregator(0, []groupSlot{slotGroupKey, slotCount})
	states := []string{"CA", "TX", "CA", "NY", "TX", "CA"}
	for _, s := range states {
		require.NoError(t, agg.Aggregate(row(value.String(s), value.Int(0))))
	}
	out := drain(t, agg.Iter())
	wantOrder := []string{"CA", "TX", "NY"}
	require.Len(t, out, len(wantOrder))
	wantCounts := map[string]uint64{"CA": 3, "TX": 2, "NY": 1}
	var total uint64
	for i, name := range wantOrder {
		assert.Equalf(t, name, out[i].ValueAt(0).S, "group %d: expected first-appearance order", i)
		count := out[i].ValueAt(1).U
		assert.Equalf(t, wantCounts[name], count, "group %q count", name)
		total += count
	}
	assert.EqualValues(t, len(states), total, "sum of group counts should equal total input rows")
}

func TestGroupByRejectsOutOfRangeOrdinal(t *testing.T) {
	agg := NewGroupByAggregator(0, []groupSlot{slotGroupKey})
	_, err := agg.RowAt(0)
	assert.Error(t, err, "expected an error for an empty aggregator")
}
