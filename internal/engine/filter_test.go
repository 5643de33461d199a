package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleyba/test-db/internal/value"
)

func row(vals ...value.Value) Row { return Row(vals) }

func TestLimitFilterCountsEveryOfferedRow(t *testing.T) {
	lf := NewLimitFilter(2)
	res, err := lf.Filter(row(value.Int(1)))
	require.NoError(t, err)
	assert.Equal(t, Accept, res, "row 1")

	res, err = lf.Filter(row(value.Int(2)))
	require.NoError(t, err)
	assert.Equal(t, Accept, res, "row 2")

	res, err = lf.Filter(row(value.Int(3)))
	require.NoError(t, err)
	assert.Equal(t, Stop, res, "row 3 should Stop")
}

func TestSelectionFilter(t *testing.T) {
	f := NewSelectionFilter(0, value.String("SF"))
	res, err := f.Filter(row(value.String("SF")))
	require.NoError(t, err)
	assert.Equal(t, Accept, res, "expected Accept for matching value")

	res, err = f.Filter(row(value.String("NYC")))
	require.NoError(t, err)
	assert.Equal(t, Skip, res, "expected Skip for non-matching value")
}

// TestLimitCountsRowsBeforeWhere locks in the documented open-question
// behavior: the composite filter runs LimitFilter first, so LIMIT counts
// every row offered to it, including ones WHERE later skips.
func TestLimitCountsRowsBeforeWhere(t *testing.T) {
	limit := NewLimitFilter(2)
	sel := NewSelectionFilter(0, value.String("SF"))
	composite := NewFilter(limit, sel)

	rows := []Row{
		row(value.String("NYC")), // offered #1, skipped by WHERE
		row(value.String("SF")),  // offered #2, matches
		row(value.String("SF")),  // offered #3 -> limit stops here
	}
	var results []FilterResult
	for _, r := range rows {
		res, err := composite.Filter(r)
		require.NoError(t, err)
		results = append(results, res)
		if res == Stop {
			break
		}
	}
	assert.Equal(t, []FilterResult{Skip, Accept, Stop}, results)
}

func TestNewFilterAcceptsAllWhenNoClauses(t *testing.T) {
	f := NewFilter(nil, nil)
	res, err := f.Filter(row(value.Int(1)))
	require.NoError(t, err)
	assert.Equal(t, Accept, res, "expected always-accept filter")
}
