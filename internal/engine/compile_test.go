package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleyba/test-db/internal/query"
)

var donorsHeaders = []string{"Donor ID", "Donor City", "Donor State", "Donor Is Teacher", "Donor Zip"}

func mustCompile(t *testing.T, headers []string, stmt *query.Statement) *Plan {
	t.Helper()
	plan, err := Compile(headers, stmt)
	require.NoError(t, err, "unexpected compile error")
	return plan
}

func TestCompileStarExpandsToAllHeaders(t *testing.T) {
	stmt := &query.Statement{Projections: []query.ProjItem{{Kind: query.ProjItemStar}}}
	plan := mustCompile(t, donorsHeaders, stmt)
	require.Len(t, plan.Projections, len(donorsHeaders))
	for i, h := range donorsHeaders {
		p := plan.Projections[i]
		assert.Equalf(t, ProjColumn, p.Kind, "projection %d kind", i)
		assert.Equalf(t, i, p.ColumnIdx, "projection %d column index", i)
		assert.Equalf(t, h, p.Name, "projection %d name", i)
	}
}

func TestCompileRejectsStarWithOtherItems(t *testing.T) {
	stmt := &query.Statement{Projections: []query.ProjItem{
		{Kind: query.ProjItemStar},
		{Kind: query.ProjItemColumn, Column: "Donor ID"},
	}}
	_, err := Compile(donorsHeaders, stmt)
	assert.Error(t, err, "expected an error when * is combined with other projections")
}

func TestCompileRejectsDuplicateColumnProjection(t *testing.T) {
	stmt := &query.Statement{Projections: []query.ProjItem{
		{Kind: query.ProjItemColumn, Column: "Donor ID"},
		{Kind: query.ProjItemColumn, Column: "Donor ID", Alias: "id2"},
	}}
	_, err := Compile(donorsHeaders, stmt)
	assert.Error(t, err, "expected an error for a duplicate column projection, even under a different alias")
}

func TestCompileRejectsMultipleCounts(t *testing.T) {
	stmt := &query.Statement{Projections: []query.ProjItem{
		{Kind: query.ProjItemCount},
		{Kind: query.ProjItemCount, Alias: "c2"},
	}}
	_, err := Compile(donorsHeaders, stmt)
	assert.Error(t, err, "expected an error for more than one count(*) projection")
}

func TestCompileRejectsOrderByOverBareCount(t *testing.T) {
	stmt := &query.Statement{
		Projections: []query.ProjItem{{Kind: query.ProjItemCount}},
		OrderBy:     &query.OrderBy{Ref: query.ByRef{Position: 1}},
	}
	_, err := Compile(donorsHeaders, stmt)
	assert.Error(t, err, "expected count(*) ... ORDER BY 1 to be rejected")
}

func TestCompileRejectsGroupByOnNonGroupColumnOther(t *testing.T) {
	// SELECT a, b GROUP BY a, where b is not an aggregate
	stmt := &query.Statement{
		Projections: []query.ProjItem{
			{Kind: query.ProjItemColumn, Column: "Donor City"},
			{Kind: query.ProjItemColumn, Column: "Donor State"},
		},
		GroupBy: &query.ByRef{Name: "Donor City"},
	}
	_, err := Compile(donorsHeaders, stmt)
	assert.Error(t, err, "expected GROUP BY with a non-aggregate sibling projection to be rejected")
}

func TestCompileRejectsGroupByOnNonColumnProjection(t *testing.T) {
	stmt := &query.Statement{
		Projections: []query.ProjItem{{Kind: query.ProjItemCount}},
		GroupBy:     &query.ByRef{Position: 1},
	}
	_, err := Compile(donorsHeaders, stmt)
	assert.Error(t, err, "expected GROUP BY on a non-column (count) projection to be rejected")
}

func TestCompileGroupByPositionDesignatesGroupKey(t *testing.T) {
	stmt := &query.Statement{
		Projections: []query.ProjItem{
			{Kind: query.ProjItemCount},
			{Kind: query.ProjItemColumn, Column: "Donor State"},
		},
		GroupBy: &query.ByRef{Position: 2},
	}
	plan := mustCompile(t, donorsHeaders, stmt)
	require.NotNil(t, plan.GroupBy, "expected a group-by plan")
	assert.Equal(t, 1, plan.GroupBy.ProjIdx, "expected group key at projection index 1")
}

func TestCompileGroupByResolvesAliasedProjectionByUnderlyingColumn(t *testing.T) {
	// SELECT "Donor State" AS ds FROM donors GROUP BY "Donor State": the
	// GROUP BY reference names the underlying column, not the alias.
	stmt := &query.Statement{
		Projections: []query.ProjItem{
			{Kind: query.ProjItemColumn, Column: "Donor State", Alias: "ds"},
		},
		GroupBy: &query.ByRef{Name: "Donor State"},
	}
	plan := mustCompile(t, donorsHeaders, stmt)
	require.NotNil(t, plan.GroupBy)
	assert.Equal(t, 0, plan.GroupBy.ProjIdx, "expected the aliased projection to resolve as the group key")
}

func TestCompileOrderByResolvesAliasedGroupKeyByUnderlyingColumn(t *testing.T) {
	// SELECT "Donor State" AS ds, count(*) GROUP BY 1 ORDER BY "Donor State":
	// ORDER BY names the group key's underlying column, not its alias.
	stmt := &query.Statement{
		Projections: []query.ProjItem{
			{Kind: query.ProjItemColumn, Column: "Donor State", Alias: "ds"},
			{Kind: query.ProjItemCount},
		},
		GroupBy: &query.ByRef{Position: 1},
		OrderBy: &query.OrderBy{Ref: query.ByRef{Name: "Donor State"}},
	}
	plan := mustCompile(t, donorsHeaders, stmt)
	assert.Equal(t, sourceProjection, plan.OrderBy.Source)
	assert.Equal(t, 0, plan.OrderBy.Idx, "expected order-by to resolve to the group-key projection")
}

func TestCompileOrderByNameResolvesToRawColumnWhenNoProjectionMatches(t *testing.T) {
	stmt := &query.Statement{
		Projections: []query.ProjItem{{Kind: query.ProjItemColumn, Column: "Donor ID"}},
		OrderBy:     &query.OrderBy{Ref: query.ByRef{Name: "Donor Zip"}},
	}
	plan := mustCompile(t, donorsHeaders, stmt)
	assert.Equal(t, sourceRawColumn, plan.OrderBy.Source)
	assert.Equal(t, 4, plan.OrderBy.Idx, "expected raw column order-by on Donor Zip (idx 4)")
}

func TestCompileRejectsNegativeLimit(t *testing.T) {
	neg := -1
	stmt := &query.Statement{
		Projections: []query.ProjItem{{Kind: query.ProjItemStar}},
		Limit:       &neg,
	}
	_, err := Compile(donorsHeaders, stmt)
	assert.Error(t, err, "expected a negative LIMIT to be rejected")
}
