package engine

import (
	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/query"
	"github.com/gleyba/test-db/internal/value"
)

// ProjectionKind tags what a resolved output column is.
type ProjectionKind int

const (
	ProjColumn ProjectionKind = iota
	ProjCount
)

// Projection is a named output column: a passthrough of an input column, or
// the Count aggregate.
type Projection struct {
	Name      string
	Kind      ProjectionKind
	ColumnIdx int // valid when Kind == ProjColumn
}

// Plan is the fully validated, header-resolved form of a query, ready to be
// wired into an operator stack by NewPipeline.
type Plan struct {
	Projections []Projection
	GroupBy     *groupPlan
	OrderBy     *orderPlan
	Selection   *SelectionFilter
	Limit       *int
}

type groupPlan struct {
	ColumnIdx int // input column the group key comes from
	ProjIdx   int // position of the designated Column projection
	Signature []groupSlot
}

type orderPlan struct {
	Source orderKeySource
	Idx    int // projection index, or raw input column index
	Desc   bool
}

// headerIndex finds a column's position by name, -1 if absent.
func headerIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Compile validates a parsed statement against a table's header row and
// produces a Plan. Every rule in this function corresponds to a named
// validation rule enforced before the query is allowed to run.
func Compile(headers []string, stmt *query.Statement) (*Plan, error) {
	projections, err := resolveProjections(headers, stmt.Projections)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Projections: projections, Limit: stmt.Limit}

	if stmt.GroupBy != nil {
		gp, err := resolveGroupBy(headers, projections, *stmt.GroupBy)
		if err != nil {
			return nil, err
		}
		plan.GroupBy = gp
	}

	if stmt.OrderBy != nil {
		op, err := resolveOrderBy(headers, projections, plan.GroupBy, *stmt.OrderBy)
		if err != nil {
			return nil, err
		}
		plan.OrderBy = op
	}

	if stmt.Where != nil {
		colIdx := headerIndex(headers, stmt.Where.Column)
		if colIdx < 0 {
			return nil, dberr.Invalid("unknown column %q in WHERE clause", stmt.Where.Column)
		}
		lit := literalToValue(stmt.Where.Literal)
		plan.Selection = NewSelectionFilter(colIdx, lit)
	}

	if stmt.Limit != nil && *stmt.Limit < 0 {
		return nil, dberr.Invalid("LIMIT must be non-negative, got %d", *stmt.Limit)
	}

	return plan, nil
}

func literalToValue(lit query.Literal) value.Value {
	if lit.IsString {
		return value.String(lit.Text)
	}
	return value.ParseCell(lit.Text)
}

func resolveProjections(headers []string, items []query.ProjItem) ([]Projection, error) {
	if len(items) == 0 {
		return nil, dberr.Invalid("query must select at least one projection")
	}

	if len(items) == 1 && items[0].Kind == query.ProjItemStar {
		if items[0].Alias != "" {
			return nil, dberr.Invalid("* cannot be aliased")
		}
		out := make([]Projection, len(headers))
		for i, h := range headers {
			out[i] = Projection{Name: h, Kind: ProjColumn, ColumnIdx: i}
		}
		return out, nil
	}

	for _, it := range items {
		if it.Kind == query.ProjItemStar {
			return nil, dberr.Invalid("* may only appear as the sole projection")
		}
	}

	out := make([]Projection, 0, len(items))
	seenCols := make(map[int]bool)
	countSeen := false
	for _, it := range items {
		switch it.Kind {
		case query.ProjItemCount:
			if countSeen {
				return nil, dberr.Invalid("at most one count(*) projection is allowed")
			}
			countSeen = true
			name := it.Alias
			if name == "" {
				name = "count"
			}
			out = append(out, Projection{Name: name, Kind: ProjCount})
		case query.ProjItemColumn:
			idx := headerIndex(headers, it.Column)
			if idx < 0 {
				return nil, dberr.Invalid("unknown column %q", it.Column)
			}
			if seenCols[idx] {
				return nil, dberr.Invalid("column %q is projected more than once (even under a different alias)", it.Column)
			}
			seenCols[idx] = true
			name := it.Alias
			if name == "" {
				name = it.Column
			}
			out = append(out, Projection{Name: name, Kind: ProjColumn, ColumnIdx: idx})
		default:
			return nil, dberr.Invalid("unsupported projection item")
		}
	}
	return out, nil
}

func resolveGroupBy(headers []string, projections []Projection, ref query.ByRef) (*groupPlan, error) {
	projIdx, err := resolveProjRef(headers, projections, ref, "GROUP BY")
	if err != nil {
		return nil, err
	}
	designated := projections[projIdx]
	if designated.Kind != ProjColumn {
		return nil, dberr.Invalid("GROUP BY must address a plain column projection, not an aggregate")
	}
	for i, p := range projections {
		if i == projIdx {
			continue
		}
		if p.Kind != ProjCount {
			return nil, dberr.Invalid("every projection other than the group key must be count(*); %q is not", p.Name)
		}
	}

	signature := make([]groupSlot, len(projections))
	for i, p := range projections {
		if i == projIdx {
			signature[i] = slotGroupKey
		} else {
			signature[i] = slotCount
		}
	}
	return &groupPlan{ColumnIdx: designated.ColumnIdx, ProjIdx: projIdx, Signature: signature}, nil
}

func resolveOrderBy(headers []string, projections []Projection, group *groupPlan, ob query.OrderBy) (*orderPlan, error) {
	// by position
	if ob.Ref.Position > 0 {
		if ob.Ref.Position > len(projections) {
			return nil, dberr.Invalid("ORDER BY position %d is out of range (%d projections)", ob.Ref.Position, len(projections))
		}
		idx := ob.Ref.Position - 1
		if err := validateOrderTarget(projections, group, idx); err != nil {
			return nil, err
		}
		return &orderPlan{Source: sourceProjection, Idx: idx, Desc: ob.Desc}, nil
	}

	// by name: first a matching projection's display name, else a projection
	// whose underlying column addresses the same header (so ORDER BY can
	// name an aliased projection by its source column), else a raw header
	// column.
	for i, p := range projections {
		if p.Name == ob.Ref.Name {
			if err := validateOrderTarget(projections, group, i); err != nil {
				return nil, err
			}
			return &orderPlan{Source: sourceProjection, Idx: i, Desc: ob.Desc}, nil
		}
	}
	rawIdx := headerIndex(headers, ob.Ref.Name)
	if rawIdx < 0 {
		return nil, dberr.Invalid("ORDER BY: no projection or column named %q", ob.Ref.Name)
	}
	for i, p := range projections {
		if p.Kind == ProjColumn && p.ColumnIdx == rawIdx {
			if err := validateOrderTarget(projections, group, i); err != nil {
				return nil, err
			}
			return &orderPlan{Source: sourceProjection, Idx: i, Desc: ob.Desc}, nil
		}
	}
	if group != nil {
		return nil, dberr.Invalid("ORDER BY a raw column is only valid for a plain columns query, not GROUP BY")
	}
	return &orderPlan{Source: sourceRawColumn, Idx: rawIdx, Desc: ob.Desc}, nil
}

// validateOrderTarget rejects ORDER BY over a Count-only query (no group),
// and rejects ORDER BY over a non-group-key, non-count projection in a
// GROUP BY query that isn't itself addressable through the aggregator.
func validateOrderTarget(projections []Projection, group *groupPlan, idx int) error {
	p := projections[idx]
	if group == nil {
		if p.Kind == ProjCount && len(projections) == 1 {
			return dberr.Invalid("ORDER BY is not valid over a bare count(*) with no GROUP BY")
		}
		return nil
	}
	if idx == group.ProjIdx || p.Kind == ProjCount {
		return nil
	}
	return dberr.Invalid("ORDER BY target %q is neither the group key nor an aggregate", p.Name)
}

// resolveProjRef resolves a GROUP BY reference to a projection index: by
// position first, else by the projection's display name (alias-or-colname),
// else falling back to a projection whose underlying header column matches
// the reference — so an aliased projection can still be named by the
// column it was aliased from.
func resolveProjRef(headers []string, projections []Projection, ref query.ByRef, clause string) (int, error) {
	if ref.Position > 0 {
		if ref.Position > len(projections) {
			return 0, dberr.Invalid("%s position %d is out of range (%d projections)", clause, ref.Position, len(projections))
		}
		return ref.Position - 1, nil
	}
	for i, p := range projections {
		if p.Name == ref.Name {
			return i, nil
		}
	}
	for i, p := range projections {
		if p.Kind == ProjColumn && headers[p.ColumnIdx] == ref.Name {
			return i, nil
		}
	}
	return 0, dberr.Invalid("%s: no projection named %q", clause, ref.Name)
}

// NewPipeline wires a compiled Plan into the concrete operator stack: a
// filter chain, one of the three base aggregators, and an optional order-by
// wrapper around it.
func NewPipeline(plan *Plan) (*Pipeline, error) {
	var limitFilter *LimitFilter
	if plan.Limit != nil {
		limitFilter = NewLimitFilter(*plan.Limit)
	}
	filter := NewFilter(limitFilter, plan.Selection)

	base, wrappable, err := buildBaseAggregator(plan)
	if err != nil {
		return nil, err
	}

	var agg Aggregator = base
	if plan.OrderBy != nil {
		if wrappable == nil {
			return nil, dberr.Invalid("ORDER BY is not valid over count(*) without GROUP BY")
		}
		agg = newOrderByAggregator(wrappable, plan.OrderBy.Source, plan.OrderBy.Idx, plan.OrderBy.Desc)
	}

	return &Pipeline{
		Filter:      filter,
		Aggregator:  agg,
		Projections: plan.Projections,
	}, nil
}

func buildBaseAggregator(plan *Plan) (Aggregator, orderCompatible, error) {
	if plan.GroupBy != nil {
		g := NewGroupByAggregator(plan.GroupBy.ColumnIdx, plan.GroupBy.Signature)
		return g, g, nil
	}
	if len(plan.Projections) == 1 && plan.Projections[0].Kind == ProjCount {
		return NewCountAggregator(), nil, nil
	}
	for _, p := range plan.Projections {
		if p.Kind == ProjCount {
			return nil, nil, dberr.Invalid("count(*) may only be combined with other projections via GROUP BY")
		}
	}
	cols := make([]int, len(plan.Projections))
	for i, p := range plan.Projections {
		cols[i] = p.ColumnIdx
	}
	c := NewColumnsAggregator(cols)
	return c, c, nil
}
