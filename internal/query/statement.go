// Package query wraps github.com/freeeve/machparse, narrowing its general,
// multi-dialect AST down to this system's restricted SQL subset: a single
// FROM source, an optional single equality WHERE predicate, optional GROUP
// BY / ORDER BY addressed by position or name, an optional LIMIT, and a
// projection list of *, column references, and count(*).
package query

// Table is the single FROM source.
type Table struct {
	Name  string
	Alias string
}

// ProjItemKind tags what one SELECT list entry is.
type ProjItemKind int

const (
	ProjItemStar ProjItemKind = iota
	ProjItemColumn
	ProjItemCount
)

// ProjItem is one entry of the SELECT list, before header resolution.
type ProjItem struct {
	Kind   ProjItemKind
	Column string // for ProjItemColumn
	Alias  string
}

// ByRef addresses a projection or column either by its 1-based position or
// by name; exactly one of the two is set (Position > 0 xor Name != "").
type ByRef struct {
	Position int
	Name     string
}

// OrderBy is one ORDER BY item (this subset supports exactly one).
type OrderBy struct {
	Ref  ByRef
	Desc bool
}

// Literal is a WHERE-clause literal: a bare identifier (string) or a numeric
// token, exactly as written in the query text — typing is deferred to
// value.ParseCell so WHERE literals and CSV cells share one cascade.
type Literal struct {
	IsString bool
	Text     string
}

// Selection is the single supported WHERE predicate: column = literal.
type Selection struct {
	Column  string
	Literal Literal
}

// Statement is the fully parsed, still header-unresolved form of a query.
// engine.Compile resolves it against a table's headers into a Plan.
type Statement struct {
	Table       Table
	Projections []ProjItem
	GroupBy     *ByRef
	OrderBy     *OrderBy
	Where       *Selection
	Limit       *int
}
