package query

import (
	"strconv"
	"strings"

	"github.com/freeeve/machparse"
	"github.com/freeeve/machparse/ast"
	"github.com/freeeve/machparse/token"
	"github.com/gleyba/test-db/internal/dberr"
)

// Parse parses a SQL string via machparse and narrows the result down to
// this system's restricted subset, rejecting (as InvalidRequest) anything
// broader: joins, subqueries, CTEs, HAVING, window functions, OFFSET/FETCH,
// multiple FROM sources, DISTINCT, and set operations.
func Parse(sql string) (*Statement, error) {
	stmt, err := machparse.Parse(sql)
	if err != nil {
		return nil, dberr.Invalid("SQL parse error: %v", err)
	}
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok {
		return nil, dberr.Invalid("only SELECT statements are supported")
	}
	return fromSelect(sel)
}

func fromSelect(sel *ast.SelectStmt) (*Statement, error) {
	if sel.With != nil {
		return nil, dberr.Invalid("CTEs (WITH) are not supported")
	}
	if sel.Distinct {
		return nil, dberr.Invalid("DISTINCT is not supported")
	}
	if sel.Having != nil {
		return nil, dberr.Invalid("HAVING is not supported")
	}
	if sel.Into != nil {
		return nil, dberr.Invalid("SELECT INTO is not supported")
	}
	if len(sel.WindowDefs) > 0 {
		return nil, dberr.Invalid("window functions are not supported")
	}

	table, err := fromTable(sel.From)
	if err != nil {
		return nil, err
	}

	projections, err := fromProjections(sel.Columns)
	if err != nil {
		return nil, err
	}

	out := &Statement{Table: table, Projections: projections}

	if len(sel.GroupBy) > 0 {
		if len(sel.GroupBy) > 1 {
			return nil, dberr.Invalid("GROUP BY supports exactly one expression")
		}
		ref, err := exprToRef(sel.GroupBy[0])
		if err != nil {
			return nil, err
		}
		out.GroupBy = &ref
	}

	if len(sel.OrderBy) > 0 {
		if len(sel.OrderBy) > 1 {
			return nil, dberr.Invalid("ORDER BY supports exactly one expression")
		}
		ob := sel.OrderBy[0]
		ref, err := exprToRef(ob.Expr)
		if err != nil {
			return nil, err
		}
		out.OrderBy = &OrderBy{Ref: ref, Desc: ob.Desc}
	}

	if sel.Where != nil {
		where, err := fromWhere(sel.Where)
		if err != nil {
			return nil, err
		}
		out.Where = where
	}

	if sel.Limit != nil {
		if sel.Limit.Offset != nil {
			return nil, dberr.Invalid("OFFSET is not supported")
		}
		n, err := literalInt(sel.Limit.Count)
		if err != nil {
			return nil, dberr.Invalid("LIMIT must be an integer literal: %v", err)
		}
		lim := int(n)
		out.Limit = &lim
	}

	return out, nil
}

func fromTable(te ast.TableExpr) (Table, error) {
	switch t := te.(type) {
	case *ast.AliasedTableExpr:
		name, err := fromTable(t.Expr)
		if err != nil {
			return Table{}, err
		}
		name.Alias = t.Alias
		return name, nil
	case *ast.TableName:
		return Table{Name: t.Name()}, nil
	default:
		return Table{}, dberr.Invalid("only a single table reference is supported in FROM (no joins, subqueries, or multiple sources)")
	}
}

func fromProjections(cols []ast.SelectExpr) ([]ProjItem, error) {
	out := make([]ProjItem, 0, len(cols))
	for _, c := range cols {
		switch e := c.(type) {
		case *ast.StarExpr:
			out = append(out, ProjItem{Kind: ProjItemStar})
		case *ast.AliasedExpr:
			item, err := fromExpr(e.Expr)
			if err != nil {
				return nil, err
			}
			item.Alias = e.Alias
			out = append(out, item)
		default:
			return nil, dberr.Invalid("unsupported projection expression")
		}
	}
	return out, nil
}

func fromExpr(e ast.Expr) (ProjItem, error) {
	switch v := e.(type) {
	case *ast.StarExpr:
		return ProjItem{Kind: ProjItemStar}, nil
	case *ast.ColName:
		return ProjItem{Kind: ProjItemColumn, Column: v.Name()}, nil
	case *ast.FuncExpr:
		if !strings.EqualFold(v.Name, "count") {
			return ProjItem{}, dberr.Invalid("unsupported function %q; only count(*) is supported", v.Name)
		}
		if v.Distinct || v.Over != nil || v.Filter != nil || len(v.OrderBy) > 0 {
			return ProjItem{}, dberr.Invalid("count(*) does not support DISTINCT, OVER, FILTER, or ORDER BY")
		}
		if len(v.Args) != 1 {
			return ProjItem{}, dberr.Invalid("count(*) takes exactly one argument, *")
		}
		if _, ok := v.Args[0].(*ast.StarExpr); !ok {
			return ProjItem{}, dberr.Invalid("only count(*) is supported, not count(<column>)")
		}
		return ProjItem{Kind: ProjItemCount}, nil
	default:
		return ProjItem{}, dberr.Invalid("unsupported projection expression")
	}
}

func exprToRef(e ast.Expr) (ByRef, error) {
	switch v := e.(type) {
	case *ast.Literal:
		n, err := literalInt(v)
		if err != nil {
			return ByRef{}, dberr.Invalid("GROUP BY/ORDER BY position must be an integer: %v", err)
		}
		return ByRef{Position: int(n)}, nil
	case *ast.ColName:
		return ByRef{Name: v.Name()}, nil
	default:
		return ByRef{}, dberr.Invalid("GROUP BY/ORDER BY must address a column name or a 1-based position")
	}
}

// fromWhere supports exactly one equality predicate, column on the left,
// literal on the right — matching the single concrete form the supported
// grammar allows (`<col> = <literal>`). The literal may lex either as an
// ast.Literal (a numeric token, or a single-quoted string) or, for a bare or
// double-quoted identifier-shaped token, as an ast.ColName — the spec treats
// that case as a string literal too ("a bare identifier, treated as
// string"), so it is never resolved against the table's headers.
func fromWhere(e ast.Expr) (*Selection, error) {
	bin, ok := e.(*ast.BinaryExpr)
	if !ok || bin.Op != token.EQ {
		return nil, dberr.Invalid("WHERE supports exactly one equality predicate: <col> = <literal>")
	}
	col, ok := bin.Left.(*ast.ColName)
	if !ok {
		return nil, dberr.Invalid("WHERE's left-hand side must be a column reference")
	}
	lit, err := exprToLiteral(bin.Right)
	if err != nil {
		return nil, err
	}
	return &Selection{Column: col.Name(), Literal: lit}, nil
}

func exprToLiteral(e ast.Expr) (Literal, error) {
	switch v := e.(type) {
	case *ast.Literal:
		if v.Type == ast.LiteralString {
			return Literal{IsString: true, Text: v.Value}, nil
		}
		// numeric token: typing deferred to value.ParseCell
		return Literal{IsString: false, Text: v.Value}, nil
	case *ast.ColName:
		return Literal{IsString: true, Text: v.Name()}, nil
	default:
		return Literal{}, dberr.Invalid("WHERE's right-hand side must be a literal")
	}
}

func literalInt(e ast.Expr) (int64, error) {
	lit, ok := e.(*ast.Literal)
	if !ok {
		return 0, dberr.Invalid("expected an integer literal")
	}
	return strconv.ParseInt(lit.Value, 10, 64)
}
