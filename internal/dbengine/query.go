package dbengine

import (
	"context"
	"time"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/engine"
	"github.com/gleyba/test-db/internal/query"
	"github.com/gleyba/test-db/internal/store"
)

// storeRowSource adapts a store.Cursor (already positioned past the header
// record) to engine.RowSource.
type storeRowSource struct {
	cur *store.Cursor
}

func (s *storeRowSource) Next() (engine.RecordView, bool, error) {
	_, vals, ok, err := s.cur.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	return engine.Row(vals), true, nil
}

// QueryResult is a completed query's CSV rendering plus the time it took to
// run: header line, data rows, and a trailing duration line are assembled
// by the caller from these fields.
type QueryResult struct {
	HeaderLine string
	Rows       []string
	Took       time.Duration
}

// Query parses, compiles, and runs sql against the named table (extracted
// from the statement's FROM clause), timing the whole run/render so the web
// layer can append the duration comment line.
func (db *Database) Query(ctx context.Context, sql string) (*QueryResult, error) {
	start := time.Now()

	stmt, err := query.Parse(sql)
	if err != nil {
		return nil, err
	}

	tm, err := db.Table(stmt.Table.Name)
	if err != nil {
		return nil, err
	}

	cur, err := store.OpenTable(db.tableDir(tm.Name))
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	// the header record (key 0) is a storage-layer concern: read and
	// discard it here, before compiling.
	_, _, ok, err := cur.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dberr.Storagef("table %q has no header record", tm.Name)
	}

	plan, err := engine.Compile(tm.Headers, stmt)
	if err != nil {
		return nil, err
	}
	pipe, err := engine.NewPipeline(plan)
	if err != nil {
		return nil, err
	}

	if err := pipe.Run(ctx, &storeRowSource{cur: cur}); err != nil {
		return nil, err
	}
	rows, err := pipe.ResultRowsCSV()
	if err != nil {
		return nil, err
	}

	res := &QueryResult{
		HeaderLine: pipe.HeadersCSV(),
		Rows:       rows,
		Took:       time.Since(start),
	}
	if db.log != nil {
		db.log.Infow("ran query", "table", tm.Name, "rows_out", len(rows), "took", res.Took)
	}
	return res, nil
}
