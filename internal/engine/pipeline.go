package engine

import (
	"context"
	"strings"

	"github.com/gleyba/test-db/internal/dberr"
)

// RowSource is the cursor abstraction Pipeline.Run reads from: plain data
// rows only. Reading the header record is a storage-layer concern — the
// caller reads it first (to compile the query against it) and hands Run a
// cursor already positioned at the first data row.
type RowSource interface {
	Next() (RecordView, bool, error)
}

// Pipeline is the allocated-once operator chain: filter, then aggregator
// (possibly order-by-wrapped).
type Pipeline struct {
	Filter      Filter
	Aggregator  Aggregator
	Projections []Projection
}

// Run drives rows from src through the filter then the aggregator: Stop
// breaks the loop, Skip continues without aggregating, Accept aggregates.
// Cancellation is checked between rows (row-granularity cooperative
// cancellation).
func (p *Pipeline) Run(ctx context.Context, src RowSource) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		res, err := p.Filter.Filter(row)
		if err != nil {
			return err
		}
		switch res {
		case Stop:
			return nil
		case Skip:
			continue
		case Accept:
			if err := p.Aggregator.Aggregate(row); err != nil {
				return err
			}
		default:
			return dberr.Consistencyf("filter returned an unknown result %v", res)
		}
	}
}

// HeadersCSV joins the projection names with commas.
func (p *Pipeline) HeadersCSV() string {
	names := make([]string, len(p.Projections))
	for i, proj := range p.Projections {
		names[i] = proj.Name
	}
	return strings.Join(names, ",")
}

// ResultRowsCSV renders the aggregator's result iterator as CSV lines
// (values comma-joined, Null rendered as empty).
func (p *Pipeline) ResultRowsCSV() ([]string, error) {
	it := p.Aggregator.Iter()
	var lines []string
	for {
		row, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return lines, nil
		}
		cells := make([]string, row.Len())
		for i := 0; i < row.Len(); i++ {
			cells[i] = row.ValueAt(i).Render()
		}
		lines = append(lines, strings.Join(cells, ","))
	}
}
