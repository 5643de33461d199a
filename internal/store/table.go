package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/value"
)

// DefaultMaxRowsPerStripe bounds how many records (header included) a single
// stripe file holds before a new one is rotated in, mirroring
// Config.MaxRowsPerStripe in the reference database package.
const DefaultMaxRowsPerStripe = 65536

func stripeName(n int) string {
	return fmt.Sprintf("stripe_%08d.dat", n)
}

// Writer creates a table's directory and appends its header then data rows
// as an ordered sequence of stripe files. Importing into an existing table
// name replaces it outright: CreateTable removes any prior
// directory first, mirroring CacheIncomingFile + Database.AddDataset's
// replace-not-merge contract (no partial-merge import exists).
type Writer struct {
	dir              string
	maxRowsPerStripe int
	ordinal          uint64
	stripeIdx        int
	rowsInStripe     int
	cur              *stripeWriter
}

// CreateTable drops any existing directory at dir and opens a fresh Writer.
// maxRowsPerStripe <= 0 selects DefaultMaxRowsPerStripe.
func CreateTable(dir string, maxRowsPerStripe int) (*Writer, error) {
	if maxRowsPerStripe <= 0 {
		maxRowsPerStripe = DefaultMaxRowsPerStripe
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "dropping existing table directory %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "creating table directory %s", dir)
	}
	return &Writer{dir: dir, maxRowsPerStripe: maxRowsPerStripe}, nil
}

func (w *Writer) rotate() error {
	if w.cur != nil {
		if err := w.cur.close(); err != nil {
			return err
		}
	}
	sw, err := createStripe(filepath.Join(w.dir, stripeName(w.stripeIdx)))
	if err != nil {
		return err
	}
	w.cur = sw
	w.stripeIdx++
	w.rowsInStripe = 0
	return nil
}

// WriteHeader writes the header record (ordinal/key 0). It must be called
// exactly once, before any WriteRow call.
func (w *Writer) WriteHeader(header []value.Value) error {
	if w.ordinal != 0 {
		return dberr.Consistencyf("store: WriteHeader called after rows were already written")
	}
	return w.writeNext(header)
}

// WriteRow appends the next data row, assigning it the next monotonically
// increasing key.
func (w *Writer) WriteRow(row []value.Value) error {
	if w.ordinal == 0 {
		return dberr.Consistencyf("store: WriteRow called before WriteHeader")
	}
	return w.writeNext(row)
}

func (w *Writer) writeNext(vals []value.Value) error {
	if w.cur == nil || w.rowsInStripe >= w.maxRowsPerStripe {
		if err := w.rotate(); err != nil {
			return err
		}
	}
	if err := w.cur.write(KeyFor(w.ordinal), vals); err != nil {
		return err
	}
	w.ordinal++
	w.rowsInStripe++
	return nil
}

// Close flushes and closes the active stripe file. The Writer is unusable
// afterward.
func (w *Writer) Close() error {
	if w.cur == nil {
		return nil
	}
	err := w.cur.close()
	w.cur = nil
	return err
}

// Cursor sequentially reads every record of a table, in key order, across
// its stripe files.
type Cursor struct {
	dir     string
	stripes []string
	idx     int
	cur     *stripeReader
}

// OpenTable opens dir for sequential reading. The returned cursor is
// positioned before the header record; the caller reads it with Next like
// any other record.
func OpenTable(dir string) (*Cursor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "listing table directory %s", dir)
	}
	var stripes []string
	for _, e := range entries {
		if !e.IsDir() {
			stripes = append(stripes, e.Name())
		}
	}
	sort.Strings(stripes)
	return &Cursor{dir: dir, stripes: stripes}, nil
}

// Next returns the next (key, row) pair in key order, or ok=false once the
// table is exhausted.
func (c *Cursor) Next() (Key, []value.Value, bool, error) {
	for {
		if c.cur == nil {
			if c.idx >= len(c.stripes) {
				return "", nil, false, nil
			}
			sr, err := openStripe(filepath.Join(c.dir, c.stripes[c.idx]))
			if err != nil {
				return "", nil, false, err
			}
			c.idx++
			c.cur = sr
		}
		key, vals, err := c.cur.next()
		if err != nil {
			c.cur.close()
			c.cur = nil
			if err == io.EOF {
				continue
			}
			return "", nil, false, err
		}
		return key, vals, true, nil
	}
}

// Close releases the cursor's currently open stripe file, if any.
func (c *Cursor) Close() error {
	if c.cur == nil {
		return nil
	}
	return c.cur.close()
}
