// Package csvload implements the CSV ingest path: a BOM-aware, optionally
// gzip-compressed streaming reader that turns CSV text into typed value
// rows via the same per-cell inference cascade WHERE-clause literals use.
// Compression is detected by content sniffing, not filename, and a BOM is
// skipped via a three-byte peek-and-reinject MultiReader. Scope is CSV
// only: no TSV/bzip2/snappy input, no delimiter auto-detection, no
// column-name cleanup — header names must round-trip exactly as given.
package csvload

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"io"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/value"
)

var gzipMagic = []byte{0x1f, 0x8b}

var bomBytes = []byte{0xEF, 0xBB, 0xBF}

// Reader streams typed rows out of a CSV source, sniffing before decoding:
// first gzip (by content, not extension), then BOM, then hand the rest to
// encoding/csv.
type Reader struct {
	cr     *csv.Reader
	ncols  int
	header []string
}

// Open wraps r, transparently inflating it if its first two bytes are the
// gzip magic number, then stripping a leading UTF-8 BOM if present, then
// reading and returning the header row. The header is returned as-is; the
// caller owns any further use of it.
func Open(r io.Reader) (*Reader, []string, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, nil, dberr.Wrap(dberr.KindInvalidRequest, err, "reading CSV source")
	}
	var src io.Reader = br
	if bytes.Equal(peek, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, dberr.Wrap(dberr.KindInvalidRequest, err, "opening gzip-compressed CSV source")
		}
		src = gz
	}

	src, err = skipBOM(src)
	if err != nil {
		return nil, nil, dberr.Wrap(dberr.KindInvalidRequest, err, "reading CSV source")
	}

	cr := csv.NewReader(src)
	cr.ReuseRecord = false
	cr.FieldsPerRecord = -1 // we validate column counts ourselves, below

	header, err := cr.Read()
	if err != nil {
		return nil, nil, dberr.Invalid("reading CSV header: %v", err)
	}

	return &Reader{cr: cr, ncols: len(header), header: header}, header, nil
}

// skipBOM mirrors database.skipBom: peek three bytes, and if they're not the
// UTF-8 BOM, splice them back onto the stream via a MultiReader so nothing
// is lost.
func skipBOM(r io.Reader) (io.Reader, error) {
	first := make([]byte, len(bomBytes))
	n, err := io.ReadFull(r, first)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return bytes.NewReader(first[:n]), nil
		}
		return nil, err
	}
	if bytes.Equal(first, bomBytes) {
		return r, nil
	}
	return io.MultiReader(bytes.NewReader(first[:n]), r), nil
}

// Next reads and types the next data row, or returns ok=false at EOF. A row
// whose column count doesn't match the header is an InvalidRequest error —
// CSV shape mismatches are a caller (upload) mistake, not a storage fault.
func (r *Reader) Next() (vals []value.Value, ok bool, err error) {
	rec, err := r.cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, false, nil
		}
		return nil, false, dberr.Invalid("reading CSV row: %v", err)
	}
	if len(rec) != r.ncols {
		return nil, false, dberr.Invalid("row has %d columns, expected %d (matching the header)", len(rec), r.ncols)
	}
	vals = make([]value.Value, r.ncols)
	for i, cell := range rec {
		vals[i] = value.ParseCell(cell)
	}
	return vals, true, nil
}
