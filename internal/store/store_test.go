package store

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleyba/test-db/internal/value"
)

func TestKeyForZeroPadsToPreserveByteOrder(t *testing.T) {
	assert.Lessf(t, KeyFor(5), KeyFor(10), "expected KeyFor(5) < KeyFor(10) lexicographically")
	assert.Lessf(t, KeyFor(99), KeyFor(100), "expected KeyFor(99) < KeyFor(100) lexicographically")
}

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	vals := []value.Value{value.Null(), value.UInt(42), value.Int(-7), value.Float(3.5), value.String("donor")}
	got, err := decodeRow(encodeRow(vals))
	require.NoError(t, err)
	require.Len(t, got, len(vals))
	for i := range vals {
		assert.Truef(t, got[i].OrderKey().Equal(vals[i].OrderKey()), "value %d mismatch: got %+v want %+v", i, got[i], vals[i])
	}
}

func TestWriterCursorRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "donors")
	w, err := CreateTable(dir, 3) // force multiple stripe rotations
	require.NoError(t, err, "create table")
	header := []value.Value{value.String("id"), value.String("city")}
	require.NoError(t, w.WriteHeader(header))
	rows := [][]value.Value{
		{value.Int(0), value.String("Oakland")},
		{value.Int(1), value.String("Berkeley")},
		{value.Int(2), value.String("San Francisco")},
		{value.Int(3), value.String("San Jose")},
		{value.Int(4), value.String("Fresno")},
	}
	for _, r := range rows {
		require.NoError(t, w.WriteRow(r))
	}
	require.NoError(t, w.Close())

	c, err := OpenTable(dir)
	require.NoError(t, err, "open table")
	defer c.Close()

	key, got, ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok, "expected header record")
	assert.Equal(t, HeaderKey, key)
	assert.Equal(t, "id", got[0].S)
	assert.Equal(t, "city", got[1].S)

	var seen [][]value.Value
	var lastKey Key
	for {
		key, row, ok, err := c.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		if lastKey != "" {
			assert.Greaterf(t, key, lastKey, "keys out of order")
		}
		lastKey = key
		seen = append(seen, row)
	}
	require.Len(t, seen, len(rows))
	for i, want := range rows {
		assert.Equalf(t, want[0].I, seen[i][0].I, "row %d", i)
		assert.Equalf(t, want[1].S, seen[i][1].S, "row %d", i)
	}
}

func TestWriterWriteRowBeforeHeaderIsConsistencyFault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "t")
	w, err := CreateTable(dir, 0)
	require.NoError(t, err, "create table")
	defer w.Close()
	assert.Error(t, w.WriteRow([]value.Value{value.Int(1)}), "expected an error writing a row before the header")
}

func TestCreateTableReplacesExistingContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "t")
	w1, err := CreateTable(dir, 0)
	require.NoError(t, err, "create table")
	require.NoError(t, w1.WriteHeader([]value.Value{value.String("a")}))
	require.NoError(t, w1.WriteRow([]value.Value{value.Int(1)}))
	require.NoError(t, w1.Close())

	w2, err := CreateTable(dir, 0)
	require.NoError(t, err, "re-create table")
	require.NoError(t, w2.WriteHeader([]value.Value{value.String("b")}))
	require.NoError(t, w2.Close())

	c, err := OpenTable(dir)
	require.NoError(t, err, "open table")
	defer c.Close()
	_, header, ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok, "expected a header record")
	assert.Equal(t, "b", header[0].S, "expected the replaced header 'b'")

	_, _, ok, err = c.Next()
	require.NoError(t, err)
	assert.False(t, ok, "expected no data rows after replace, the old 'a' row must not survive")
}

func TestReadFrameReturnsEOFAtCleanBoundary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stripe_00000000.dat")
	sw, err := createStripe(path)
	require.NoError(t, err, "create stripe")
	require.NoError(t, sw.write(KeyFor(0), []value.Value{value.Int(1)}))
	require.NoError(t, sw.close())

	sr, err := openStripe(path)
	require.NoError(t, err, "open stripe")
	defer sr.close()
	_, _, err = sr.next()
	require.NoError(t, err, "expected the one written frame")
	_, _, err = sr.next()
	assert.Equal(t, io.EOF, err, "expected io.EOF at the clean boundary")
}
