// Package store implements the on-disk ordered record log: one append-only,
// key-sorted sequence of records per table, organized as a run of
// checksummed, snappy-compressed stripe files under a working directory,
// using a length-prefixed, buffer-then-checksum-then-copy frame layout.
// Keys are monotonically increasing decimal strings, the header record is
// always written first, and reimporting a table replaces it outright
// rather than merging into it.
package store

import "fmt"

// Key is a table row's ordered identifier: a fixed-width, zero-padded
// decimal string. Zero-padding makes lexicographic byte order coincide with
// numeric order, which is what lets a plain sequential stripe scan also be
// a key-ordered scan.
type Key string

// keyWidth is wide enough that no uint64 ordinal ever needs more digits.
const keyWidth = 20

// KeyFor renders ordinal as a Key. Ordinal 0 is the header record; data rows
// start at ordinal 1.
func KeyFor(ordinal uint64) Key {
	return Key(fmt.Sprintf("%0*d", keyWidth, ordinal))
}

// HeaderKey is the fixed key of the header record, the sort predecessor of
// every data row's key.
var HeaderKey = KeyFor(0)
