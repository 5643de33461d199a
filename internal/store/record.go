package store

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/value"
)

// Value tags, one byte per cell, mirroring value.Kind's five cases.
const (
	tagNull byte = iota
	tagUInt
	tagInt
	tagFloat
	tagString
)

// encodeRow serializes vals as a self-describing tag-per-value sequence:
// a uvarint column count followed by, for each value, a one-byte kind tag
// and its payload (8 bytes for UInt/Int/Float, a uvarint length plus bytes
// for String, nothing for Null).
func encodeRow(vals []value.Value) []byte {
	buf := new(bytes.Buffer)
	putUvarint(buf, uint64(len(vals)))
	for _, v := range vals {
		switch v.Kind {
		case value.KindNull:
			buf.WriteByte(tagNull)
		case value.KindUInt:
			buf.WriteByte(tagUInt)
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], v.U)
			buf.Write(b[:])
		case value.KindInt:
			buf.WriteByte(tagInt)
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(v.I))
			buf.Write(b[:])
		case value.KindFloat:
			buf.WriteByte(tagFloat)
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.F))
			buf.Write(b[:])
		case value.KindString:
			buf.WriteByte(tagString)
			s := []byte(v.S)
			putUvarint(buf, uint64(len(s)))
			buf.Write(s)
		}
	}
	return buf.Bytes()
}

// decodeRow is encodeRow's inverse. A malformed or truncated frame yields a
// Storage error rather than a panic: frame corruption is a storage-layer
// fault, not a caller mistake.
func decodeRow(raw []byte) ([]value.Value, error) {
	r := bytes.NewReader(raw)
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "decoding record column count")
	}
	vals := make([]value.Value, n)
	for i := range vals {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, dberr.Wrap(dberr.KindStorage, err, "decoding record tag")
		}
		switch tag {
		case tagNull:
			vals[i] = value.Null()
		case tagUInt:
			var b [8]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, dberr.Wrap(dberr.KindStorage, err, "decoding uint payload")
			}
			vals[i] = value.UInt(binary.LittleEndian.Uint64(b[:]))
		case tagInt:
			var b [8]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, dberr.Wrap(dberr.KindStorage, err, "decoding int payload")
			}
			vals[i] = value.Int(int64(binary.LittleEndian.Uint64(b[:])))
		case tagFloat:
			var b [8]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, dberr.Wrap(dberr.KindStorage, err, "decoding float payload")
			}
			vals[i] = value.Float(math.Float64frombits(binary.LittleEndian.Uint64(b[:])))
		case tagString:
			slen, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, dberr.Wrap(dberr.KindStorage, err, "decoding string length")
			}
			sb := make([]byte, slen)
			if _, err := io.ReadFull(r, sb); err != nil {
				return nil, dberr.Wrap(dberr.KindStorage, err, "decoding string payload")
			}
			vals[i] = value.String(string(sb))
		default:
			return nil, dberr.Storagef("unknown record tag %d", tag)
		}
	}
	return vals, nil
}

func putUvarint(buf *bytes.Buffer, v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	buf.Write(b[:n])
}

