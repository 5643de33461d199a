package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/gleyba/test-db/internal/dberr"
	"github.com/gleyba/test-db/internal/value"
)

// errIncorrectChecksum mirrors database.errIncorrectChecksum: a stripe frame
// whose CRC doesn't match its bytes is a storage fault, never a caller
// mistake, so it is wrapped rather than returned bare.
var errIncorrectChecksum = errors.New("store: stripe frame checksum mismatch")

// writeFrame appends one record as a checksummed, snappy-compressed frame:
// [4-byte LE CRC32][1-byte key length][key bytes][uvarint payload
// length][snappy-compressed payload]. The frame is built in a scratch
// buffer first so its checksum can be computed before anything touches w,
// the same buffer-then-checksum-then-copy shape as
// stripeData.writeToWriter in the reference loader.
func writeFrame(w io.Writer, key Key, vals []value.Value) error {
	if len(key) > 255 {
		return dberr.Storagef("store: key %q exceeds the 255-byte frame limit", key)
	}
	payload := snappy.Encode(nil, encodeRow(vals))

	frame := new(bytes.Buffer)
	frame.WriteByte(byte(len(key)))
	frame.WriteString(string(key))
	putUvarint(frame, uint64(len(payload)))
	frame.Write(payload)

	checksum := crc32.ChecksumIEEE(frame.Bytes())
	var cb [4]byte
	binary.LittleEndian.PutUint32(cb[:], checksum)
	if _, err := w.Write(cb[:]); err != nil {
		return err
	}
	_, err := w.Write(frame.Bytes())
	return err
}

// readFrame reads one frame written by writeFrame from r, returning io.EOF
// (unwrapped, so callers can test it with ==) when the stream ends cleanly
// between frames.
func readFrame(r *bufio.Reader) (Key, []value.Value, error) {
	var cb [4]byte
	if _, err := io.ReadFull(r, cb[:]); err != nil {
		if err == io.EOF {
			return "", nil, io.EOF
		}
		return "", nil, dberr.Wrap(dberr.KindStorage, err, "reading stripe frame checksum")
	}
	wantChecksum := binary.LittleEndian.Uint32(cb[:])

	klen, err := r.ReadByte()
	if err != nil {
		return "", nil, dberr.Wrap(dberr.KindStorage, err, "reading stripe frame key length")
	}
	kb := make([]byte, klen)
	if _, err := io.ReadFull(r, kb); err != nil {
		return "", nil, dberr.Wrap(dberr.KindStorage, err, "reading stripe frame key")
	}

	plen, err := binary.ReadUvarint(r)
	if err != nil {
		return "", nil, dberr.Wrap(dberr.KindStorage, err, "reading stripe frame payload length")
	}
	payload := make([]byte, plen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", nil, dberr.Wrap(dberr.KindStorage, err, "reading stripe frame payload")
	}

	frame := new(bytes.Buffer)
	frame.WriteByte(klen)
	frame.Write(kb)
	putUvarint(frame, plen)
	frame.Write(payload)
	if crc32.ChecksumIEEE(frame.Bytes()) != wantChecksum {
		return "", nil, dberr.Wrap(dberr.KindStorage, errIncorrectChecksum, "stripe frame")
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return "", nil, dberr.Wrap(dberr.KindStorage, err, "inflating stripe frame payload")
	}
	vals, err := decodeRow(raw)
	if err != nil {
		return "", nil, err
	}
	return Key(kb), vals, nil
}

// stripeWriter buffers writes to one stripe file via a bufio.Writer
// wrapped around the underlying os.File.
type stripeWriter struct {
	f  *os.File
	bw *bufio.Writer
}

func createStripe(path string) (*stripeWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "creating stripe file %s", path)
	}
	return &stripeWriter{f: f, bw: bufio.NewWriter(f)}, nil
}

func (sw *stripeWriter) write(key Key, vals []value.Value) error {
	return writeFrame(sw.bw, key, vals)
}

func (sw *stripeWriter) close() error {
	if err := sw.bw.Flush(); err != nil {
		sw.f.Close()
		return dberr.Wrap(dberr.KindStorage, err, "flushing stripe file")
	}
	return sw.f.Close()
}

// stripeReader sequentially reads every frame of one stripe file.
type stripeReader struct {
	f *os.File
	r *bufio.Reader
}

func openStripe(path string) (*stripeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindStorage, err, "opening stripe file %s", path)
	}
	return &stripeReader{f: f, r: bufio.NewReader(f)}, nil
}

func (sr *stripeReader) next() (Key, []value.Value, error) {
	return readFrame(sr.r)
}

func (sr *stripeReader) close() error {
	return sr.f.Close()
}
