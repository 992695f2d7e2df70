package lsmkv

import (
	"encoding/binary"
	"io"
)

// KVRecord is a (key, value) pair of opaque byte strings. Length, for size
// accounting purposes, is len(key)+len(value) — a looser bound than the
// exact serialized length, used everywhere flush/packing decisions are
// made. On-disk block offsets come from the byte counts the block writer
// returns, not from SerializedSize.
type KVRecord struct {
	Key   []byte
	Value []byte
}

// Len is the size-accounting length used by Block/Memtable bookkeeping.
func (r KVRecord) Len() int {
	return len(r.Key) + len(r.Value)
}

// SerializedSize is the exact number of bytes writeKVRecord will emit for r.
// It is a pure function of r's contents, so offsets can be computed before
// the write actually happens.
func (r KVRecord) SerializedSize() int {
	return 4 + len(r.Key) + 4 + len(r.Value)
}

// writeBytesPrefixed writes a uint32 little-endian length prefix followed by
// b's raw bytes.
func writeBytesPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

// readBytesPrefixed reads a uint32 little-endian length prefix followed by
// that many bytes.
func readBytesPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeUint32 writes v as a fixed-width little-endian uint32.
func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// readUint32 reads a fixed-width little-endian uint32.
func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// writeInt64 writes v as a fixed-width (8 byte), little-endian, signed
// integer. This exact width is what the SSTable trailer uses.
func writeInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

// readInt64 reads a fixed-width (8 byte), little-endian, signed integer.
func readInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// writeKVRecord serializes rec deterministically: same record always
// produces the same bytes.
func writeKVRecord(w io.Writer, rec KVRecord) error {
	if err := writeBytesPrefixed(w, rec.Key); err != nil {
		return err
	}
	return writeBytesPrefixed(w, rec.Value)
}

// readKVRecord deserializes one KVRecord. Returns io.EOF or
// io.ErrUnexpectedEOF when the stream ends before a full record (io.EOF
// when it ends exactly between two fields) — callers that scan a stream of
// records (WAL replay) treat both as "end of log".
func readKVRecord(r io.Reader) (KVRecord, error) {
	key, err := readBytesPrefixed(r)
	if err != nil {
		return KVRecord{}, err
	}
	value, err := readBytesPrefixed(r)
	if err != nil {
		return KVRecord{}, err
	}
	return KVRecord{Key: key, Value: value}, nil
}
