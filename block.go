package lsmkv

import (
	"bytes"
	"io"
	"sort"

	"github.com/golang/snappy"
)

// Block is an ordered, strictly-increasing-by-key run of KVRecords. Size is
// the running sum of each record's Len(), an estimate used for flush packing
// decisions, not the exact on-disk byte count.
type Block struct {
	Records []KVRecord
	Size    int
}

// NewBlock returns an empty Block.
func NewBlock() *Block {
	return &Block{Records: make([]KVRecord, 0)}
}

// Insert appends kv. The caller guarantees keys arrive in increasing order.
func (b *Block) Insert(kv KVRecord) {
	b.Records = append(b.Records, kv)
	b.Size += kv.Len()
}

// FirstKey returns the block's minimum key, or nil if the block is empty.
func (b *Block) FirstKey() []byte {
	if len(b.Records) == 0 {
		return nil
	}
	return b.Records[0].Key
}

// Get binary-searches Records for key. ok is false on a miss.
func (b *Block) Get(key []byte) (value []byte, ok bool) {
	i := sort.Search(len(b.Records), func(i int) bool {
		return bytes.Compare(b.Records[i].Key, key) >= 0
	})
	if i < len(b.Records) && bytes.Equal(b.Records[i].Key, key) {
		return b.Records[i].Value, true
	}
	return nil, false
}

// serialize encodes the block body (record count + records), independent of
// any on-disk framing or compression.
func (b *Block) serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, uint32(len(b.Records))); err != nil {
		return nil, err
	}
	for _, rec := range b.Records {
		if err := writeKVRecord(&buf, rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// deserializeBlock decodes a block body previously produced by serialize.
func deserializeBlock(raw []byte) (*Block, error) {
	r := bytes.NewReader(raw)
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	b := &Block{Records: make([]KVRecord, 0, count)}
	for i := uint32(0); i < count; i++ {
		rec, err := readKVRecord(r)
		if err != nil {
			return nil, err
		}
		b.Insert(rec)
	}
	return b, nil
}

// writeBlockTo compresses and writes b to w, length-prefixed by the
// compressed size. It returns the exact number of bytes written, which the
// caller uses to advance the running file offset so the index records each
// block's true starting position.
func writeBlockTo(w io.Writer, b *Block) (int, error) {
	raw, err := b.serialize()
	if err != nil {
		return 0, err
	}
	compressed := snappy.Encode(nil, raw)

	if err := writeUint32(w, uint32(len(compressed))); err != nil {
		return 0, err
	}
	n, err := w.Write(compressed)
	return 4 + n, err
}

// readBlockFrom seeks to off in f and decodes one block, undoing
// writeBlockTo's framing and compression.
func readBlockFrom(f io.ReaderAt, off int64) (*Block, error) {
	var header [4]byte
	if _, err := f.ReadAt(header[:], off); err != nil {
		return nil, err
	}
	compressedLen, err := readUint32(bytes.NewReader(header[:]))
	if err != nil {
		return nil, err
	}

	compressed := make([]byte, compressedLen)
	if compressedLen > 0 {
		if _, err := f.ReadAt(compressed, off+4); err != nil {
			return nil, err
		}
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, err
	}
	return deserializeBlock(raw)
}
