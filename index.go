package lsmkv

import (
	"bytes"
	"errors"
	"io"
	"sort"
)

// errCorruptIndexSize is returned when the SSTable trailer's idx_size field
// is negative or larger than the file itself could possibly hold.
var errCorruptIndexSize = errors.New("corrupt or absurd index size")

// trailerWidth is the fixed width, in bytes, of the SSTable file's trailing
// idx_size field. The width never varies with the value it stores, so the
// reader can always find it by counting back from the end of the file.
const trailerWidth = 8

// IndexEntry maps a block's first key to that block's byte offset within
// the enclosing SSTable file.
type IndexEntry struct {
	FirstKey []byte
	Offset   int64
}

// IndexBlock is a sparse, ascending-by-key-and-offset index over an
// SSTable's data blocks.
type IndexBlock struct {
	Entries []IndexEntry
}

// NewIndexBlock returns an empty IndexBlock.
func NewIndexBlock() *IndexBlock {
	return &IndexBlock{Entries: make([]IndexEntry, 0)}
}

// Insert appends an entry. The caller guarantees increasing FirstKey and
// Offset.
func (idx *IndexBlock) Insert(firstKey []byte, offset int64) {
	idx.Entries = append(idx.Entries, IndexEntry{FirstKey: firstKey, Offset: offset})
}

// Lookup returns the offset of the entry with the greatest FirstKey <= key.
// ok is false if key precedes every entry (or the index is empty).
func (idx *IndexBlock) Lookup(key []byte) (offset int64, ok bool) {
	// sort.Search finds the first index i for which Entries[i].FirstKey > key;
	// the entry we want, if any, is the one just before it.
	i := sort.Search(len(idx.Entries), func(i int) bool {
		return bytes.Compare(idx.Entries[i].FirstKey, key) > 0
	})
	if i == 0 {
		return 0, false
	}
	return idx.Entries[i-1].Offset, true
}

// serialize encodes the index block body: an entry count followed by each
// entry's length-prefixed key and fixed-width offset.
func (idx *IndexBlock) serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, uint32(len(idx.Entries))); err != nil {
		return nil, err
	}
	for _, e := range idx.Entries {
		if err := writeBytesPrefixed(&buf, e.FirstKey); err != nil {
			return nil, err
		}
		if err := writeInt64(&buf, e.Offset); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func deserializeIndexBlock(raw []byte) (*IndexBlock, error) {
	r := bytes.NewReader(raw)
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	idx := &IndexBlock{Entries: make([]IndexEntry, 0, count)}
	for i := uint32(0); i < count; i++ {
		key, err := readBytesPrefixed(r)
		if err != nil {
			return nil, err
		}
		off, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		idx.Insert(key, off)
	}
	return idx, nil
}

// writeIndexBlockTo writes idx's serialized body followed by the trailer
// (the body's exact size, as a fixed-width signed int64). It returns the
// total number of bytes written (body + trailer).
func writeIndexBlockTo(w io.Writer, idx *IndexBlock) (int, error) {
	raw, err := idx.serialize()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(raw)
	if err != nil {
		return n, err
	}
	if err := writeInt64(w, int64(len(raw))); err != nil {
		return n, err
	}
	return n + trailerWidth, nil
}

// readIndexBlockFrom reconstructs the IndexBlock at the tail of f, given
// the file's total size: read the last trailerWidth bytes as idx_size, seek
// back (trailerWidth + idx_size), decode the body.
func readIndexBlockFrom(f io.ReaderAt, fileSize int64) (*IndexBlock, error) {
	if fileSize < trailerWidth {
		return nil, io.ErrUnexpectedEOF
	}
	var trailer [trailerWidth]byte
	if _, err := f.ReadAt(trailer[:], fileSize-trailerWidth); err != nil {
		return nil, err
	}
	idxSize, err := readInt64(bytes.NewReader(trailer[:]))
	if err != nil {
		return nil, err
	}
	if idxSize < 0 || idxSize > fileSize-trailerWidth {
		return nil, errCorruptIndexSize
	}

	body := make([]byte, idxSize)
	if idxSize > 0 {
		if _, err := f.ReadAt(body, fileSize-trailerWidth-idxSize); err != nil {
			return nil, err
		}
	}
	return deserializeIndexBlock(body)
}
