package lsmkv

import (
	"os"

	"github.com/bits-and-blooms/bloom/v3"
)

// SSTable is an immutable, on-disk, key-sorted file: blocks followed by an
// index block and its 8-byte trailer. The file handle, index, and bloom
// filter sidecar are all loaded lazily on first Get and cached afterward;
// the handle is reused rather than reopened, so repeated Get calls never
// leak descriptors.
type SSTable struct {
	filename     string
	file         *os.File
	idx          *IndexBlock
	filter       *bloom.BloomFilter
	filterLoaded bool
}

// newSSTable returns a handle-only SSTable; no I/O happens until Get.
func newSSTable(filename string) *SSTable {
	return &SSTable{filename: filename}
}

// File returns the SSTable's on-disk path.
func (s *SSTable) File() string {
	return s.filename
}

func (s *SSTable) ensureOpen() error {
	if s.file != nil {
		return nil
	}
	f, err := os.OpenFile(s.filename, os.O_RDONLY, 0444)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return ioErr("sstable.open", err)
	}
	s.file = f
	return nil
}

func (s *SSTable) ensureIndex() error {
	if s.idx != nil {
		return nil
	}
	info, err := s.file.Stat()
	if err != nil {
		return ioErr("sstable.stat", err)
	}
	idx, err := readIndexBlockFrom(s.file, info.Size())
	if err != nil {
		return codecErr("sstable.load_index", err)
	}
	s.idx = idx
	return nil
}

// ensureFilter loads the sidecar filter at most once. A missing or corrupt
// sidecar is not an error: it just leaves the filter nil, and Get falls
// through to the real index+block path for every key — but the load is
// never retried on later calls, same as a sidecar that did load.
func (s *SSTable) ensureFilter() {
	if s.filterLoaded {
		return
	}
	filter, err := loadBloomFilterSidecar(s.filename)
	if err == nil && filter != nil {
		s.filter = filter
	}
	s.filterLoaded = true
}

// closeIfOpen closes the cached file handle, if one was ever opened.
func (s *SSTable) closeIfOpen() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return ioErr("sstable.close", err)
}

// Get returns the value for key if present in this SSTable, ErrNotFound on
// a miss, or another error on I/O/codec failure. A non-NotFound error does
// not invalidate the file for later keys — callers are expected to keep
// consulting it.
func (s *SSTable) Get(key []byte) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	s.ensureFilter()
	if !maybeContains(s.filter, key) {
		return nil, ErrNotFound
	}

	if err := s.ensureIndex(); err != nil {
		return nil, err
	}
	offset, ok := s.idx.Lookup(key)
	if !ok {
		return nil, ErrNotFound
	}

	block, err := readBlockFrom(s.file, offset)
	if err != nil {
		return nil, codecErr("sstable.load_block", err)
	}
	value, ok := block.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

// writeSSTableFile serializes mem's contents to a new file at path: blocks
// back-to-back, then the index block, then its fixed-width trailer. It
// returns every key written, for the caller to build the sidecar bloom
// filter from.
func writeSSTableFile(path string, mem *Memtable, blockSize uint) ([][]byte, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, ioErr("sstable.create", err)
	}
	defer f.Close()

	blocks := mem.DrainToBlocks(blockSize)
	idx := NewIndexBlock()
	var offset int64
	keys := make([][]byte, 0)

	for _, b := range blocks {
		firstKey := b.FirstKey()
		if firstKey == nil {
			continue
		}
		idx.Insert(firstKey, offset)

		n, err := writeBlockTo(f, b)
		if err != nil {
			return nil, ioErr("sstable.write_block", err)
		}
		offset += int64(n)

		for _, rec := range b.Records {
			keys = append(keys, rec.Key)
		}
	}

	if _, err := writeIndexBlockTo(f, idx); err != nil {
		return nil, ioErr("sstable.write_index", err)
	}
	if err := f.Sync(); err != nil {
		return nil, ioErr("sstable.sync", err)
	}
	return keys, nil
}
