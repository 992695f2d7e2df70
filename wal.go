package lsmkv

import (
	"io"
	"os"
)

// WriteAheadLog is an append-only file containing a back-to-back sequence
// of serialized KVRecords, one per successful Set, in arrival order.
type WriteAheadLog struct {
	file   *os.File
	strict bool
}

// openWAL opens (creating if necessary) the WAL file at path, positioned
// for appending.
func openWAL(path string, strictMode bool) (*WriteAheadLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, ioErr("wal.open", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, ioErr("wal.open", err)
	}
	return &WriteAheadLog{file: f, strict: strictMode}, nil
}

// File returns the underlying WAL file handle.
func (w *WriteAheadLog) File() *os.File {
	return w.file
}

// Append serializes a KVRecord for (key, value) and writes it to the log.
// If strict mode is on, the write is fsynced before Append returns, giving
// the caller a durability guarantee that survives a crash immediately
// after. If the write fails partway through, the file is truncated back
// to its pre-append size so a half-written record can never corrupt a
// later replay.
func (w *WriteAheadLog) Append(key, value []byte) error {
	preSize, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return ioErr("wal.append", err)
	}

	if err := writeKVRecord(w.file, KVRecord{Key: key, Value: value}); err != nil {
		_ = w.file.Truncate(preSize)
		_, _ = w.file.Seek(preSize, io.SeekStart)
		return ioErr("wal.append", err)
	}

	if w.strict {
		if err := w.file.Sync(); err != nil {
			return ioErr("wal.sync", err)
		}
	}
	return nil
}

// Replay reconstructs a fresh Memtable from every record currently in the
// log, in order, by decoding KVRecords from offset 0 until EOF or the first
// decode error — both of which are treated as a clean end of log, not a
// fatal error. Because insert overwrites and later writes for the same key
// appear later in the log, the resulting Memtable matches the one that
// existed at crash time.
func (w *WriteAheadLog) Replay() (*Memtable, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, ioErr("wal.replay", err)
	}

	mem := NewMemtable()
	for {
		rec, err := readKVRecord(w.file)
		if err != nil {
			break
		}
		mem.Insert(rec.Key, rec.Value)
	}

	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return nil, ioErr("wal.replay", err)
	}
	return mem, nil
}

// Truncate empties the log. Called after a flush's SSTable is durable on
// disk, so the WAL no longer needs to carry data that now lives in an
// SSTable.
func (w *WriteAheadLog) Truncate() error {
	if err := w.file.Truncate(0); err != nil {
		return ioErr("wal.truncate", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return ioErr("wal.truncate", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *WriteAheadLog) Close() error {
	return ioErr("wal.close", w.file.Close())
}
