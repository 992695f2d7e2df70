package lsmkv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Database is the storage engine's orchestrator: it routes Sets through
// the WAL and Memtable, triggers synchronous flushes, and routes Gets
// through the Memtable and then the SSTable stack, newest first.
type Database struct {
	settings   *Settings
	dataDir    string
	walDir     string
	sstableDir string

	wal *WriteAheadLog
	mem *Memtable

	// sstables is the SSTable stack, oldest first, newest last.
	sstables []*SSTable
	nextSeq  int

	logger     *log.Logger
	compactSvc *sstableCompactService
}

// Open creates or recovers a database rooted at dataDir: it replays the
// WAL into a fresh Memtable for crash recovery and scans dataDir/sstable
// for an existing SSTable stack, before accepting writes.
func Open(dataDir string, opts ...Option) (*Database, error) {
	settings, err := resolveSettings(opts...)
	if err != nil {
		return nil, err
	}

	walDir := filepath.Join(dataDir, "wal")
	sstableDir := filepath.Join(dataDir, "sstable")
	if err := os.MkdirAll(walDir, 0700); err != nil {
		return nil, ioErr("db.open", err)
	}
	if err := os.MkdirAll(sstableDir, 0700); err != nil {
		return nil, ioErr("db.open", err)
	}

	db := &Database{
		settings:   settings,
		dataDir:    dataDir,
		walDir:     walDir,
		sstableDir: sstableDir,
	}

	if err := db.setupLogging(); err != nil {
		return nil, err
	}

	walPath := filepath.Join(walDir, settings.Name+".log")
	wal, err := openWAL(walPath, settings.WalStrictMode)
	if err != nil {
		return nil, err
	}
	db.wal = wal

	mem, err := wal.Replay()
	if err != nil {
		return nil, err
	}
	db.mem = mem

	tables, nextSeq, err := recoverSSTables(sstableDir, settings.Name)
	if err != nil {
		return nil, err
	}
	db.sstables = tables
	db.nextSeq = nextSeq
	db.compactSvc = newSSTableCompactService(db)

	db.logger.WithFields(log.Fields{
		"data_dir": dataDir,
		"wal_file": db.wal.File().Name(),
		"sstables": len(db.sstables),
	}).Info("database opened")

	return db, nil
}

func (db *Database) setupLogging() error {
	logger := log.New()
	file, err := os.OpenFile(filepath.Join(db.dataDir, db.settings.Name+".engine.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return ioErr("db.setup_logging", err)
	}
	logger.SetOutput(file)
	logger.SetLevel(db.settings.LogLevel)
	db.logger = logger
	return nil
}

// sstableFilePattern is "<name>-<n>.db"; the sequence number is what keeps
// successive flushes from colliding on a shared base name.
func sstableFilePattern(dir, name string, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%d.db", name, seq))
}

// recoverSSTables scans dir for <name>-<n>.db files, sorts them by their
// sequence number ascending, and returns lazy SSTable handles in that
// order (oldest first) along with the next free sequence number.
func recoverSSTables(dir, name string) ([]*SSTable, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, ioErr("db.recover_sstables", err)
	}

	prefix := name + "-"
	type seqFile struct {
		seq  int
		path string
	}
	found := make([]seqFile, 0)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, ".db") {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimPrefix(base, prefix), ".db")
		n, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		found = append(found, seqFile{seq: n, path: filepath.Join(dir, base)})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	tables := make([]*SSTable, len(found))
	nextSeq := 0
	for i, sf := range found {
		tables[i] = newSSTable(sf.path)
		if sf.seq >= nextSeq {
			nextSeq = sf.seq + 1
		}
	}
	return tables, nextSeq, nil
}

// Set writes (key, value) durably: the WAL record is appended first, then
// — if the memtable would overflow its configured size — a synchronous
// flush happens before the new pair is finally inserted into the (possibly
// fresh) memtable. A flush truncates the WAL, so the pair is appended to the
// emptied WAL again before it goes into the fresh memtable.
func (db *Database) Set(key, value []byte) error {
	if err := db.wal.Append(key, value); err != nil {
		return err
	}

	projected := db.mem.Size + uint64(len(key)+len(value))
	if projected > uint64(db.settings.MemtableSize) {
		if err := db.flush(); err != nil {
			// The WAL already reflects the intended state; a retry or
			// restart will replay it. The memtable is left untouched so
			// the next Set attempts the flush again.
			return err
		}
		if err := db.wal.Append(key, value); err != nil {
			return err
		}
	}

	db.mem.Insert(key, value)
	return nil
}

// flush converts the current memtable into a new, immutable SSTable and
// resets the memtable. Ordering: write + fsync to a temp file, atomically
// rename, push onto the stack, then truncate the WAL — so a crash at any
// point leaves either the old WAL or the new SSTable authoritative, never
// neither.
func (db *Database) flush() error {
	finalPath := sstableFilePattern(db.sstableDir, db.settings.Name, db.nextSeq)
	tmpPath := finalPath + ".tmp"

	keys, err := writeSSTableFile(tmpPath, db.mem, db.settings.BlockSize)
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return ioErr("db.flush_rename", err)
	}

	filter := buildBloomFilter(keys)
	if err := writeBloomFilterSidecar(finalPath, filter); err != nil {
		db.logger.WithError(err).Warn("failed to write bloom filter sidecar, continuing without it")
	}

	sst := newSSTable(finalPath)
	db.sstables = append(db.sstables, sst)
	db.nextSeq++

	if err := db.wal.Truncate(); err != nil {
		return err
	}
	db.mem = NewMemtable()

	db.logger.WithFields(log.Fields{
		"file": sst.File(),
		"keys": len(keys),
	}).Info("flushed memtable to sstable")

	db.compactSvc.run()
	return nil
}

// Get returns the value for key: the memtable is checked first, then the
// SSTable stack from newest to oldest. The first hit wins; a non-NotFound
// error from any SSTable is surfaced immediately rather than skipped,
// since a corrupt block doesn't tell us whether an older table still has
// the authoritative value.
func (db *Database) Get(key []byte) ([]byte, error) {
	if value, ok := db.mem.Get(key); ok {
		return value, nil
	}

	for i := len(db.sstables) - 1; i >= 0; i-- {
		value, err := db.sstables[i].Get(key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Close releases the database's open file handles. It does not flush the
// memtable — the memtable's contribution to Get is rebuilt by WAL replay
// on the next Open.
func (db *Database) Close() error {
	var firstErr error
	if err := db.wal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, table := range db.sstables {
		if err := table.closeIfOpen(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
