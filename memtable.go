package lsmkv

// Memtable is the in-memory ordered buffer for writes that have not yet
// been persisted into an SSTable. Size only ever grows within the lifetime
// of one Memtable — it's a conservative flush-trigger estimate, not a
// precise bytes-on-disk predictor.
type Memtable struct {
	list *skipList
	Size uint64
}

// NewMemtable returns an empty Memtable.
func NewMemtable() *Memtable {
	return &Memtable{list: newSkipList()}
}

// Insert replaces any existing entry for key and adds len(key)+len(value)
// to Size, even on overwrite — it may over-count on overwrites, accepted
// as a conservative flush trigger.
func (m *Memtable) Insert(key, value []byte) {
	m.list.upsert(key, value)
	m.Size += uint64(len(key) + len(value))
}

// Get returns the value for key, and whether it was present.
func (m *Memtable) Get(key []byte) ([]byte, bool) {
	n := m.list.search(key)
	if n == nil {
		return nil, false
	}
	return n.value, true
}

// DrainToBlocks packs every key in ascending order into Blocks, starting a
// new Block whenever adding the next record would make the current block's
// size strictly exceed blockSize. A record whose own length already exceeds
// blockSize is packed alone rather than split. An empty Memtable yields no
// blocks — a block with no first key carries nothing the index could ever
// point to, so there's nothing useful to emit.
func (m *Memtable) DrainToBlocks(blockSize uint) []*Block {
	blocks := make([]*Block, 0)
	cur := NewBlock()

	m.list.ascend(func(key, value []byte) {
		rec := KVRecord{Key: key, Value: value}
		if len(cur.Records) > 0 && cur.Size+rec.Len() > int(blockSize) {
			blocks = append(blocks, cur)
			cur = NewBlock()
		}
		cur.Insert(rec)
	})

	if len(cur.Records) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}
