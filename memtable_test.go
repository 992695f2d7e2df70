package lsmkv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_MemtableInsertAndGet(t *testing.T) {
	m := NewMemtable()
	m.Insert([]byte("a"), []byte("1"))

	value, ok := m.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, "1", string(value))

	_, ok = m.Get([]byte("missing"))
	require.False(t, ok)
}

func Test_MemtableLastWriteWins(t *testing.T) {
	m := NewMemtable()
	m.Insert([]byte("a"), []byte("1"))
	m.Insert([]byte("a"), []byte("2"))

	value, ok := m.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, "2", string(value))
}

func Test_MemtableSizeOvercountsOnOverwrite(t *testing.T) {
	m := NewMemtable()
	m.Insert([]byte("a"), []byte("1"))
	sizeAfterFirst := m.Size
	m.Insert([]byte("a"), []byte("2"))
	require.Equal(t, sizeAfterFirst*2, m.Size, "size is a monotonic estimate, it over-counts overwrites")
}

func Test_MemtableDrainToBlocks_EmptyYieldsNoBlocks(t *testing.T) {
	m := NewMemtable()
	blocks := m.DrainToBlocks(16)
	require.Empty(t, blocks)
}

func Test_MemtableDrainToBlocks_RespectsBlockSizeBound(t *testing.T) {
	m := NewMemtable()
	for i := 0; i < 20; i++ {
		m.Insert([]byte(fmt.Sprintf("k%02d", i)), []byte(fmt.Sprintf("v%02d", i)))
	}

	const blockSize = 16
	blocks := m.DrainToBlocks(blockSize)
	require.NotEmpty(t, blocks)

	for _, b := range blocks {
		if len(b.Records) > 1 {
			require.LessOrEqual(t, b.Size, blockSize, "a multi-record block must not exceed block_size")
		}
	}
}

func Test_MemtableDrainToBlocks_OversizedRecordGetsOwnBlock(t *testing.T) {
	m := NewMemtable()
	m.Insert([]byte("small"), []byte("v"))
	m.Insert([]byte("huge"), make([]byte, 100))
	m.Insert([]byte("zzz"), []byte("v"))

	blocks := m.DrainToBlocks(10)

	found := false
	for _, b := range blocks {
		for _, rec := range b.Records {
			if string(rec.Key) == "huge" {
				require.Len(t, b.Records, 1, "an oversized record must sit alone in its block")
				found = true
			}
		}
	}
	require.True(t, found, "expected to find the oversized record in some block")
}

func Test_MemtableDrainToBlocks_AscendingOrder(t *testing.T) {
	m := NewMemtable()
	for _, k := range []string{"c", "a", "b"} {
		m.Insert([]byte(k), []byte("v"))
	}

	var keys []string
	for _, b := range m.DrainToBlocks(1024) {
		for _, rec := range b.Records {
			keys = append(keys, string(rec.Key))
		}
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)
}
