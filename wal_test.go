package lsmkv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestWAL(t *testing.T, strict bool) *WriteAheadLog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	wal, err := openWAL(path, strict)
	require.NoError(t, err)
	t.Cleanup(func() { wal.Close() })
	return wal
}

func Test_WALAppendAndReplay(t *testing.T) {
	wal := openTestWAL(t, true)

	require.NoError(t, wal.Append([]byte("a"), []byte("1")))
	require.NoError(t, wal.Append([]byte("b"), []byte("2")))
	require.NoError(t, wal.Append([]byte("a"), []byte("3"))) // overwrite

	mem, err := wal.Replay()
	require.NoError(t, err)

	v, ok := mem.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, "3", string(v), "later writes for the same key must win on replay")

	v, ok = mem.Get([]byte("b"))
	require.True(t, ok)
	require.Equal(t, "2", string(v))
}

func Test_WALReplay_TruncatedTrailingRecordIsTreatedAsEndOfLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	wal, err := openWAL(path, true)
	require.NoError(t, err)

	require.NoError(t, wal.Append([]byte("a"), []byte("1")))
	require.NoError(t, wal.Close())

	// append a few garbage bytes that can't decode as a full record
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	wal2, err := openWAL(path, true)
	require.NoError(t, err)
	defer wal2.Close()

	mem, err := wal2.Replay()
	require.NoError(t, err)
	v, ok := mem.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, "1", string(v))
}

func Test_WALTruncate(t *testing.T) {
	wal := openTestWAL(t, true)
	require.NoError(t, wal.Append([]byte("a"), []byte("1")))
	require.NoError(t, wal.Truncate())

	mem, err := wal.Replay()
	require.NoError(t, err)
	_, ok := mem.Get([]byte("a"))
	require.False(t, ok, "truncated WAL should replay to an empty memtable")
}

func Test_WALReplay_EmptyLog(t *testing.T) {
	wal := openTestWAL(t, false)
	mem, err := wal.Replay()
	require.NoError(t, err)
	_, ok := mem.Get([]byte("anything"))
	require.False(t, ok)
}
