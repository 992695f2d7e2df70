package lsmkv

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func Test_ResolveSettings_Defaults(t *testing.T) {
	s, err := resolveSettings()
	require.NoError(t, err)
	require.Equal(t, "db", s.Name)
	require.Greater(t, s.MemtableSize, uint(0))
	require.Greater(t, s.BlockSize, uint(0))
}

func Test_ResolveSettings_AppliesOptions(t *testing.T) {
	s, err := resolveSettings(
		WithName("widgets"),
		WithMemtableSize(64),
		WithBlockSize(16),
		WithWalStrictMode(true),
		WithLogLevel(log.DebugLevel),
	)
	require.NoError(t, err)
	require.Equal(t, "widgets", s.Name)
	require.EqualValues(t, 64, s.MemtableSize)
	require.EqualValues(t, 16, s.BlockSize)
	require.True(t, s.WalStrictMode)
	require.Equal(t, log.DebugLevel, s.LogLevel)
}

func Test_ResolveSettings_RejectsZeroMemtableSize(t *testing.T) {
	_, err := resolveSettings(WithMemtableSize(0))
	require.Error(t, err)
	var typed *Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, KindConfig, typed.Kind)
}

func Test_ResolveSettings_RejectsZeroBlockSize(t *testing.T) {
	_, err := resolveSettings(WithBlockSize(0))
	require.Error(t, err)
}

func Test_ResolveSettings_RejectsEmptyName(t *testing.T) {
	_, err := resolveSettings(WithName(""))
	require.Error(t, err)
}
