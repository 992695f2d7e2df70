package lsmkv

import (
	log "github.com/sirupsen/logrus"
)

// Settings holds the database's tunable configuration.
type Settings struct {
	Name          string
	MemtableSize  uint
	BlockSize     uint
	WalStrictMode bool
	LogLevel      log.Level
}

// Option configures a Settings value.
type Option func(*Settings)

// WithName sets the base name used for this database's persistent files.
func WithName(name string) Option {
	return func(s *Settings) { s.Name = name }
}

// WithMemtableSize sets the flush threshold, in bytes.
func WithMemtableSize(size uint) Option {
	return func(s *Settings) { s.MemtableSize = size }
}

// WithBlockSize sets the soft upper bound on Block size during flush
// packing, in bytes.
func WithBlockSize(size uint) Option {
	return func(s *Settings) { s.BlockSize = size }
}

// WithWalStrictMode controls whether every WAL append is fsynced before
// Set returns (true), trading write throughput for the strongest crash
// guarantee, or left buffered (false). It is on by default; turning it off
// trades crash durability of the most recent writes for throughput.
func WithWalStrictMode(on bool) Option {
	return func(s *Settings) { s.WalStrictMode = on }
}

// WithLogLevel sets the database's structured logging verbosity.
func WithLogLevel(level log.Level) Option {
	return func(s *Settings) { s.LogLevel = level }
}

func defaultSettings() *Settings {
	return &Settings{
		Name:          "db",
		MemtableSize:  4 * 1024 * 1024, // 4 MB
		BlockSize:     4 * 1024,        // 4 KB
		WalStrictMode: true,
		LogLevel:      log.WarnLevel,
	}
}

// resolveSettings applies opts over the defaults and validates the result.
func resolveSettings(opts ...Option) (*Settings, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	if s.Name == "" {
		return nil, configErr("config.validate", "name must not be empty")
	}
	if s.MemtableSize == 0 {
		return nil, configErr("config.validate", "memtable_size must be greater than zero")
	}
	if s.BlockSize == 0 {
		return nil, configErr("config.validate", "block_size must be greater than zero")
	}
	return s, nil
}
