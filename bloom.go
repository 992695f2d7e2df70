package lsmkv

import (
	"os"

	"github.com/bits-and-blooms/bloom/v3"
)

// falsePositiveRate bounds the sidecar filter's false-positive probability;
// it never produces false negatives regardless of this value.
const falsePositiveRate = 0.01

// sidecarPath returns the bloom filter sidecar path for an SSTable file.
// The sidecar is purely advisory, kept outside the SSTable's own block and
// index layout, and a missing or corrupt sidecar just disables the fast
// path, it never changes the answer to Get.
func sidecarPath(sstableFile string) string {
	return sstableFile + ".bf"
}

// buildBloomFilter constructs a filter sized for the given keys and adds
// all of them. Called once per flush, from the same key set the SSTable's
// blocks are built from, so it can never miss a key that's actually present.
func buildBloomFilter(keys [][]byte) *bloom.BloomFilter {
	n := uint(len(keys))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, falsePositiveRate)
	for _, k := range keys {
		filter.Add(k)
	}
	return filter
}

// writeBloomFilterSidecar persists filter next to the SSTable file it
// belongs to. A failure here is logged and otherwise ignored by callers —
// losing the sidecar only costs a fast-path optimization, not correctness.
func writeBloomFilterSidecar(sstableFile string, filter *bloom.BloomFilter) error {
	f, err := os.OpenFile(sidecarPath(sstableFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = filter.WriteTo(f)
	return err
}

// loadBloomFilterSidecar loads the sidecar filter for an SSTable file, if
// present and well-formed. A missing file or decode error returns
// (nil, nil) — treated by the caller as "no filter available", not an
// error, since the sidecar is advisory.
func loadBloomFilterSidecar(sstableFile string) (*bloom.BloomFilter, error) {
	f, err := os.Open(sidecarPath(sstableFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, nil
	}
	return filter, nil
}

// maybeContains reports whether key might be present according to filter.
// A nil filter (none loaded) always answers true, falling through to the
// real index+block lookup.
func maybeContains(filter *bloom.BloomFilter, key []byte) bool {
	if filter == nil {
		return true
	}
	return filter.Test(key)
}
