package lsmkv

import (
	"fmt"
	"testing"
)

func Test_SkipListUpsertAndSearch(t *testing.T) {
	s := newSkipList()

	s.upsert([]byte("b"), []byte("2"))
	s.upsert([]byte("a"), []byte("1"))
	s.upsert([]byte("c"), []byte("3"))

	for k, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		n := s.search([]byte(k))
		if n == nil {
			t.Fatalf("key %q not found", k)
		}
		if string(n.value) != want {
			t.Errorf("key %q: got %q, want %q", k, n.value, want)
		}
	}

	if n := s.search([]byte("missing")); n != nil {
		t.Errorf("expected miss for absent key, got %+v", n)
	}
}

func Test_SkipListUpsertOverwritesValue(t *testing.T) {
	s := newSkipList()
	s.upsert([]byte("a"), []byte("1"))
	s.upsert([]byte("a"), []byte("2"))

	n := s.search([]byte("a"))
	if n == nil || string(n.value) != "2" {
		t.Errorf("expected overwritten value 2, got %+v", n)
	}
	if s.size != 1 {
		t.Errorf("size = %d, want 1 (overwrite should not grow the list)", s.size)
	}
}

func Test_SkipListAscendIsSortedByKey(t *testing.T) {
	s := newSkipList()
	for i := 99; i >= 0; i-- {
		s.upsert([]byte(fmt.Sprintf("key-%03d", i)), []byte(fmt.Sprintf("v%d", i)))
	}

	var prev []byte
	count := 0
	s.ascend(func(key, value []byte) {
		if prev != nil && string(prev) >= string(key) {
			t.Fatalf("ascend not sorted: %q then %q", prev, key)
		}
		prev = key
		count++
	})
	if count != 100 {
		t.Errorf("visited %d nodes, want 100", count)
	}
}
