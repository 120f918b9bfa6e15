package cache

import (
	"testing"
	"time"
)

func TestTTLCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewTTLCache[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // touch a, making b the LRU entry
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted as least-recently-used")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a still cached")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c cached")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int](10, 10*time.Millisecond)
	c.Put("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected fresh hit")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	stats := c.Stats()
	if stats.Misses == 0 {
		t.Fatalf("expected miss to be counted")
	}
}

func TestEmbeddingCacheContentAddressed(t *testing.T) {
	ec := NewEmbeddingCache(10)
	ec.Put("hello world", "model-a", []float32{1, 2, 3})

	if v, ok := ec.Get("hello world", "model-a"); !ok || len(v) != 3 {
		t.Fatalf("expected cached embedding for same text+model")
	}
	if _, ok := ec.Get("hello world", "model-b"); ok {
		t.Fatalf("different model should be a different cache key")
	}
}

func TestIDNameMapPutAndLookupBothDirections(t *testing.T) {
	m := NewIDNameMap()
	m.Put("physics", 1)

	if id, ok := m.IDByName("physics"); !ok || id != 1 {
		t.Fatalf("expected id 1 for name physics")
	}
	if name, ok := m.NameByID(1); !ok || name != "physics" {
		t.Fatalf("expected name physics for id 1")
	}
	if _, ok := m.NameByID(99); ok {
		t.Fatalf("expected no entry for unknown id")
	}
	if m.Len() != 1 {
		t.Fatalf("expected one entry, got %d", m.Len())
	}

	stats := m.Stats()
	if stats.Hits != 2 {
		t.Fatalf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Fatalf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestIDNameMapRebuildReplacesContents(t *testing.T) {
	m := NewIDNameMap()
	m.Put("stale", 7)

	m.Rebuild(map[string]uint64{"physics": 1, "history": 2})

	if _, ok := m.IDByName("stale"); ok {
		t.Fatalf("expected rebuild to drop the stale entry")
	}
	if id, ok := m.IDByName("physics"); !ok || id != 1 {
		t.Fatalf("expected physics to resolve to id 1 after rebuild")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries after rebuild, got %d", m.Len())
	}
}
