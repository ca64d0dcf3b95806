package cache

import (
	"testing"
	"time"
)

func TestContentCacheExpiresEntries(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewContentCache(Config{TTL: time.Minute, Now: func() time.Time { return now }})

	cache.Set("k", "# report")
	if value, ok := cache.Get("k"); !ok || value != "# report" {
		t.Fatalf("expected cached value, got %q ok=%v", value, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, len=%d", cache.Len())
	}
}

func TestContentCacheEvictsOldestWhenFull(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewContentCache(Config{MaxEntries: 2, Now: func() time.Time { return now }})

	cache.Set("a", "1")
	now = now.Add(time.Second)
	cache.Set("b", "2")
	now = now.Add(time.Second)
	cache.Set("c", "3")

	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Fatalf("expected newest entry kept")
	}
}

func TestBuildKeyKeepsCase(t *testing.T) {
	if BuildKey("file", "Report.md") == BuildKey("file", "report.md") {
		t.Fatalf("expected case-sensitive keys")
	}
	if BuildKey("file", " a.md ") != BuildKey("file", "a.md") {
		t.Fatalf("expected trimmed parts")
	}
}
