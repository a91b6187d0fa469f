package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	// "b" is now least recently used.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("Size = %d", c.Size())
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", 1)
	c.Set("j", 2)
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected k to expire")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d", c.Size())
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("u1|all", 1)
	c.Set("u1|month", 2)
	c.Set("u2|all", 3)

	if n := c.DeletePrefix("u1|"); n != 2 {
		t.Fatalf("DeletePrefix = %d", n)
	}
	if _, ok := c.Get("u2|all"); !ok {
		t.Fatal("u2 entry should survive")
	}
	c.Delete("u2|all")
	if c.Size() != 0 {
		t.Fatalf("Size = %d", c.Size())
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", 1)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register("summary", c)
	if got := m.Sweep(); got["summary"] != 1 {
		t.Fatalf("Sweep = %v", got)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()

	idle := NewManager()
	idle.Stop()
}
