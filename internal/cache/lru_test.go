package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clk := newTestCache(4, time.Minute)
	c.Set("taxonomy", "v1")

	if v, ok := c.Get("taxonomy"); !ok || v != "v1" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	clk.advance(time.Minute)
	if _, ok := c.Get("taxonomy"); ok {
		t.Fatal("expected entry to expire")
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d after expiry", c.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now least recently used
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to be present", k)
		}
	}
}

func TestLRUCacheDisabled(t *testing.T) {
	c, _ := newTestCache(2, 0)
	c.Set("a", "1")
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero ttl must not cache")
	}
}

func TestLRUCacheCleanAndPurge(t *testing.T) {
	c, clk := newTestCache(8, time.Minute)
	c.Set("old", "x")
	clk.advance(30 * time.Second)
	c.Set("new", "y")
	clk.advance(45 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatal("new entry should survive cleanup")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size after Purge = %d", c.Size())
	}
}

func TestManagerStops(t *testing.T) {
	m := NewManager()
	c, _ := newTestCache(1, time.Millisecond)
	m.Register(c)
	m.StartCleanup(time.Millisecond)
	m.Stop()
}
