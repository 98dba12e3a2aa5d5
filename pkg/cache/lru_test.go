package cache

import "testing"

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU(2)
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	c.Put("c", []byte("3")) // evicts "a"

	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should have been evicted")
	}
	if v, ok := c.Get("b"); !ok || string(v) != "2" {
		t.Fatalf("b missing or wrong: %v %v", v, ok)
	}
}

func TestLRUGetPromotes(t *testing.T) {
	c := NewLRU(2)
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	c.Get("a") // promote a, b is now least-recent
	c.Put("c", []byte("3"))

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted, a was promoted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should still be present")
	}
}

func TestLRUStats(t *testing.T) {
	c := NewLRU(4)
	c.Put("a", []byte("1"))
	c.Get("a")
	c.Get("missing")
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 1/1", hits, misses)
	}
}
