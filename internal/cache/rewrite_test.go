package cache

import (
	"context"
	"fmt"
	"testing"
)

func TestRewriteCache_PutThenGet(t *testing.T) {
	c := New(10, nil)
	ctx := context.Background()

	c.Put(ctx, "q1", "standalone q1")

	val, ok := c.Get(ctx, "q1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if val != "standalone q1" {
		t.Errorf("expected %q, got %q", "standalone q1", val)
	}
}

func TestRewriteCache_MissReturnsFalse(t *testing.T) {
	c := New(10, nil)
	_, ok := c.Get(context.Background(), "missing")
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestRewriteCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(3, nil)
	ctx := context.Background()

	c.Put(ctx, "a", "A")
	c.Put(ctx, "b", "B")
	c.Put(ctx, "c", "C")

	// touch "a" so it becomes most-recently-used
	c.Get(ctx, "a")

	// inserting a 4th entry should evict "b", the least recently used
	c.Put(ctx, "d", "D")

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if _, ok := c.Get(ctx, "d"); !ok {
		t.Error("expected d to be present")
	}
	if c.Len() != 3 {
		t.Errorf("expected cache size to stay at 3, got %d", c.Len())
	}
}

func TestRewriteCache_PutOverwritesExisting(t *testing.T) {
	c := New(10, nil)
	ctx := context.Background()

	c.Put(ctx, "q", "first")
	c.Put(ctx, "q", "second")

	val, ok := c.Get(ctx, "q")
	if !ok || val != "second" {
		t.Errorf("expected %q, got %q (ok=%v)", "second", val, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after overwrite, got %d", c.Len())
	}
}

func TestRewriteCache_DefaultsSizeWhenNonPositive(t *testing.T) {
	c := New(0, nil)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		c.Put(ctx, fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
	}
	if c.Len() != 10 {
		t.Errorf("expected default size 10, got %d entries", c.Len())
	}
}
