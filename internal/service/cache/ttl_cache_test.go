package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", 42, time.Minute)

	v, ok := c.Get("k")
	if !ok {
		t.Fatalf("expected hit")
	}
	if v.(int) != 42 {
		t.Fatalf("unexpected value %v", v)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry")
	}
}

func TestTTLCacheZeroTTL(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 0)

	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected zero ttl to keep the entry")
	}
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache()
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}
}
