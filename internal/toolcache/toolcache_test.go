package toolcache

import (
	"testing"
	"time"
)

func TestGetPut(t *testing.T) {
	c := New(time.Hour)

	if _, ok := c.Get("ev-1", Key("get_event_details", "g-1")); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("ev-1", Key("get_event_details", "g-1"), "details")
	got, ok := c.Get("ev-1", Key("get_event_details", "g-1"))
	if !ok || got != "details" {
		t.Fatalf("expected hit with %q, got %q ok=%v", "details", got, ok)
	}

	// Same key under another event is a separate entry.
	if _, ok := c.Get("ev-2", Key("get_event_details", "g-1")); ok {
		t.Fatal("expected miss for other event")
	}
}

func TestInvalidateEventDropsWholeBucket(t *testing.T) {
	c := New(time.Hour)
	c.Put("ev-1", Key("get_event_details", "g-1"), "a")
	c.Put("ev-1", Key("get_event_details", "g-2"), "b")
	c.Put("ev-2", Key("get_event_details", "g-1"), "c")

	c.InvalidateEvent("ev-1")

	if c.Len("ev-1") != 0 {
		t.Fatalf("expected empty bucket for ev-1, got %d entries", c.Len("ev-1"))
	}
	if _, ok := c.Get("ev-2", Key("get_event_details", "g-1")); !ok {
		t.Fatal("invalidation must not cross event buckets")
	}
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Put("ev-1", "k", "v")
	if _, ok := c.Get("ev-1", "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Get("ev-1", "k"); ok {
		t.Fatal("expected miss after expiry")
	}
}

func TestDefaultTTL(t *testing.T) {
	c := New(0)
	if c.ttl != DefaultTTL {
		t.Fatalf("expected default ttl %v, got %v", DefaultTTL, c.ttl)
	}
}
