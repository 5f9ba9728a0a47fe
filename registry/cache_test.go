package registry

import (
	"fmt"
	"testing"
)

func TestLookupCache_InsertionOrderTrim(t *testing.T) {
	c := newLookupCache[int]()
	for i := 0; i < 30; i++ {
		c.Put(fmt.Sprintf("key%02d", i), i)
	}
	if c.Len() != 30 {
		t.Fatalf("Len() = %d, want 30", c.Len())
	}

	dropped := c.TrimOldest(0.1)
	if dropped != 3 {
		t.Fatalf("TrimOldest(0.1) dropped %d, want 3", dropped)
	}
	// the oldest entries went first
	for i := 0; i < 3; i++ {
		if _, ok := c.Get(fmt.Sprintf("key%02d", i)); ok {
			t.Errorf("key%02d still present after trim", i)
		}
	}
	if _, ok := c.Get("key03"); !ok {
		t.Error("key03 should have survived the trim")
	}
}

func TestLookupCache_OverwriteKeepsPosition(t *testing.T) {
	c := newLookupCache[string]()
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("c", "3")
	// overwriting must not move the key to the back
	c.Put("a", "updated")

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	c.TrimOldest(0.34)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted as the oldest entry")
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Errorf("Get(b) = %q, %v, want 2, true", v, ok)
	}
}

func TestLookupCache_TrimMinimumOne(t *testing.T) {
	c := newLookupCache[int]()
	c.Put("only", 1)
	if dropped := c.TrimOldest(0.1); dropped != 1 {
		t.Errorf("TrimOldest on a single entry dropped %d, want 1", dropped)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after trim, want 0", c.Len())
	}
}

func TestLookupCache_Clear(t *testing.T) {
	c := newLookupCache[int]()
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if dropped := c.TrimOldest(1); dropped != 0 {
		t.Errorf("TrimOldest on empty cache dropped %d, want 0", dropped)
	}
}
