package registry

// lookupCache is an insertion-ordered map used by the registry's lookup
// caches. Go maps do not iterate in insertion order, so the order is tracked
// explicitly in a key slice; eviction drops the oldest entries in one bulk
// pass rather than maintaining LRU bookkeeping.
type lookupCache[V any] struct {
	entries map[string]V
	order   []string
}

func newLookupCache[V any]() *lookupCache[V] {
	return &lookupCache[V]{
		entries: make(map[string]V),
	}
}

func (c *lookupCache[V]) Get(key string) (V, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Put stores the value. Overwriting an existing key keeps its original
// insertion position.
func (c *lookupCache[V]) Put(key string, value V) {
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = value
}

func (c *lookupCache[V]) Len() int {
	return len(c.entries)
}

// TrimOldest removes the oldest fraction of entries in one pass and returns
// how many were dropped.
func (c *lookupCache[V]) TrimOldest(fraction float64) int {
	if fraction <= 0 || len(c.order) == 0 {
		return 0
	}
	n := int(float64(len(c.order)) * fraction)
	if n < 1 {
		n = 1
	}
	if n > len(c.order) {
		n = len(c.order)
	}
	for _, key := range c.order[:n] {
		delete(c.entries, key)
	}
	c.order = append([]string(nil), c.order[n:]...)
	return n
}

func (c *lookupCache[V]) Clear() {
	c.entries = make(map[string]V)
	c.order = nil
}
