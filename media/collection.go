package media

import "sync"

// Collection is the ordered, append-only registry of gallery items and the
// single source of truth for index lookups. An index, once assigned, is
// never reused or reordered.
//
// Mutation is expected from one goroutine (the UI loop); the lock only makes
// concurrent readers safe.
type Collection struct {
	mu    sync.RWMutex
	items []Item
}

// NewCollection creates a collection seeded with items.
func NewCollection(items ...Item) *Collection {
	c := &Collection{}
	if len(items) > 0 {
		c.Append(items)
	}
	return c
}

// Len returns the number of items.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the item at index, or a *RangeError.
func (c *Collection) Get(index int) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.items) {
		return Item{}, &RangeError{Index: index, Length: len(c.items)}
	}
	return c.items[index].clone(), nil
}

// Append adds items at the end and returns their new indices. Each item's
// Index is overwritten so indices stay contiguous with the previous length.
func (c *Collection) Append(items []Item) []int {
	if len(items) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	indices := make([]int, len(items))
	for i, it := range items {
		it = it.clone()
		it.Index = len(c.items)
		indices[i] = it.Index
		c.items = append(c.items, it)
	}
	return indices
}

// Items returns a snapshot of all items in index order.
func (c *Collection) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		out[i] = it.clone()
	}
	return out
}

// Slice returns copies of the items with the given indices, skipping any
// index that is out of range.
func (c *Collection) Slice(indices []int) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(c.items) {
			out = append(out, c.items[i].clone())
		}
	}
	return out
}

// Geotagged returns the items that carry coordinates, in collection order.
// Each keeps its original Index; the position within the returned slice is
// not an index into the collection.
func (c *Collection) Geotagged() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Item
	for _, it := range c.items {
		if it.Geo != nil {
			out = append(out, it.clone())
		}
	}
	return out
}
