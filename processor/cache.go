package processor

import (
	"sync"

	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/internal/region"
	"github.com/gogpu/tilebuf/tile"
)

// Cache pairs an output buffer with the region of it holding valid
// rendered pixels.
//
// Callbacks registered with OnComputed and OnInvalidated run synchronously
// on the goroutine that changed the region and must not call back into a
// Processor using this cache.
type Cache struct {
	buf *buffer.Buffer

	mu            sync.Mutex
	valid         *region.Region
	onComputed    []func(tile.Rect)
	onInvalidated []func(tile.Rect)
}

// NewCache creates a cache over b with nothing valid.
func NewCache(b *buffer.Buffer) *Cache {
	return &Cache{buf: b, valid: region.New()}
}

// Buffer returns the output buffer.
func (c *Cache) Buffer() *buffer.Buffer { return c.buf }

// Computed marks r valid and notifies OnComputed callbacks.
func (c *Cache) Computed(r tile.Rect) {
	if r.Empty() {
		return
	}
	c.mu.Lock()
	c.valid.Add(r)
	fns := c.onComputed
	c.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

// Invalidate removes r from the valid region and notifies OnInvalidated
// callbacks, which re-queue the area in attached processors.
func (c *Cache) Invalidate(r tile.Rect) {
	if r.Empty() {
		return
	}
	c.mu.Lock()
	c.valid.Subtract(r)
	fns := c.onInvalidated
	c.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

// OnComputed registers fn to be called with every rectangle marked valid.
func (c *Cache) OnComputed(fn func(tile.Rect)) {
	c.mu.Lock()
	c.onComputed = append(c.onComputed, fn)
	c.mu.Unlock()
}

// OnInvalidated registers fn to be called with every invalidated
// rectangle.
func (c *Cache) OnInvalidated(fn func(tile.Rect)) {
	c.mu.Lock()
	c.onInvalidated = append(c.onInvalidated, fn)
	c.mu.Unlock()
}

// IsValid reports whether every pixel of r is valid.
func (c *Cache) IsValid(r tile.Rect) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid.ContainsRect(r)
}

// ValidArea returns the number of valid pixels inside r.
func (c *Cache) ValidArea(r tile.Rect) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid.IntersectArea(r)
}

// Valid returns a copy of the valid region's rectangles.
func (c *Cache) Valid() []tile.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tile.Rect(nil), c.valid.Rects()...)
}

// validIn returns a copy of the valid region clipped to r.
func (c *Cache) validIn(r tile.Rect) *region.Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid.Intersect(r)
}
