package buffer

import (
	"github.com/gogpu/tilebuf/cache"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// Option configures a Buffer during creation.
//
// Example:
//
//	// A 256x256 RGBA buffer with its own storage
//	b, err := buffer.New(buffer.WithExtent(tile.NewRect(0, 0, 256, 256)))
//
//	// A view of the right half, shifted so it starts at x = 0
//	v, err := buffer.New(buffer.WithSource(b), buffer.WithShift(128, 0),
//	    buffer.WithExtent(tile.NewRect(0, 0, 128, 256)))
type Option func(*options)

type options struct {
	name       string
	source     *Buffer
	storage    *Storage
	cache      *cache.Cache
	extent     *tile.Rect
	abyss      *tile.Rect
	format     *pixel.Format
	shiftX     int
	shiftY     int
	tileWidth  int
	tileHeight int
	handlers   []Handler
}

func defaultOptions() options {
	return options{
		tileWidth:  DefaultTileWidth,
		tileHeight: DefaultTileHeight,
	}
}

// WithName sets a descriptive name used in logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSource makes the buffer a view of src.
func WithSource(src *Buffer) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithStorage makes the buffer a view directly onto s.
func WithStorage(s *Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithCache selects the cache for a newly allocated storage.
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithExtent sets the buffer rectangle.
func WithExtent(r tile.Rect) Option {
	return func(o *options) {
		o.extent = &r
	}
}

// WithAbyss declares the defined rectangle. A zero rectangle means the
// buffer's own extent. Without this option a view inherits its source's
// abyss.
func WithAbyss(r tile.Rect) Option {
	return func(o *options) {
		o.abyss = &r
	}
}

// WithFormat sets the buffer's default format, and the storage format when
// a storage is allocated.
func WithFormat(f pixel.Format) Option {
	return func(o *options) {
		o.format = &f
	}
}

// WithShift translates the view: buffer pixel (x, y) reads source pixel
// (x+dx, y+dy).
func WithShift(dx, dy int) Option {
	return func(o *options) {
		o.shiftX = dx
		o.shiftY = dy
	}
}

// WithTileSize sets the tile geometry of a newly allocated storage.
func WithTileSize(width, height int) Option {
	return func(o *options) {
		o.tileWidth = width
		o.tileHeight = height
	}
}

// WithHandlers installs tile handlers consulted before the source, first
// handler outermost.
func WithHandlers(h ...Handler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, h...)
	}
}
