package processor

import (
	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// Chunk area bounds in pixels.
const (
	MinChunkSize     = 8 * 8
	MaxChunkSize     = 2048 * 2048
	DefaultChunkSize = 128 * 128
)

// SinkFunc consumes the rendered target once it is fully valid.
type SinkFunc func(b *buffer.Buffer, target tile.Rect) error

// Option configures a Processor.
type Option func(*options)

type options struct {
	chunkSize int
	format    *pixel.Format
	sink      SinkFunc
}

func defaultOptions() options {
	return options{chunkSize: DefaultChunkSize}
}

// WithChunkSize sets the chunk area budget in pixels, clamped to
// [MinChunkSize, MaxChunkSize].
func WithChunkSize(area int) Option {
	return func(o *options) {
		o.chunkSize = min(max(area, MinChunkSize), MaxChunkSize)
	}
}

// WithFormat sets the format nodes render in. It defaults to the cache
// buffer's format.
func WithFormat(f pixel.Format) Option {
	return func(o *options) {
		o.format = &f
	}
}

// WithSink runs fn once after the target becomes fully valid.
func WithSink(fn SinkFunc) Option {
	return func(o *options) {
		o.sink = fn
	}
}
