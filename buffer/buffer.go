package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// liveBuffers counts buffers created and not yet closed.
var liveBuffers atomic.Int64

// Live returns the number of buffers that have been created and not
// closed. A non-zero count at shutdown indicates leaked buffers.
func Live() int64 { return liveBuffers.Load() }

// Buffer is a rectangular view onto a Storage, possibly through other
// buffers.
//
// Buffer is safe for concurrent use; concurrent writes to the same pixels
// race at tile granularity.
type Buffer struct {
	name    string
	source  tile.Source
	storage *Storage
	owns    bool

	extent tile.Rect
	abyss  tile.Rect
	format pixel.Format

	shiftX, shiftY           int
	totalShiftX, totalShiftY int

	handlers []Handler
	chain    tile.Source

	closed atomic.Bool
}

// New creates a buffer.
//
// Without WithSource or WithStorage a new storage is allocated with the
// configured tile size, format and cache. Width and height are inherited
// from the source when WithExtent is not given. The abyss is resolved as:
// unset inherits the source's abyss, a zero rectangle becomes the buffer's
// own extent, and the result is always clipped to the source's abyss.
func New(opts ...Option) (*Buffer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := &Buffer{
		name:     o.name,
		shiftX:   o.shiftX,
		shiftY:   o.shiftY,
		handlers: o.handlers,
	}

	var srcExtent, srcAbyss tile.Rect
	bounded := true
	switch {
	case o.source != nil:
		p := o.source
		if p.closed.Load() {
			return nil, fmt.Errorf("buffer: source %q is closed", p.name)
		}
		b.source = p
		b.storage = p.storage
		b.totalShiftX = p.totalShiftX + o.shiftX
		b.totalShiftY = p.totalShiftY + o.shiftY
		b.format = p.format
		srcExtent = p.extent
		srcAbyss = p.abyss
	case o.storage != nil:
		b.source = o.storage
		b.storage = o.storage
		b.totalShiftX, b.totalShiftY = o.shiftX, o.shiftY
		b.format = o.storage.Format()
		bounded = false
	default:
		f := o.format
		if f == nil {
			rgba := pixel.RGBA8
			f = &rgba
		}
		var sopts []StorageOption
		if o.cache != nil {
			sopts = append(sopts, WithStorageCache(o.cache))
		}
		s, err := NewStorage(o.tileWidth, o.tileHeight, *f, sopts...)
		if err != nil {
			return nil, err
		}
		b.source = s
		b.storage = s
		b.format = *f
		b.owns = true
		b.totalShiftX, b.totalShiftY = o.shiftX, o.shiftY
		bounded = false
	}
	if o.format != nil {
		if !o.format.IsValid() {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, *o.format)
		}
		b.format = *o.format
	}

	// The source's rectangles in this buffer's coordinates.
	srcExtent = srcExtent.Translate(-o.shiftX, -o.shiftY)
	srcAbyss = srcAbyss.Translate(-o.shiftX, -o.shiftY)

	if o.extent != nil {
		b.extent = *o.extent
	} else {
		b.extent = srcExtent
	}

	switch {
	case o.abyss == nil && bounded:
		b.abyss = srcAbyss
	case o.abyss == nil || o.abyss.Empty():
		b.abyss = b.extent
	default:
		b.abyss = *o.abyss
	}
	if bounded {
		b.abyss = b.abyss.Intersect(srcAbyss)
	}

	b.chain = b.source
	for i := len(b.handlers) - 1; i >= 0; i-- {
		b.chain = &handlerLink{h: b.handlers[i], next: b.chain}
	}

	liveBuffers.Add(1)
	return b, nil
}

// Name returns the buffer name.
func (b *Buffer) Name() string { return b.name }

// Extent returns the buffer rectangle in its own coordinates.
func (b *Buffer) Extent() tile.Rect { return b.extent }

// Abyss returns the defined rectangle in the buffer's coordinates.
func (b *Buffer) Abyss() tile.Rect { return b.abyss }

// Format returns the buffer's default pixel format.
func (b *Buffer) Format() pixel.Format { return b.format }

// Source returns the tile source the buffer views.
func (b *Buffer) Source() tile.Source { return b.source }

// Storage returns the root storage.
func (b *Buffer) Storage() *Storage { return b.storage }

// Shift returns this buffer's own shift relative to its source.
func (b *Buffer) Shift() (x, y int) { return b.shiftX, b.shiftY }

// TotalShift returns the accumulated shift to storage coordinates.
func (b *Buffer) TotalShift() (x, y int) { return b.totalShiftX, b.totalShiftY }

// TileWidth returns the storage tile width.
func (b *Buffer) TileWidth() int { return b.storage.TileWidth() }

// TileHeight returns the storage tile height.
func (b *Buffer) TileHeight() int { return b.storage.TileHeight() }

// PixelCount returns width*height.
func (b *Buffer) PixelCount() int { return b.extent.Area() }

// PixelSize returns the bytes per pixel of the storage format.
func (b *Buffer) PixelSize() int { return b.storage.PixelSize() }

// GetTile implements tile.Source, dispatching through the buffer's
// handlers to its source. Tile coordinates are storage tile indices.
func (b *Buffer) GetTile(x, y, z int) (*tile.Tile, error) {
	return b.chain.GetTile(x, y, z)
}

// Message implements tile.Source.
func (b *Buffer) Message(msg tile.Message, x, y, z int) bool {
	return b.chain.Message(msg, x, y, z)
}

// storageTile returns the storage tile indices of buffer pixel (x, y).
func (b *Buffer) storageTile(x, y int) (tx, ty int) {
	return tile.Index(x+b.totalShiftX, b.storage.TileWidth()),
		tile.Index(y+b.totalShiftY, b.storage.TileHeight())
}

// VoidTile discards the tile containing buffer pixel (x, y).
func (b *Buffer) VoidTile(x, y int) {
	tx, ty := b.storageTile(x, y)
	b.Message(tile.MsgVoid, tx, ty, 0)
}

// AddDirty marks the tile containing buffer pixel (x, y) as modified.
func (b *Buffer) AddDirty(x, y int) bool {
	tx, ty := b.storageTile(x, y)
	return b.Message(tile.MsgDirty, tx, ty, 0)
}

// IsDirty reports whether the tile containing buffer pixel (x, y) holds
// unpersisted modifications.
func (b *Buffer) IsDirty(x, y int) bool {
	tx, ty := b.storageTile(x, y)
	return b.Message(tile.MsgIsDirty, tx, ty, 0)
}

// FlushDirty persists all modified tiles of the storage.
func (b *Buffer) FlushDirty() bool {
	return b.Message(tile.MsgFlushDirty, 0, 0, 0)
}

// Idle performs one unit of background write-back.
func (b *Buffer) Idle() bool {
	return b.Message(tile.MsgIdle, 0, 0, 0)
}

// Get copies the whole extent into dst in format f. Pixels outside the
// abyss read as zero.
func (b *Buffer) Get(dst []byte, f pixel.Format) error {
	return b.Read(b.extent, 0, f, dst, 0, AbyssNone)
}

// Set copies src in format f over the whole extent. Pixels outside the
// abyss are not written.
func (b *Buffer) Set(src []byte, f pixel.Format) error {
	return b.Write(b.extent, f, src, 0)
}

// GetRect copies rect into dst through a transient view of rect.
func (b *Buffer) GetRect(rect tile.Rect, dst []byte, f pixel.Format) error {
	v, err := b.view(rect)
	if err != nil {
		return err
	}
	defer v.Close()
	return v.Get(dst, f)
}

// SetRect copies src over rect through a transient view of rect.
func (b *Buffer) SetRect(rect tile.Rect, src []byte, f pixel.Format) error {
	v, err := b.view(rect)
	if err != nil {
		return err
	}
	defer v.Close()
	return v.Set(src, f)
}

func (b *Buffer) view(rect tile.Rect) (*Buffer, error) {
	return New(WithSource(b), WithExtent(rect), WithName(b.name+"/view"))
}

// Read copies rect at mip level into dst in format f. stride is the byte
// distance between rows of dst; zero means tightly packed. rect is given in
// level coordinates. Pixels outside the abyss follow policy.
func (b *Buffer) Read(rect tile.Rect, level int, f pixel.Format, dst []byte, stride int, policy AbyssPolicy) error {
	if err := b.checkAccess(rect, f, dst, &stride); err != nil {
		return err
	}
	readRect(b, rect, level, f, dst, stride, policy)
	return nil
}

// Write copies src in format f over rect at level 0. stride is the byte
// distance between rows of src; zero means tightly packed. Pixels outside
// the abyss are discarded.
func (b *Buffer) Write(rect tile.Rect, f pixel.Format, src []byte, stride int) error {
	if err := b.checkAccess(rect, f, src, &stride); err != nil {
		return err
	}
	writeRect(b, rect, 0, f, src, stride)
	return nil
}

func (b *Buffer) checkAccess(rect tile.Rect, f pixel.Format, data []byte, stride *int) error {
	if b.closed.Load() {
		return fmt.Errorf("buffer: %q is closed", b.name)
	}
	if !f.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, f)
	}
	if rect.Empty() {
		return nil
	}
	row := f.RowBytes(rect.Width)
	if *stride == 0 {
		*stride = row
	}
	if *stride < row {
		return fmt.Errorf("buffer: stride %d shorter than row of %d bytes", *stride, row)
	}
	if need := *stride*(rect.Height-1) + row; len(data) < need {
		return fmt.Errorf("buffer: %d bytes for %v in %v, need %d", len(data), rect, f, need)
	}
	return nil
}

// Close releases the buffer. A buffer that allocated its own storage drops
// that storage's tiles; views leave shared storage untouched.
func (b *Buffer) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if b.owns {
		b.storage.Close()
	}
	live := liveBuffers.Add(-1)
	tilebuf.Logger().Debug("buffer closed", "name", b.name, "live", live)
	return nil
}

// String returns a short description of the buffer.
func (b *Buffer) String() string {
	return fmt.Sprintf("buffer %q %v abyss %v shift %d,%d %v",
		b.name, b.extent, b.abyss, b.totalShiftX, b.totalShiftY, b.format)
}
