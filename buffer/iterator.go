package buffer

import (
	"fmt"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// AbyssPolicy selects what reads outside a buffer's abyss return.
type AbyssPolicy uint8

const (
	// AbyssNone reads zero bytes.
	AbyssNone AbyssPolicy = iota

	// AbyssClamp reads the nearest pixel inside the abyss.
	AbyssClamp

	// AbyssLoop wraps coordinates around the abyss.
	AbyssLoop
)

// String returns the policy name.
func (p AbyssPolicy) String() string {
	switch p {
	case AbyssNone:
		return "none"
	case AbyssClamp:
		return "clamp"
	case AbyssLoop:
		return "loop"
	default:
		return fmt.Sprintf("AbyssPolicy(%d)", uint8(p))
	}
}

// Access selects whether iterator items are read, written, or both.
type Access uint8

const (
	// AccessRead fills each item with the buffer's pixels.
	AccessRead Access = 1 << iota

	// AccessWrite writes each item back when the iterator advances.
	AccessWrite

	// AccessReadWrite combines both.
	AccessReadWrite = AccessRead | AccessWrite
)

// ============================================================================
// Tile walker
// ============================================================================

// mapCoord maps c into [lo, lo+n) per policy. ok is false when the
// coordinate reads as zero. n must be positive.
func mapCoord(c, lo, n int, policy AbyssPolicy) (int, bool) {
	if c >= lo && c < lo+n {
		return c, true
	}
	switch policy {
	case AbyssClamp:
		return min(max(c, lo), lo+n-1), true
	case AbyssLoop:
		return lo + tile.Offset(c-lo, n), true
	}
	return 0, false
}

// readRect fills dst with roi of b at level in format f. dst rows are
// stride bytes apart.
func readRect(b *Buffer, roi tile.Rect, level int, f pixel.Format, dst []byte, stride int, policy AbyssPolicy) {
	if roi.Empty() {
		return
	}
	bpp := f.BytesPerPixel()
	rowLen := roi.Width * bpp
	ab := b.abyss.AtLevel(level)

	if ab.Empty() {
		for y := range roi.Height {
			clear(dst[y*stride : y*stride+rowLen])
		}
		return
	}

	inner := roi.Intersect(ab)
	if !inner.Empty() {
		off := (inner.Y-roi.Y)*stride + (inner.X-roi.X)*bpp
		readBlock(b, inner, level, f, dst[off:], stride)
		if inner == roi {
			return
		}
	}

	lastSY := 0
	var lastRow []byte
	for y := roi.Y; y < roi.Bottom(); y++ {
		row := dst[(y-roi.Y)*stride : (y-roi.Y)*stride+rowLen]
		sy, ok := mapCoord(y, ab.Y, ab.Height, policy)
		if !ok {
			clear(row)
			continue
		}
		inside := y >= ab.Y && y < ab.Bottom()
		if !inside && lastRow != nil && sy == lastSY {
			copy(row, lastRow)
			continue
		}
		fillRow(b, row, roi.X, roi.Width, sy, ab, level, f, policy, inside)
		if !inside {
			lastSY, lastRow = sy, row
		}
	}
}

// fillRow fills one destination row covering [x0, x0+w) from source row sy.
// When inside is true the columns within the abyss are already filled.
func fillRow(b *Buffer, row []byte, x0, w, sy int, ab tile.Rect, level int, f pixel.Format, policy AbyssPolicy, inside bool) {
	bpp := f.BytesPerPixel()
	x1 := x0 + w
	midX0, midX1 := max(x0, ab.X), min(x1, ab.Right())
	if !inside && midX0 < midX1 {
		readBlock(b, tile.NewRect(midX0, sy, midX1-midX0, 1), level, f, row[(midX0-x0)*bpp:], 0)
	}

	fill := func(s0, s1 int) {
		if s0 >= s1 {
			return
		}
		seg := row[(s0-x0)*bpp : (s1-x0)*bpp]
		switch policy {
		case AbyssClamp:
			sx, _ := mapCoord(s0, ab.X, ab.Width, policy)
			readBlock(b, tile.NewRect(sx, sy, 1, 1), level, f, seg, 0)
			for o := bpp; o < len(seg); o += bpp {
				copy(seg[o:o+bpp], seg[:bpp])
			}
		case AbyssLoop:
			for x := s0; x < s1; {
				sx, _ := mapCoord(x, ab.X, ab.Width, policy)
				run := min(s1-x, ab.Right()-sx)
				readBlock(b, tile.NewRect(sx, sy, run, 1), level, f, row[(x-x0)*bpp:], 0)
				x += run
			}
		default:
			clear(seg)
		}
	}
	fill(x0, min(x1, ab.X))
	fill(max(x0, ab.Right()), x1)
}

// readBlock copies r, which must lie inside the abyss, from the tiles of b
// into dst. A tile that cannot be fetched reads as zero.
func readBlock(b *Buffer, r tile.Rect, level int, f pixel.Format, dst []byte, stride int) {
	walkTiles(b, r, level, f, stride, func(t *tile.Tile, srcOff, dstOff, n int) {
		if t == nil {
			clear(dst[dstOff : dstOff+n*f.BytesPerPixel()])
			return
		}
		pixel.Convert(b.storage.Format(), f, t.Bytes()[srcOff:], dst[dstOff:], n)
	}, false)
}

// writeBlock copies src into the tiles of b covering r.
func writeBlock(b *Buffer, r tile.Rect, level int, f pixel.Format, src []byte, stride int) {
	walkTiles(b, r, level, f, stride, func(t *tile.Tile, srcOff, dstOff, n int) {
		if t == nil {
			return
		}
		pixel.Convert(f, b.storage.Format(), src[dstOff:], t.Bytes()[srcOff:], n)
	}, true)
}

// walkTiles visits every tile row span of r. For each span, fn receives the
// locked tile (nil if unavailable), the byte offset of the span in the tile,
// the byte offset in the caller's block, and the pixel count.
func walkTiles(b *Buffer, r tile.Rect, level int, f pixel.Format, stride int,
	fn func(t *tile.Tile, tileOff, blockOff, n int), write bool) {
	if r.Empty() {
		return
	}
	s := b.storage
	tw, th := s.TileWidth(), s.TileHeight()
	sbpp, bpp := s.PixelSize(), f.BytesPerPixel()
	if stride == 0 {
		stride = r.Width * bpp
	}
	sr := r.Translate(b.totalShiftX>>level, b.totalShiftY>>level)

	for ty := tile.Index(sr.Y, th); ty <= tile.Index(sr.Bottom()-1, th); ty++ {
		for tx := tile.Index(sr.X, tw); tx <= tile.Index(sr.Right()-1, tw); tx++ {
			span := tile.NewRect(tx*tw, ty*th, tw, th).Intersect(sr)
			t, err := b.GetTile(tx, ty, level)
			if err != nil {
				tilebuf.Logger().Warn("buffer: tile unavailable", "buffer", b.name,
					"x", tx, "y", ty, "z", level, "err", err)
				t = nil
			} else if write {
				t.Lock()
			} else {
				t.RLock()
			}

			col := tile.Offset(span.X, tw)
			for y := span.Y; y < span.Bottom(); y++ {
				tileOff := (tile.Offset(y, th)*tw + col) * sbpp
				blockOff := (y-sr.Y)*stride + (span.X-sr.X)*bpp
				fn(t, tileOff, blockOff, span.Width)
			}

			if t != nil {
				if write {
					t.Unlock()
				} else {
					t.RUnlock()
				}
				t.Unref()
			}
		}
	}
}

// writeRect writes roi of src into b at level, discarding pixels outside
// the abyss.
func writeRect(b *Buffer, roi tile.Rect, level int, f pixel.Format, src []byte, stride int) {
	inner := roi.Intersect(b.abyss.AtLevel(level))
	if inner.Empty() {
		return
	}
	off := (inner.Y-roi.Y)*stride + (inner.X-roi.X)*f.BytesPerPixel()
	writeBlock(b, inner, level, f, src[off:], stride)
}

// ============================================================================
// Iterator
// ============================================================================

// Iterator walks a rectangle of one or more co-registered buffers in work
// items. Each item is the part of the primary rectangle inside one tile of
// the primary buffer; items are produced in row-major tile order. For every
// registered buffer the item's pixels are presented as one packed block in
// the requested format.
//
// Write access takes a tile's write lock only while the item is copied back,
// which happens when the iterator advances or stops.
//
// Typical use:
//
//	it := buffer.NewIterator(out, roi, 0, pixel.RGBAFloat, buffer.AccessWrite, buffer.AbyssNone)
//	in := it.Add(src, roi, pixel.RGBAFloat, buffer.AccessRead, buffer.AbyssClamp)
//	for it.Next() {
//	    process(it.Data(in), it.Data(0), it.Length())
//	}
type Iterator struct {
	level int
	bufs  []*iterBuffer
	rect  tile.Rect

	// Primary tile walk in storage coordinates.
	tw, th         int
	shiftX, shiftY int
	storageRect    tile.Rect
	tx, ty         int
	txFirst        int
	txLast         int
	tyLast         int

	item    tile.Rect
	started bool
	active  bool
	done    bool
}

type iterBuffer struct {
	b       *Buffer
	dx, dy  int
	format  pixel.Format
	access  Access
	policy  AbyssPolicy
	scratch []byte
	roi     tile.Rect
	data    []byte
}

// NewIterator creates an iterator over rect of the primary buffer b at the
// given mip level. rect is in level coordinates. The primary buffer is
// index 0.
func NewIterator(b *Buffer, rect tile.Rect, level int, f pixel.Format, access Access, policy AbyssPolicy) *Iterator {
	it := &Iterator{
		level:  level,
		rect:   rect,
		tw:     b.TileWidth(),
		th:     b.TileHeight(),
		shiftX: b.totalShiftX >> level,
		shiftY: b.totalShiftY >> level,
	}
	it.storageRect = rect.Translate(it.shiftX, it.shiftY)
	if rect.Empty() {
		it.done = true
	} else {
		sr := it.storageRect
		it.txFirst = tile.Index(sr.X, it.tw)
		it.txLast = tile.Index(sr.Right()-1, it.tw)
		it.tyLast = tile.Index(sr.Bottom()-1, it.th)
		it.tx = it.txFirst
		it.ty = tile.Index(sr.Y, it.th)
	}
	it.Add(b, rect, f, access, policy)
	return it
}

// Add registers another buffer. Its region for each item is the item
// translated by rect's offset from the primary rectangle. Add returns the
// index to pass to Data and Roi, and must be called before Next.
func (it *Iterator) Add(b *Buffer, rect tile.Rect, f pixel.Format, access Access, policy AbyssPolicy) int {
	if it.started {
		panic("buffer: Iterator.Add after iteration started")
	}
	it.bufs = append(it.bufs, &iterBuffer{
		b:       b,
		dx:      rect.X - it.rect.X,
		dy:      rect.Y - it.rect.Y,
		format:  f,
		access:  access,
		policy:  policy,
		scratch: make([]byte, it.tw*it.th*f.BytesPerPixel()),
	})
	return len(it.bufs) - 1
}

// Next writes back the current item, if any, and advances to the next one.
// It returns false when the rectangle is exhausted.
func (it *Iterator) Next() bool {
	it.started = true
	if it.active {
		it.flush()
	}
	if it.done || !it.advance() {
		it.done = true
		return false
	}

	n := it.item.Area()
	for _, ib := range it.bufs {
		ib.roi = it.item.Translate(ib.dx, ib.dy)
		ib.data = ib.scratch[:n*ib.format.BytesPerPixel()]
		if ib.access&AccessRead != 0 {
			readRect(ib.b, ib.roi, it.level, ib.format, ib.data, ib.roi.Width*ib.format.BytesPerPixel(), ib.policy)
		} else {
			clear(ib.data)
		}
	}
	it.active = true
	return true
}

// advance moves the tile cursor and computes the next item.
func (it *Iterator) advance() bool {
	if it.ty > it.tyLast {
		return false
	}
	span := tile.NewRect(it.tx*it.tw, it.ty*it.th, it.tw, it.th).Intersect(it.storageRect)
	it.item = span.Translate(-it.shiftX, -it.shiftY)

	it.tx++
	if it.tx > it.txLast {
		it.tx = it.txFirst
		it.ty++
	}
	return true
}

func (it *Iterator) flush() {
	for _, ib := range it.bufs {
		if ib.access&AccessWrite != 0 {
			writeRect(ib.b, ib.roi, it.level, ib.format, ib.data, ib.roi.Width*ib.format.BytesPerPixel())
		}
	}
	it.active = false
}

// Stop writes back the current item and ends the iteration early.
func (it *Iterator) Stop() {
	if it.active {
		it.flush()
	}
	it.done = true
}

// Length returns the pixel count of the current item.
func (it *Iterator) Length() int { return it.item.Area() }

// Roi returns the current item's rectangle in buffer i's coordinates.
func (it *Iterator) Roi(i int) tile.Rect { return it.bufs[i].roi }

// Data returns the current item's pixels for buffer i, packed row by row.
func (it *Iterator) Data(i int) []byte { return it.bufs[i].data }

// Level returns the mip level being iterated.
func (it *Iterator) Level() int { return it.level }
