package buffer

import (
	"fmt"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/tile"
)

// Copy copies srcRect of src to dst with its origin at dstRect's origin;
// dstRect's size is ignored. When both buffers share tile geometry, format
// and cache, and the rectangles map to whole tiles inside both abysses,
// tiles are shared copy-on-write instead of copied. Otherwise pixels are
// copied through a scratch block in dst's storage format.
func Copy(src *Buffer, srcRect tile.Rect, dst *Buffer, dstRect tile.Rect) error {
	if srcRect.Empty() {
		return nil
	}
	dstRect = tile.NewRect(dstRect.X, dstRect.Y, srcRect.Width, srcRect.Height)

	if canShareTiles(src, srcRect, dst, dstRect) {
		return shareTiles(src, srcRect, dst, dstRect)
	}

	f := dst.storage.Format()
	scratch := make([]byte, f.RowBytes(srcRect.Width)*srcRect.Height)
	if err := src.Read(srcRect, 0, f, scratch, 0, AbyssNone); err != nil {
		return err
	}
	return dst.Write(dstRect, f, scratch, 0)
}

func canShareTiles(src *Buffer, srcRect tile.Rect, dst *Buffer, dstRect tile.Rect) bool {
	ss, ds := src.storage, dst.storage
	if ss.TileWidth() != ds.TileWidth() || ss.TileHeight() != ds.TileHeight() ||
		ss.Format() != ds.Format() || ss.Cache() != ds.Cache() {
		return false
	}
	if !src.abyss.ContainsRect(srcRect) || !dst.abyss.ContainsRect(dstRect) {
		return false
	}
	tw, th := ss.TileWidth(), ss.TileHeight()
	aligned := func(b *Buffer, r tile.Rect) bool {
		x, y := r.X+b.totalShiftX, r.Y+b.totalShiftY
		return tile.Offset(x, tw) == 0 && tile.Offset(y, th) == 0 &&
			r.Width%tw == 0 && r.Height%th == 0
	}
	return aligned(src, srcRect) && aligned(dst, dstRect)
}

func shareTiles(src *Buffer, srcRect tile.Rect, dst *Buffer, dstRect tile.Rect) error {
	tw, th := src.TileWidth(), src.TileHeight()
	sx0 := tile.Index(srcRect.X+src.totalShiftX, tw)
	sy0 := tile.Index(srcRect.Y+src.totalShiftY, th)
	dx0 := tile.Index(dstRect.X+dst.totalShiftX, tw)
	dy0 := tile.Index(dstRect.Y+dst.totalShiftY, th)
	cols, rows := srcRect.Width/tw, srcRect.Height/th

	for j := range rows {
		for i := range cols {
			t, err := src.GetTile(sx0+i, sy0+j, 0)
			if err != nil {
				return fmt.Errorf("buffer: copy tile: %w", err)
			}
			key := tile.Key{Storage: dst.storage.ID(), X: dx0 + i, Y: dy0 + j}
			if t.Key() != key {
				dst.storage.Insert(t.Dup(key))
			}
			t.Unref()
		}
	}
	tilebuf.Logger().Debug("buffer: shared tiles", "src", src.name, "dst", dst.name, "tiles", rows*cols)
	return nil
}
