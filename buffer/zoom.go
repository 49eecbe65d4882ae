package buffer

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// zoom builds the tile at key.Z by halving the four tiles below it.
func (s *Storage) zoom(key tile.Key) (*tile.Tile, error) {
	t := tile.NewBlank(key, s.tileBytes)
	dst := t.Bytes()
	halfW, halfH := s.tileWidth/2, s.tileHeight/2
	bpp := s.format.BytesPerPixel()

	for q := range 4 {
		qx, qy := q%2, q/2
		child, err := s.GetTile(key.X*2+qx, key.Y*2+qy, key.Z-1)
		if err != nil {
			return nil, err
		}
		child.RLock()
		downsample(s.format, child.Bytes(), s.tileWidth, s.tileHeight,
			dst[(qy*halfH*s.tileWidth+qx*halfW)*bpp:], s.tileWidth)
		child.RUnlock()
		child.Unref()
	}

	s.cache.Counters().AddZoom(int64(s.tileBytes))
	return t, nil
}

// downsample box-filters a w x h block of src into a w/2 x h/2 block of dst
// whose rows are dstStride pixels apart. Odd trailing rows and columns
// reuse the last pixel.
func downsample(f pixel.Format, src []byte, w, h int, dst []byte, dstStride int) {
	info := f.Info()
	bpp := info.BytesPerPixel
	ch := info.Channels
	dw, dh := max(1, w/2), max(1, h/2)

	for dy := range dh {
		sy0 := dy * 2
		sy1 := min(sy0+1, h-1)
		for dx := range dw {
			sx0 := dx * 2
			sx1 := min(sx0+1, w-1)
			p0 := (sy0*w + sx0) * bpp
			p1 := (sy0*w + sx1) * bpp
			p2 := (sy1*w + sx0) * bpp
			p3 := (sy1*w + sx1) * bpp
			d := (dy*dstStride + dx) * bpp

			switch {
			case info.IsFloat:
				for c := range ch {
					o := c * 4
					v := (readF32(src[p0+o:]) + readF32(src[p1+o:]) + readF32(src[p2+o:]) + readF32(src[p3+o:])) / 4
					binary.LittleEndian.PutUint32(dst[d+o:], math.Float32bits(v))
				}
			case info.BitsPerChannel == 16:
				for c := range ch {
					o := c * 2
					v := (uint32(binary.LittleEndian.Uint16(src[p0+o:])) + uint32(binary.LittleEndian.Uint16(src[p1+o:])) +
						uint32(binary.LittleEndian.Uint16(src[p2+o:])) + uint32(binary.LittleEndian.Uint16(src[p3+o:])) + 2) / 4
					binary.LittleEndian.PutUint16(dst[d+o:], uint16(v))
				}
			default:
				for c := range ch {
					v := (uint16(src[p0+c]) + uint16(src[p1+c]) + uint16(src[p2+c]) + uint16(src[p3+c]) + 2) / 4
					dst[d+c] = byte(v)
				}
			}
		}
	}
}

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
