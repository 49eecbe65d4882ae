package parallel

import "github.com/gogpu/tilebuf/tile"

// Split divides r into at most n bands of equal size along its longer
// dimension, rows when the sides are equal. The last band absorbs the
// remainder. Bands are returned in order and exactly cover r; an empty r
// yields none.
func Split(r tile.Rect, n int) []tile.Rect {
	if r.Empty() {
		return nil
	}
	byRows := r.Height >= r.Width
	length := r.Width
	if byRows {
		length = r.Height
	}
	n = max(1, min(n, length))
	size := length / n

	bands := make([]tile.Rect, 0, n)
	for i := range n {
		off, l := i*size, size
		if i == n-1 {
			l = length - off
		}
		if byRows {
			bands = append(bands, tile.NewRect(r.X, r.Y+off, r.Width, l))
		} else {
			bands = append(bands, tile.NewRect(r.X+off, r.Y, l, r.Height))
		}
	}
	return bands
}
