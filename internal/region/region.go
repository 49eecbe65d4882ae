// Package region implements sets of pixels represented as disjoint
// rectangles.
package region

import (
	"fmt"
	"strings"

	"github.com/gogpu/tilebuf/tile"
)

// Region is a set of pixels stored as pairwise disjoint, non-empty
// rectangles. The zero value is an empty region.
//
// Region is not safe for concurrent use.
type Region struct {
	rects []tile.Rect
}

// New returns a region covering the union of rects.
func New(rects ...tile.Rect) *Region {
	r := &Region{}
	for _, rc := range rects {
		r.Add(rc)
	}
	return r
}

// Rects returns the disjoint rectangles making up the region. The slice
// must not be modified.
func (r *Region) Rects() []tile.Rect { return r.rects }

// Empty reports whether the region covers no pixels.
func (r *Region) Empty() bool { return len(r.rects) == 0 }

// Area returns the number of pixels in the region.
func (r *Region) Area() int {
	n := 0
	for _, rc := range r.rects {
		n += rc.Area()
	}
	return n
}

// Bounds returns the smallest rectangle containing the region.
func (r *Region) Bounds() tile.Rect {
	var b tile.Rect
	for i, rc := range r.rects {
		if i == 0 {
			b = rc
			continue
		}
		b = b.Bounds(rc)
	}
	return b
}

// Clear empties the region.
func (r *Region) Clear() { r.rects = r.rects[:0] }

// Clone returns an independent copy.
func (r *Region) Clone() *Region {
	return &Region{rects: append([]tile.Rect(nil), r.rects...)}
}

// Add unions rc into the region.
func (r *Region) Add(rc tile.Rect) {
	if rc.Empty() {
		return
	}
	pieces := []tile.Rect{rc}
	for _, have := range r.rects {
		if !have.Overlaps(rc) {
			continue
		}
		var next []tile.Rect
		for _, p := range pieces {
			next = appendDifference(next, p, have)
		}
		if pieces = next; len(pieces) == 0 {
			return
		}
	}
	r.rects = append(r.rects, pieces...)
}

// Subtract removes rc from the region.
func (r *Region) Subtract(rc tile.Rect) {
	if rc.Empty() {
		return
	}
	out := r.rects[:0:0]
	for _, have := range r.rects {
		if have.Overlaps(rc) {
			out = appendDifference(out, have, rc)
		} else {
			out = append(out, have)
		}
	}
	r.rects = out
}

// Intersect returns the part of the region inside rc.
func (r *Region) Intersect(rc tile.Rect) *Region {
	out := &Region{}
	for _, have := range r.rects {
		if in := have.Intersect(rc); !in.Empty() {
			out.rects = append(out.rects, in)
		}
	}
	return out
}

// IntersectArea returns the number of region pixels inside rc.
func (r *Region) IntersectArea(rc tile.Rect) int {
	n := 0
	for _, have := range r.rects {
		n += have.Intersect(rc).Area()
	}
	return n
}

// ContainsRect reports whether every pixel of rc is in the region. An empty
// rc is always contained.
func (r *Region) ContainsRect(rc tile.Rect) bool {
	return r.IntersectArea(rc) == rc.Area()
}

// Contains reports whether pixel (x, y) is in the region.
func (r *Region) Contains(x, y int) bool {
	for _, have := range r.rects {
		if have.Contains(x, y) {
			return true
		}
	}
	return false
}

// String returns the rectangles in insertion order.
func (r *Region) String() string {
	parts := make([]string, len(r.rects))
	for i, rc := range r.rects {
		parts[i] = rc.String()
	}
	return fmt.Sprintf("region{%s}", strings.Join(parts, " "))
}

// appendDifference appends a minus b as up to four disjoint bands: full
// width above and below b, then the parts left and right of b.
func appendDifference(dst []tile.Rect, a, b tile.Rect) []tile.Rect {
	in := a.Intersect(b)
	if in.Empty() {
		return append(dst, a)
	}
	if in.Y > a.Y {
		dst = append(dst, tile.NewRect(a.X, a.Y, a.Width, in.Y-a.Y))
	}
	if in.Bottom() < a.Bottom() {
		dst = append(dst, tile.NewRect(a.X, in.Bottom(), a.Width, a.Bottom()-in.Bottom()))
	}
	if in.X > a.X {
		dst = append(dst, tile.NewRect(a.X, in.Y, in.X-a.X, in.Height))
	}
	if in.Right() < a.Right() {
		dst = append(dst, tile.NewRect(in.Right(), in.Y, a.Right()-in.Right(), in.Height))
	}
	return dst
}
