package region

import (
	"testing"

	"github.com/gogpu/tilebuf/tile"
)

// disjoint fails the test if any two rectangles of r overlap.
func disjoint(t *testing.T, r *Region) {
	t.Helper()
	rs := r.Rects()
	for i := range rs {
		if rs[i].Empty() {
			t.Errorf("empty rect %v in region", rs[i])
		}
		for j := i + 1; j < len(rs); j++ {
			if rs[i].Overlaps(rs[j]) {
				t.Errorf("rects %v and %v overlap", rs[i], rs[j])
			}
		}
	}
}

// ============================================================================
// Union
// ============================================================================

func TestAdd(t *testing.T) {
	tests := []struct {
		name  string
		rects []tile.Rect
		area  int
	}{
		{"empty", nil, 0},
		{"single", []tile.Rect{tile.NewRect(0, 0, 10, 10)}, 100},
		{"disjoint", []tile.Rect{tile.NewRect(0, 0, 10, 10), tile.NewRect(20, 0, 5, 5)}, 125},
		{"overlap", []tile.Rect{tile.NewRect(0, 0, 10, 10), tile.NewRect(5, 5, 10, 10)}, 175},
		{"contained", []tile.Rect{tile.NewRect(0, 0, 10, 10), tile.NewRect(2, 2, 3, 3)}, 100},
		{"containing", []tile.Rect{tile.NewRect(2, 2, 3, 3), tile.NewRect(0, 0, 10, 10)}, 100},
		{"cross", []tile.Rect{tile.NewRect(4, 0, 2, 10), tile.NewRect(0, 4, 10, 2)}, 36},
		{"negative", []tile.Rect{tile.NewRect(-10, -10, 10, 10), tile.NewRect(-5, -5, 10, 10)}, 175},
		{"empty rect ignored", []tile.Rect{tile.NewRect(0, 0, 0, 5)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.rects...)
			if got := r.Area(); got != tt.area {
				t.Errorf("Area() = %d, want %d", got, tt.area)
			}
			disjoint(t, r)
			for _, rc := range tt.rects {
				if !r.ContainsRect(rc) {
					t.Errorf("ContainsRect(%v) = false", rc)
				}
			}
		})
	}
}

// ============================================================================
// Subtract
// ============================================================================

func TestSubtract(t *testing.T) {
	tests := []struct {
		name string
		base []tile.Rect
		sub  tile.Rect
		area int
	}{
		{"hole", []tile.Rect{tile.NewRect(0, 0, 10, 10)}, tile.NewRect(3, 3, 4, 4), 84},
		{"all", []tile.Rect{tile.NewRect(0, 0, 10, 10)}, tile.NewRect(-1, -1, 20, 20), 0},
		{"edge", []tile.Rect{tile.NewRect(0, 0, 10, 10)}, tile.NewRect(5, -5, 10, 20), 50},
		{"miss", []tile.Rect{tile.NewRect(0, 0, 10, 10)}, tile.NewRect(10, 10, 5, 5), 100},
		{"across two", []tile.Rect{tile.NewRect(0, 0, 10, 10), tile.NewRect(10, 0, 10, 10)},
			tile.NewRect(5, 0, 10, 10), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.base...)
			r.Subtract(tt.sub)
			if got := r.Area(); got != tt.area {
				t.Errorf("Area() = %d, want %d", got, tt.area)
			}
			disjoint(t, r)
			if r.IntersectArea(tt.sub) != 0 {
				t.Errorf("region still overlaps %v", tt.sub)
			}
		})
	}
}

func TestSubtractThenAddRestores(t *testing.T) {
	full := tile.NewRect(0, 0, 64, 64)
	r := New(full)
	holes := []tile.Rect{
		tile.NewRect(10, 10, 5, 5),
		tile.NewRect(0, 30, 64, 2),
		tile.NewRect(40, 0, 3, 64),
	}
	for _, h := range holes {
		r.Subtract(h)
	}
	for _, h := range holes {
		r.Add(h)
	}
	if !r.ContainsRect(full) || r.Area() != full.Area() {
		t.Errorf("Area() = %d, want %d", r.Area(), full.Area())
	}
	disjoint(t, r)
}

// ============================================================================
// Queries
// ============================================================================

func TestIntersect(t *testing.T) {
	r := New(tile.NewRect(0, 0, 10, 10), tile.NewRect(20, 20, 10, 10))
	in := r.Intersect(tile.NewRect(5, 5, 20, 20))
	if got := in.Area(); got != 25+25 {
		t.Errorf("Intersect().Area() = %d, want 50", got)
	}
	if got := r.IntersectArea(tile.NewRect(5, 5, 20, 20)); got != 50 {
		t.Errorf("IntersectArea() = %d, want 50", got)
	}
}

func TestContains(t *testing.T) {
	r := New(tile.NewRect(0, 0, 4, 4))
	r.Subtract(tile.NewRect(1, 1, 2, 2))

	tests := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{1, 1, false},
		{2, 2, false},
		{3, 3, true},
		{4, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	if r.ContainsRect(tile.NewRect(0, 0, 4, 4)) {
		t.Error("ContainsRect(full) = true with a hole")
	}
	if !r.ContainsRect(tile.Rect{}) {
		t.Error("ContainsRect(empty) = false")
	}
}

func TestBoundsCloneClear(t *testing.T) {
	r := New(tile.NewRect(-5, 0, 2, 2), tile.NewRect(10, 10, 1, 1))
	if want := tile.NewRect(-5, 0, 16, 11); r.Bounds() != want {
		t.Errorf("Bounds() = %v, want %v", r.Bounds(), want)
	}

	c := r.Clone()
	r.Clear()
	if !r.Empty() || r.Area() != 0 {
		t.Errorf("after Clear Area() = %d, want 0", r.Area())
	}
	if c.Area() != 5 {
		t.Errorf("clone Area() = %d, want 5", c.Area())
	}
	if (&Region{}).Bounds() != (tile.Rect{}) {
		t.Error("empty Bounds() is not zero")
	}
}

func BenchmarkAddSubtract(b *testing.B) {
	for range b.N {
		r := New(tile.NewRect(0, 0, 1024, 1024))
		for y := 0; y < 1024; y += 128 {
			for x := 0; x < 1024; x += 128 {
				r.Subtract(tile.NewRect(x, y, 64, 64))
			}
		}
		r.Add(tile.NewRect(0, 0, 1024, 1024))
	}
}
