package tile

import "testing"

func TestRectIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"overlap", NewRect(0, 0, 10, 10), NewRect(5, 5, 10, 10), NewRect(5, 5, 5, 5)},
		{"contained", NewRect(0, 0, 100, 100), NewRect(10, 20, 5, 5), NewRect(10, 20, 5, 5)},
		{"disjoint", NewRect(0, 0, 10, 10), NewRect(20, 20, 5, 5), Rect{}},
		{"touching", NewRect(0, 0, 10, 10), NewRect(10, 0, 5, 5), Rect{}},
		{"negative", NewRect(-10, -10, 20, 20), NewRect(-5, -20, 5, 15), NewRect(-5, -10, 5, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersect(tt.b); got != tt.want {
				t.Errorf("Intersect() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Intersect(tt.a); got != tt.want {
				t.Errorf("Intersect() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectContains(t *testing.T) {
	r := NewRect(-4, 2, 8, 3)
	if !r.Contains(-4, 2) || !r.Contains(3, 4) {
		t.Error("Contains() = false for corner pixels")
	}
	if r.Contains(4, 2) || r.Contains(0, 5) {
		t.Error("Contains() = true for pixels on the exclusive edges")
	}
	if !r.ContainsRect(NewRect(-4, 2, 8, 3)) {
		t.Error("ContainsRect(self) = false")
	}
	if r.ContainsRect(NewRect(-5, 2, 2, 2)) {
		t.Error("ContainsRect() = true for a rect crossing the left edge")
	}
	if !r.ContainsRect(Rect{}) {
		t.Error("ContainsRect(empty) = false")
	}
}

func TestRectBounds(t *testing.T) {
	got := NewRect(0, 0, 10, 10).Bounds(NewRect(20, -5, 5, 5))
	want := NewRect(0, -5, 25, 15)
	if got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if got := (Rect{}).Bounds(want); got != want {
		t.Errorf("Bounds(empty, r) = %v, want %v", got, want)
	}
}

func TestRectAtLevel(t *testing.T) {
	tests := []struct {
		r    Rect
		z    int
		want Rect
	}{
		{NewRect(100, 100, 50, 50), 0, NewRect(100, 100, 50, 50)},
		{NewRect(100, 100, 50, 50), 1, NewRect(50, 50, 25, 25)},
		{NewRect(-3, -4, 9, 9), 1, NewRect(-2, -2, 5, 5)},
		{NewRect(0, 0, 256, 256), 3, NewRect(0, 0, 32, 32)},
		{NewRect(0, 0, 5, 3), 1, NewRect(0, 0, 3, 2)},
		{NewRect(1, 1, 1, 1), 2, NewRect(0, 0, 1, 1)},
		{NewRect(3, 3, 0, 4), 1, NewRect(1, 1, 0, 0)},
	}
	for _, tt := range tests {
		if got := tt.r.AtLevel(tt.z); got != tt.want {
			t.Errorf("%v.AtLevel(%d) = %v, want %v", tt.r, tt.z, got, tt.want)
		}
	}
}

func TestRectArea(t *testing.T) {
	if got := NewRect(0, 0, 300, 50).Area(); got != 15000 {
		t.Errorf("Area() = %d, want 15000", got)
	}
	if got := NewRect(0, 0, -3, 50).Area(); got != 0 {
		t.Errorf("Area() of empty = %d, want 0", got)
	}
}
