package buffer

import (
	"bytes"
	"testing"

	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// ============================================================================
// Partition
// ============================================================================

func TestIteratorPartition(t *testing.T) {
	c := newTestCache(t, 1<<22)
	b := newTestBuffer(t, c, tile.NewRect(0, 0, 256, 256), pixel.RGBA8, 64, 64)

	it := NewIterator(b, tile.NewRect(10, 10, 100, 100), 0, pixel.RGBA8, AccessRead, AbyssNone)
	var got []tile.Rect
	total := 0
	for it.Next() {
		got = append(got, it.Roi(0))
		total += it.Length()
		if len(it.Data(0)) != it.Length()*4 {
			t.Errorf("len(Data) = %d, want %d", len(it.Data(0)), it.Length()*4)
		}
	}

	want := []tile.Rect{
		tile.NewRect(10, 10, 54, 54),
		tile.NewRect(64, 10, 46, 54),
		tile.NewRect(10, 64, 54, 46),
		tile.NewRect(64, 64, 46, 46),
	}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %v, want %v", i, got[i], want[i])
		}
	}
	if total != 10000 {
		t.Errorf("total length = %d, want 10000", total)
	}
}

func TestIteratorShiftedPartition(t *testing.T) {
	c := newTestCache(t, 1<<20)
	root := newTestBuffer(t, c, tile.NewRect(0, 0, 128, 128), pixel.Gray8, 64, 64)
	v := newView(t, WithSource(root), WithShift(-10, 0))

	it := NewIterator(v, tile.NewRect(0, 0, 64, 10), 0, pixel.Gray8, AccessRead, AbyssNone)
	var got []tile.Rect
	for it.Next() {
		got = append(got, it.Roi(0))
	}
	want := []tile.Rect{tile.NewRect(0, 0, 10, 10), tile.NewRect(10, 0, 54, 10)}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestIteratorEmpty(t *testing.T) {
	c := newTestCache(t, 1<<20)
	b := newTestBuffer(t, c, tile.NewRect(0, 0, 16, 16), pixel.Gray8, 8, 8)
	it := NewIterator(b, tile.Rect{}, 0, pixel.Gray8, AccessRead, AbyssNone)
	if it.Next() {
		t.Error("Next() on empty rect = true")
	}
}

// ============================================================================
// Read / write-back
// ============================================================================

func TestIteratorReadWrite(t *testing.T) {
	c := newTestCache(t, 1<<22)
	in := newTestBuffer(t, c, tile.NewRect(0, 0, 100, 100), pixel.Gray8, 32, 16)
	out := newTestBuffer(t, c, tile.NewRect(0, 0, 50, 50), pixel.Gray8, 16, 16)

	src := gradient(100, 100)
	if err := in.Set(src, pixel.Gray8); err != nil {
		t.Fatal(err)
	}

	it := NewIterator(out, out.Extent(), 0, pixel.Gray8, AccessWrite, AbyssNone)
	aux := it.Add(in, tile.NewRect(20, 30, 50, 50), pixel.Gray8, AccessRead, AbyssNone)
	if aux != 1 {
		t.Fatalf("Add() = %d, want 1", aux)
	}
	for it.Next() {
		if r0, r1 := it.Roi(0), it.Roi(aux); r1 != r0.Translate(20, 30) {
			t.Fatalf("aux roi = %v, want %v", r1, r0.Translate(20, 30))
		}
		dst, s := it.Data(0), it.Data(aux)
		for i := range it.Length() {
			dst[i] = s[i] + 1
		}
	}

	got := readGray(t, out, out.Extent(), 0, AbyssNone)
	for y := range 50 {
		for x := range 50 {
			want := src[(y+30)*100+x+20] + 1
			if got[y*50+x] != want {
				t.Fatalf("out (%d,%d) = %d, want %d", x, y, got[y*50+x], want)
			}
		}
	}
}

func TestIteratorReadWriteInPlace(t *testing.T) {
	c := newTestCache(t, 1<<20)
	b := newTestBuffer(t, c, tile.NewRect(0, 0, 40, 40), pixel.RGBA8, 16, 16)
	if err := b.Set(bytes.Repeat([]byte{10, 20, 30, 255}, 1600), pixel.RGBA8); err != nil {
		t.Fatal(err)
	}

	it := NewIterator(b, b.Extent(), 0, pixel.RGBAFloat, AccessReadWrite, AbyssNone)
	for it.Next() {
		d := it.Data(0)
		for i := range it.Length() {
			// Swap red and blue.
			r, bl := pixel.Float(d, i*4), pixel.Float(d, i*4+2)
			pixel.PutFloats(d[(i*4)*4:], bl)
			pixel.PutFloats(d[(i*4+2)*4:], r)
		}
	}

	got := make([]byte, 1600*4)
	if err := b.Get(got, pixel.RGBA8); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{30, 20, 10, 255}, 1600)) {
		t.Errorf("after in-place iteration got %v..., want [30 20 10 255]...", got[:8])
	}
}

func TestIteratorAuxAbyss(t *testing.T) {
	c := newTestCache(t, 1<<20)
	in := newTestBuffer(t, c, tile.NewRect(0, 0, 4, 4), pixel.Gray8, 4, 4)
	if err := in.Set(bytes.Repeat([]byte{8}, 16), pixel.Gray8); err != nil {
		t.Fatal(err)
	}
	out := newTestBuffer(t, c, tile.NewRect(0, 0, 8, 1), pixel.Gray8, 8, 8)

	it := NewIterator(out, out.Extent(), 0, pixel.Gray8, AccessWrite, AbyssNone)
	aux := it.Add(in, tile.NewRect(-2, 0, 8, 1), pixel.Gray8, AccessRead, AbyssClamp)
	for it.Next() {
		copy(it.Data(0), it.Data(aux))
	}
	if got := readGray(t, out, out.Extent(), 0, AbyssNone); !bytes.Equal(got, bytes.Repeat([]byte{8}, 8)) {
		t.Errorf("clamped aux = %v, want all 8", got)
	}
}

func TestIteratorStop(t *testing.T) {
	c := newTestCache(t, 1<<20)
	b := newTestBuffer(t, c, tile.NewRect(0, 0, 32, 8), pixel.Gray8, 8, 8)

	it := NewIterator(b, b.Extent(), 0, pixel.Gray8, AccessWrite, AbyssNone)
	if !it.Next() {
		t.Fatal("Next() = false on first item")
	}
	for i := range it.Data(0) {
		it.Data(0)[i] = 1
	}
	it.Stop()
	if it.Next() {
		t.Error("Next() after Stop = true")
	}

	got := readGray(t, b, tile.NewRect(0, 0, 16, 1), 0, AbyssNone)
	want := append(bytes.Repeat([]byte{1}, 8), bytes.Repeat([]byte{0}, 8)...)
	if !bytes.Equal(got, want) {
		t.Errorf("row 0 = %v, want %v", got, want)
	}
}

func TestIteratorAddAfterStartPanics(t *testing.T) {
	c := newTestCache(t, 1<<20)
	b := newTestBuffer(t, c, tile.NewRect(0, 0, 8, 8), pixel.Gray8, 8, 8)
	it := NewIterator(b, b.Extent(), 0, pixel.Gray8, AccessRead, AbyssNone)
	it.Next()

	defer func() {
		if recover() == nil {
			t.Error("Add() after Next did not panic")
		}
	}()
	it.Add(b, b.Extent(), pixel.Gray8, AccessRead, AbyssNone)
}

func TestIteratorLevel(t *testing.T) {
	c := newTestCache(t, 1<<20)
	b := newTestBuffer(t, c, tile.NewRect(0, 0, 32, 32), pixel.Gray8, 16, 16)
	if err := b.Set(bytes.Repeat([]byte{60}, 32*32), pixel.Gray8); err != nil {
		t.Fatal(err)
	}

	it := NewIterator(b, tile.NewRect(0, 0, 16, 16), 1, pixel.Gray8, AccessRead, AbyssNone)
	if it.Level() != 1 {
		t.Errorf("Level() = %d, want 1", it.Level())
	}
	n := 0
	for it.Next() {
		n++
		if !bytes.Equal(it.Data(0), bytes.Repeat([]byte{60}, it.Length())) {
			t.Errorf("level 1 item %v not uniform 60", it.Roi(0))
		}
	}
	if n != 1 {
		t.Errorf("items = %d, want 1", n)
	}
}

func BenchmarkIteratorRGBAFloat(b *testing.B) {
	c := newBenchCache(b)
	buf, err := New(WithCache(c), WithExtent(tile.NewRect(0, 0, 512, 512)))
	if err != nil {
		b.Fatal(err)
	}
	defer buf.Close()

	b.ResetTimer()
	for range b.N {
		it := NewIterator(buf, buf.Extent(), 0, pixel.RGBAFloat, AccessReadWrite, AbyssNone)
		for it.Next() {
		}
	}
}
