package operation

import (
	"math"
	"testing"

	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

func blendPixel(t *testing.T, m BlendMode, s, d [4]float32) [4]float32 {
	t.Helper()
	in := make([]byte, 16)
	aux := make([]byte, 16)
	out := make([]byte, 16)
	pixel.PutFloats(in, d[:]...)
	pixel.PutFloats(aux, s[:]...)
	if !Blend(m).ProcessComposer(in, aux, out, 1, tile.NewRect(0, 0, 1, 1), 0) {
		t.Fatal("ProcessComposer() = false")
	}
	var got [4]float32
	for i := range got {
		got[i] = pixel.Float(out, i)
	}
	return got
}

func fillRGBA(t *testing.T, b *buffer.Buffer, r, g, bl, a byte) {
	t.Helper()
	px := make([]byte, b.PixelCount()*4)
	for i := 0; i < len(px); i += 4 {
		px[i], px[i+1], px[i+2], px[i+3] = r, g, bl, a
	}
	if err := b.Set(px, pixel.RGBA8); err != nil {
		t.Fatal(err)
	}
}

func near(a, b [4]float32) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

// ============================================================================
// Blend modes
// ============================================================================

func TestBlendOpaque(t *testing.T) {
	s := [4]float32{0.2, 0.6, 1, 1}
	d := [4]float32{0.5, 0.5, 0.25, 1}
	tests := []struct {
		mode BlendMode
		want [4]float32
	}{
		{BlendOver, [4]float32{0.2, 0.6, 1, 1}},
		{BlendPlus, [4]float32{0.7, 1, 1, 1}},
		{BlendMultiply, [4]float32{0.1, 0.3, 0.25, 1}},
		{BlendScreen, [4]float32{0.6, 0.8, 1, 1}},
		{BlendDarken, [4]float32{0.2, 0.5, 0.25, 1}},
		{BlendLighten, [4]float32{0.5, 0.6, 1, 1}},
		{BlendDifference, [4]float32{0.3, 0.1, 0.75, 1}},
		{BlendExclusion, [4]float32{0.5, 0.5, 0.75, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := blendPixel(t, tt.mode, s, d); !near(got, tt.want) {
				t.Errorf("Blend(%v) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestBlendAlpha(t *testing.T) {
	tests := []struct {
		name string
		mode BlendMode
		s, d [4]float32
		want [4]float32
	}{
		{"transparent source", BlendMultiply, [4]float32{1, 0, 0, 0}, [4]float32{0.3, 0.4, 0.5, 0.6}, [4]float32{0.3, 0.4, 0.5, 0.6}},
		{"transparent backdrop", BlendMultiply, [4]float32{0.3, 0.4, 0.5, 0.6}, [4]float32{1, 1, 1, 0}, [4]float32{0.3, 0.4, 0.5, 0.6}},
		{"half over opaque", BlendOver, [4]float32{1, 0, 0, 0.5}, [4]float32{0, 0, 1, 1}, [4]float32{0.5, 0, 0.5, 1}},
		{"both transparent", BlendOver, [4]float32{}, [4]float32{}, [4]float32{}},
		{"plus sums premultiplied", BlendPlus, [4]float32{0.2, 0.2, 0.2, 0.5}, [4]float32{0.4, 0.4, 0.4, 0.5}, [4]float32{0.3, 0.3, 0.3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blendPixel(t, tt.mode, tt.s, tt.d); !near(got, tt.want) {
				t.Errorf("Blend(%v) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestBlendCompose(t *testing.T) {
	r := tile.NewRect(0, 0, 70, 70)
	in := newTestBuffer(t, r, pixel.RGBA8)
	aux := newTestBuffer(t, r, pixel.RGBA8)
	out := newTestBuffer(t, r, pixel.RGBA8)
	fillRGBA(t, in, 255, 255, 255, 255)
	fillRGBA(t, aux, 255, 0, 0, 255)

	if err := Compose(Blend(BlendMultiply), in, aux, out, r, 0, pixel.RGBAFloat, WithPool(newTestPool(t, 4))); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 4)
	if err := out.Read(tile.NewRect(69, 69, 1, 1), 0, pixel.RGBA8, got, 0, buffer.AbyssNone); err != nil {
		t.Fatal(err)
	}
	if got[0] != 255 || got[1] != 0 || got[2] != 0 || got[3] != 255 {
		t.Errorf("white multiply red = %v, want [255 0 0 255]", got)
	}
}

func TestParseBlendMode(t *testing.T) {
	for i := range blendNames {
		m := BlendMode(i)
		got, err := ParseBlendMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseBlendMode(%q) = %v, %v, want %v", m.String(), got, err, m)
		}
	}
	if got, err := ParseBlendMode("Screen"); err != nil || got != BlendScreen {
		t.Errorf("ParseBlendMode(Screen) = %v, %v", got, err)
	}
	if _, err := ParseBlendMode("dissolve"); err == nil {
		t.Error("ParseBlendMode(dissolve) error = nil")
	}
	if got := BlendMode(99).String(); got != "BlendMode(99)" {
		t.Errorf("String() = %q, want BlendMode(99)", got)
	}
}
