package pixel

import (
	"bytes"
	"math"
	"testing"
)

func TestConvertIdentity(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]byte, 8)
	Convert(RGBA8, RGBA8, src, dst, 2)
	if !bytes.Equal(src, dst) {
		t.Errorf("identity convert = %v, want %v", dst, src)
	}
}

func TestConvertZeroCount(t *testing.T) {
	Convert(RGBA8, Gray8, nil, nil, 0)
}

func TestConvertSwizzle(t *testing.T) {
	src := []byte{10, 20, 30, 40}
	dst := make([]byte, 4)
	Convert(RGBA8, BGRA8, src, dst, 1)
	want := []byte{30, 20, 10, 40}
	if !bytes.Equal(dst, want) {
		t.Errorf("RGBA8->BGRA8 = %v, want %v", dst, want)
	}
}

func TestConvertRoundTripFloat(t *testing.T) {
	src := make([]byte, 256*4)
	for i := range 256 {
		src[i*4] = byte(i)
		src[i*4+1] = byte(255 - i)
		src[i*4+2] = byte(i / 2)
		src[i*4+3] = byte(i)
	}

	mid := make([]byte, 256*RGBAFloat.BytesPerPixel())
	back := make([]byte, len(src))
	Convert(RGBA8, RGBAFloat, src, mid, 256)
	Convert(RGBAFloat, RGBA8, mid, back, 256)

	if !bytes.Equal(src, back) {
		for i := range src {
			if src[i] != back[i] {
				t.Fatalf("byte %d: got %d, want %d", i, back[i], src[i])
			}
		}
	}
}

func TestConvertGrayExpand(t *testing.T) {
	src := []byte{0, 128, 255}
	rgba := make([]byte, 12)
	Convert(Gray8, RGBA8, src, rgba, 3)

	want := []byte{0, 0, 0, 255, 128, 128, 128, 255, 255, 255, 255, 255}
	if !bytes.Equal(rgba, want) {
		t.Errorf("Gray8->RGBA8 = %v, want %v", rgba, want)
	}

	back := make([]byte, 3)
	Convert(RGBA8, Gray8, rgba, back, 3)
	if !bytes.Equal(back, src) {
		t.Errorf("RGBA8->Gray8 = %v, want %v", back, src)
	}
}

func TestConvertPremul(t *testing.T) {
	src := []byte{200, 100, 50, 128}
	pm := make([]byte, 4)
	Convert(RGBA8, RGBAPremul, src, pm, 1)

	want := []byte{100, 50, 25, 128}
	if !bytes.Equal(pm, want) {
		t.Errorf("RGBA8->RGBAPremul = %v, want %v", pm, want)
	}

	transparent := []byte{9, 9, 9, 0}
	out := make([]byte, 4)
	Convert(RGBAPremul, RGBA8, transparent, out, 1)
	if !bytes.Equal(out, []byte{0, 0, 0, 0}) {
		t.Errorf("transparent premul -> straight = %v, want zeros", out)
	}
}

func TestConvertLinearFloat(t *testing.T) {
	src := make([]byte, 4)
	PutFloats(src, 0.5)
	dst := make([]byte, 1)
	Convert(GrayFloat, Gray8, src, dst, 1)
	// Linear 0.5 is sRGB 188.
	if dst[0] != 188 {
		t.Errorf("GrayFloat 0.5 -> Gray8 = %d, want 188", dst[0])
	}

	f := make([]byte, 16)
	Convert(Gray8, RGBAFloat, []byte{255}, f, 1)
	for c := range 4 {
		if v := Float(f, c); math.Abs(float64(v-1)) > 1e-6 {
			t.Errorf("channel %d = %f, want 1", c, v)
		}
	}
}

func TestConvertGray16(t *testing.T) {
	src := []byte{0xff, 0xff}
	dst := make([]byte, 3)
	Convert(Gray16, RGB8, src, dst, 1)
	if !bytes.Equal(dst, []byte{255, 255, 255}) {
		t.Errorf("Gray16 white -> RGB8 = %v", dst)
	}
}

func TestFishAllPairs(t *testing.T) {
	for s := Format(0); s < formatCount; s++ {
		for d := Format(0); d < formatCount; d++ {
			if Fish(s, d) == nil {
				t.Errorf("Fish(%v, %v) = nil", s, d)
			}
			src := make([]byte, 4*s.BytesPerPixel())
			dst := make([]byte, 4*d.BytesPerPixel())
			Fish(s, d)(src, dst, 4)
		}
	}
}

func BenchmarkConvertRGBA8ToFloat(b *testing.B) {
	const n = 128 * 128
	src := make([]byte, n*4)
	dst := make([]byte, n*16)
	b.SetBytes(n * 4)
	for i := 0; i < b.N; i++ {
		Convert(RGBA8, RGBAFloat, src, dst, n)
	}
}
