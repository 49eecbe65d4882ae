package pixel

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/tilebuf/internal/color"
)

// Converter converts n pixels from src to dst. Both slices must hold at
// least n pixels of their respective formats and must not overlap unless
// the converter is an identity copy.
type Converter func(src, dst []byte, n int)

// Luma weights for linear Rec. 709 primaries.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

type decodeFunc func(src []byte, i int) (r, g, b, a float32)

type encodeFunc func(dst []byte, i int, r, g, b, a float32)

var (
	decoders [formatCount]decodeFunc
	encoders [formatCount]encodeFunc
	fishes   [formatCount][formatCount]Converter
)

func init() {
	decoders = [formatCount]decodeFunc{
		Gray8:      decodeGray8,
		Gray16:     decodeGray16,
		GrayFloat:  decodeGrayFloat,
		RGB8:       decodeRGB8,
		RGBA8:      decodeRGBA8,
		RGBAPremul: decodeRGBAPremul,
		BGRA8:      decodeBGRA8,
		BGRAPremul: decodeBGRAPremul,
		RGBAFloat:  decodeRGBAFloat,
	}
	encoders = [formatCount]encodeFunc{
		Gray8:      encodeGray8,
		Gray16:     encodeGray16,
		GrayFloat:  encodeGrayFloat,
		RGB8:       encodeRGB8,
		RGBA8:      encodeRGBA8,
		RGBAPremul: encodeRGBAPremul,
		BGRA8:      encodeBGRA8,
		BGRAPremul: encodeBGRAPremul,
		RGBAFloat:  encodeRGBAFloat,
	}

	for s := Format(0); s < formatCount; s++ {
		for d := Format(0); d < formatCount; d++ {
			fishes[s][d] = buildFish(s, d)
		}
	}
}

func buildFish(src, dst Format) Converter {
	if src == dst {
		bpp := src.BytesPerPixel()
		return func(s, d []byte, n int) {
			copy(d[:n*bpp], s[:n*bpp])
		}
	}
	if isSwizzlePair(src, dst) {
		return swizzleRB
	}
	dec, enc := decoders[src], encoders[dst]
	return func(s, d []byte, n int) {
		for i := range n {
			r, g, b, a := dec(s, i)
			enc(d, i, r, g, b, a)
		}
	}
}

func isSwizzlePair(a, b Format) bool {
	switch {
	case a == RGBA8 && b == BGRA8, a == BGRA8 && b == RGBA8:
		return true
	case a == RGBAPremul && b == BGRAPremul, a == BGRAPremul && b == RGBAPremul:
		return true
	}
	return false
}

func swizzleRB(s, d []byte, n int) {
	for i := range n {
		o := i * 4
		d[o], d[o+1], d[o+2], d[o+3] = s[o+2], s[o+1], s[o], s[o+3]
	}
}

// Fish returns the converter from src to dst. Both formats must be valid.
func Fish(src, dst Format) Converter {
	return fishes[src][dst]
}

// Convert converts n pixels of format srcFmt in src to dstFmt in dst.
// Identical formats are a plain copy.
func Convert(srcFmt, dstFmt Format, src, dst []byte, n int) {
	if n <= 0 {
		return
	}
	fishes[srcFmt][dstFmt](src, dst, n)
}

// ============================================================================
// Decoders
// ============================================================================

func decodeGray8(s []byte, i int) (r, g, b, a float32) {
	v := color.Decode8(s[i])
	return v, v, v, 1
}

func decodeGray16(s []byte, i int) (r, g, b, a float32) {
	v := color.Decode16(binary.LittleEndian.Uint16(s[i*2:]))
	return v, v, v, 1
}

func decodeGrayFloat(s []byte, i int) (r, g, b, a float32) {
	v := readFloat(s, i)
	return v, v, v, 1
}

func decodeRGB8(s []byte, i int) (r, g, b, a float32) {
	o := i * 3
	return color.Decode8(s[o]), color.Decode8(s[o+1]), color.Decode8(s[o+2]), 1
}

func decodeRGBA8(s []byte, i int) (r, g, b, a float32) {
	o := i * 4
	return decode4(s[o], s[o+1], s[o+2], s[o+3])
}

func decodeBGRA8(s []byte, i int) (r, g, b, a float32) {
	o := i * 4
	return decode4(s[o+2], s[o+1], s[o], s[o+3])
}

func decodeRGBAPremul(s []byte, i int) (r, g, b, a float32) {
	o := i * 4
	return decodePremul4(s[o], s[o+1], s[o+2], s[o+3])
}

func decodeBGRAPremul(s []byte, i int) (r, g, b, a float32) {
	o := i * 4
	return decodePremul4(s[o+2], s[o+1], s[o], s[o+3])
}

func decodeRGBAFloat(s []byte, i int) (r, g, b, a float32) {
	o := i * 4
	return readFloat(s, o), readFloat(s, o+1), readFloat(s, o+2), readFloat(s, o+3)
}

func decode4(r8, g8, b8, a8 uint8) (r, g, b, a float32) {
	return color.Decode8(r8), color.Decode8(g8), color.Decode8(b8), float32(a8) / 255
}

func decodePremul4(r8, g8, b8, a8 uint8) (r, g, b, a float32) {
	if a8 == 0 {
		return 0, 0, 0, 0
	}
	return decode4(unpremul(r8, a8), unpremul(g8, a8), unpremul(b8, a8), a8)
}

func unpremul(c, a uint8) uint8 {
	v := (uint32(c)*255 + uint32(a)/2) / uint32(a)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func premul(c, a uint8) uint8 {
	return uint8((uint32(c)*uint32(a) + 127) / 255)
}

func readFloat(s []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(s[i*4:]))
}

// ============================================================================
// Encoders
// ============================================================================

func luma(r, g, b float32) float32 {
	return lumaR*r + lumaG*g + lumaB*b
}

func encodeGray8(d []byte, i int, r, g, b, _ float32) {
	d[i] = color.Encode8(luma(r, g, b))
}

func encodeGray16(d []byte, i int, r, g, b, _ float32) {
	binary.LittleEndian.PutUint16(d[i*2:], color.Encode16(luma(r, g, b)))
}

func encodeGrayFloat(d []byte, i int, r, g, b, _ float32) {
	writeFloat(d, i, luma(r, g, b))
}

func encodeRGB8(d []byte, i int, r, g, b, _ float32) {
	o := i * 3
	d[o], d[o+1], d[o+2] = color.Encode8(r), color.Encode8(g), color.Encode8(b)
}

func encodeRGBA8(d []byte, i int, r, g, b, a float32) {
	o := i * 4
	d[o], d[o+1], d[o+2], d[o+3] = color.Encode8(r), color.Encode8(g), color.Encode8(b), alpha8(a)
}

func encodeBGRA8(d []byte, i int, r, g, b, a float32) {
	o := i * 4
	d[o+2], d[o+1], d[o], d[o+3] = color.Encode8(r), color.Encode8(g), color.Encode8(b), alpha8(a)
}

func encodeRGBAPremul(d []byte, i int, r, g, b, a float32) {
	o := i * 4
	a8 := alpha8(a)
	d[o] = premul(color.Encode8(r), a8)
	d[o+1] = premul(color.Encode8(g), a8)
	d[o+2] = premul(color.Encode8(b), a8)
	d[o+3] = a8
}

func encodeBGRAPremul(d []byte, i int, r, g, b, a float32) {
	o := i * 4
	a8 := alpha8(a)
	d[o+2] = premul(color.Encode8(r), a8)
	d[o+1] = premul(color.Encode8(g), a8)
	d[o] = premul(color.Encode8(b), a8)
	d[o+3] = a8
}

func encodeRGBAFloat(d []byte, i int, r, g, b, a float32) {
	o := i * 4
	writeFloat(d, o, r)
	writeFloat(d, o+1, g)
	writeFloat(d, o+2, b)
	writeFloat(d, o+3, a)
}

func alpha8(a float32) uint8 {
	return uint8(color.Quantize(a, 255))
}

func writeFloat(d []byte, i int, v float32) {
	binary.LittleEndian.PutUint32(d[i*4:], math.Float32bits(v))
}

// ============================================================================
// Helpers
// ============================================================================

// PutFloats stores vals as little-endian float32 values into dst.
func PutFloats(dst []byte, vals ...float32) {
	for i, v := range vals {
		writeFloat(dst, i, v)
	}
}

// Float reads the i-th float32 from a float-format buffer.
func Float(src []byte, i int) float32 {
	return readFloat(src, i)
}
