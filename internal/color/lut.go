package color

import "math"

// decode8 maps an sRGB byte to linear light.
var decode8 [256]float32

// encode8 maps a 12-bit quantized linear value to an sRGB byte. It is
// accurate to one step and used only where exactness is not required.
var encode8 [4096]uint8

func init() {
	for i := range decode8 {
		decode8[i] = float32(srgbToLinear64(float64(i) / 255))
	}
	for i := range encode8 {
		encode8[i] = uint8(quantize64(linearToSRGB64(float64(i)/4095), 255))
	}
}

func srgbToLinear64(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

func linearToSRGB64(l float64) float64 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math.Pow(l, 1.0/2.4) - 0.055
}

func quantize64(v float64, max int) int {
	if !(v > 0) {
		return 0
	}
	q := int(v*float64(max) + 0.5)
	if q > max {
		return max
	}
	return q
}

// Decode8 converts an sRGB byte to linear light using the lookup table.
func Decode8(s uint8) float32 {
	return decode8[s]
}

// Encode8 converts linear light to an sRGB byte exactly, so that
// Encode8(Decode8(b)) == b for every byte b.
func Encode8(l float32) uint8 {
	lf := float64(l)
	if !(lf > 0) {
		return 0
	}
	if lf > 1 {
		lf = 1
	}
	return uint8(quantize64(linearToSRGB64(lf), 255))
}

// Encode8Fast converts linear light to an sRGB byte through a 12-bit table.
// The result may differ from Encode8 by one.
func Encode8Fast(l float32) uint8 {
	idx := int(Clamp01(l)*4095 + 0.5)
	if idx > 4095 {
		idx = 4095
	}
	return encode8[idx]
}

// Decode16 converts a 16-bit sRGB-encoded value to linear light.
func Decode16(s uint16) float32 {
	return float32(srgbToLinear64(float64(s) / 65535))
}

// Encode16 converts linear light to a 16-bit sRGB-encoded value.
func Encode16(l float32) uint16 {
	lf := float64(l)
	if !(lf > 0) {
		return 0
	}
	if lf > 1 {
		lf = 1
	}
	return uint16(quantize64(linearToSRGB64(lf), 65535))
}
