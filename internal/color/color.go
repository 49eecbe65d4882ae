// Package color provides the sRGB transfer functions used by pixel format
// conversion.
//
// Integer pixel formats hold sRGB-encoded color with linear alpha. Float
// formats hold linear light. Converting between the two goes through the
// functions here; the 8-bit paths use lookup tables so a full tile row costs
// no math.Pow calls on decode.
package color

import "math"

// SRGBToLinear converts an sRGB-encoded component in [0,1] to linear light.
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// LinearToSRGB converts a linear component in [0,1] to sRGB encoding.
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

// Clamp01 limits v to [0,1]. NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Quantize maps v in [0,1] to an integer in [0,max] with rounding.
func Quantize(v float32, max int) int {
	return int(float64(Clamp01(v))*float64(max) + 0.5)
}
