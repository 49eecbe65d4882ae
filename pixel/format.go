// Package pixel describes pixel formats and converts pixel runs between them.
//
// Integer formats store sRGB-encoded color with straight or premultiplied
// linear alpha. Float formats store linear light as little-endian float32.
// Conversion between any two formats goes through straight-alpha linear
// RGBA, with direct fast paths for identical and channel-swizzled pairs.
package pixel

import (
	"fmt"
	"strings"
)

// Format represents a pixel storage format.
type Format uint8

const (
	// Gray8 is 8-bit sRGB grayscale.
	Gray8 Format = iota

	// Gray16 is 16-bit sRGB grayscale, native byte order little-endian.
	Gray16

	// GrayFloat is linear grayscale stored as float32.
	GrayFloat

	// RGB8 is 24-bit sRGB without alpha.
	RGB8

	// RGBA8 is 32-bit sRGB with straight alpha. It is the default storage
	// format.
	RGBA8

	// RGBAPremul is 32-bit sRGB with premultiplied alpha.
	RGBAPremul

	// BGRA8 is 32-bit sRGB with straight alpha in BGRA order.
	BGRA8

	// BGRAPremul is 32-bit sRGB with premultiplied alpha in BGRA order.
	BGRAPremul

	// RGBAFloat is linear RGBA stored as four float32 values.
	RGBAFloat

	formatCount
)

// FormatInfo contains metadata about a pixel format.
type FormatInfo struct {
	Name string

	// BytesPerPixel is the size of one pixel.
	BytesPerPixel int

	// Channels is the number of stored channels.
	Channels int

	HasAlpha        bool
	IsPremultiplied bool
	IsGrayscale     bool

	// IsFloat marks linear float32 storage.
	IsFloat bool

	// BitsPerChannel is the storage width of one channel.
	BitsPerChannel int
}

var formatInfoTable = [formatCount]FormatInfo{
	Gray8:      {Name: "gray8", BytesPerPixel: 1, Channels: 1, IsGrayscale: true, BitsPerChannel: 8},
	Gray16:     {Name: "gray16", BytesPerPixel: 2, Channels: 1, IsGrayscale: true, BitsPerChannel: 16},
	GrayFloat:  {Name: "grayf", BytesPerPixel: 4, Channels: 1, IsGrayscale: true, IsFloat: true, BitsPerChannel: 32},
	RGB8:       {Name: "rgb8", BytesPerPixel: 3, Channels: 3, BitsPerChannel: 8},
	RGBA8:      {Name: "rgba8", BytesPerPixel: 4, Channels: 4, HasAlpha: true, BitsPerChannel: 8},
	RGBAPremul: {Name: "rgba8-premul", BytesPerPixel: 4, Channels: 4, HasAlpha: true, IsPremultiplied: true, BitsPerChannel: 8},
	BGRA8:      {Name: "bgra8", BytesPerPixel: 4, Channels: 4, HasAlpha: true, BitsPerChannel: 8},
	BGRAPremul: {Name: "bgra8-premul", BytesPerPixel: 4, Channels: 4, HasAlpha: true, IsPremultiplied: true, BitsPerChannel: 8},
	RGBAFloat:  {Name: "rgbaf", BytesPerPixel: 16, Channels: 4, HasAlpha: true, IsFloat: true, BitsPerChannel: 32},
}

// Info returns the FormatInfo for this format. Unknown formats return the
// zero FormatInfo.
func (f Format) Info() FormatInfo {
	if f >= formatCount {
		return FormatInfo{}
	}
	return formatInfoTable[f]
}

// BytesPerPixel returns the number of bytes per pixel.
func (f Format) BytesPerPixel() int {
	return f.Info().BytesPerPixel
}

// Channels returns the number of stored channels.
func (f Format) Channels() int {
	return f.Info().Channels
}

// HasAlpha reports whether the format stores alpha.
func (f Format) HasAlpha() bool {
	return f.Info().HasAlpha
}

// IsPremultiplied reports whether color is premultiplied by alpha.
func (f Format) IsPremultiplied() bool {
	return f.Info().IsPremultiplied
}

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

// RowBytes returns the number of bytes for a row of width pixels.
func (f Format) RowBytes(width int) int {
	return width * f.BytesPerPixel()
}

// String returns the format name.
func (f Format) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
	return formatInfoTable[f].Name
}

// ParseFormat returns the format with the given name, as produced by String.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f := Format(0); f < formatCount; f++ {
		if formatInfoTable[f].Name == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("pixel: unknown format %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("pixel: invalid format %d", uint8(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
