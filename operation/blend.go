package operation

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// BlendMode selects how a composer layers aux over in.
type BlendMode uint8

const (
	BlendOver       BlendMode = iota // S over D
	BlendPlus                        // S + D, clamped
	BlendMultiply                    // S * D
	BlendScreen                      // 1 - (1-S)*(1-D)
	BlendDarken                      // min(S, D)
	BlendLighten                     // max(S, D)
	BlendDifference                  // |S - D|
	BlendExclusion                   // S + D - 2*S*D
)

var blendNames = [...]string{
	BlendOver:       "over",
	BlendPlus:       "plus",
	BlendMultiply:   "multiply",
	BlendScreen:     "screen",
	BlendDarken:     "darken",
	BlendLighten:    "lighten",
	BlendDifference: "difference",
	BlendExclusion:  "exclusion",
}

// String returns the mode name.
func (m BlendMode) String() string {
	if int(m) < len(blendNames) {
		return blendNames[m]
	}
	return fmt.Sprintf("BlendMode(%d)", uint8(m))
}

// ParseBlendMode returns the mode named s.
func ParseBlendMode(s string) (BlendMode, error) {
	for i, name := range blendNames {
		if strings.EqualFold(s, name) {
			return BlendMode(i), nil
		}
	}
	return 0, fmt.Errorf("operation: unknown blend mode %q", s)
}

// Blend returns a composer layering aux (source) over in (backdrop) with
// mode m. It expects pixel.RGBAFloat data: linear light, straight alpha.
// A missing aux is transparent and leaves in unchanged.
func Blend(m BlendMode) PointComposer { return blendComposer(m) }

type blendComposer BlendMode

func (c blendComposer) ProcessComposer(in, aux, out []byte, n int, _ tile.Rect, _ int) bool {
	mode := BlendMode(c)
	fn := separable(mode)
	for i := range n {
		p := i * 4
		da := pixel.Float(in, p+3)
		sa := pixel.Float(aux, p+3)

		var ra float32
		if mode == BlendPlus {
			ra = min(1, sa+da)
		} else {
			ra = sa + da - sa*da
		}
		var rgb [3]float32
		if ra > 0 {
			for ch := range 3 {
				d := pixel.Float(in, p+ch)
				s := pixel.Float(aux, p+ch)
				var v float32
				if mode == BlendPlus {
					v = min(1, s*sa+d*da)
				} else {
					v = sa*(1-da)*s + da*(1-sa)*d + sa*da*fn(s, d)
				}
				rgb[ch] = v / ra
			}
		}
		pixel.PutFloats(out[p*4:], rgb[0], rgb[1], rgb[2], ra)
	}
	return true
}

// separable returns the per-channel blend function B(s, d) on straight
// color values.
func separable(m BlendMode) func(s, d float32) float32 {
	switch m {
	case BlendMultiply:
		return func(s, d float32) float32 { return s * d }
	case BlendScreen:
		return func(s, d float32) float32 { return s + d - s*d }
	case BlendDarken:
		return func(s, d float32) float32 { return min(s, d) }
	case BlendLighten:
		return func(s, d float32) float32 { return max(s, d) }
	case BlendDifference:
		return func(s, d float32) float32 { return float32(math.Abs(float64(s - d))) }
	case BlendExclusion:
		return func(s, d float32) float32 { return s + d - 2*s*d }
	default:
		return func(s, _ float32) float32 { return s }
	}
}
