package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/tilebuf/operation"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// Pattern names accepted by --pattern.
const (
	patternChecker  = "checker"
	patternGradient = "gradient"
	patternRings    = "rings"
)

const checkerShift = 5 // 32 pixel squares

// patternNode renders a procedural image over extent. It is the source
// node of the render command.
type patternNode struct {
	kind   string
	extent tile.Rect
}

func newPatternNode(kind string, extent tile.Rect) (*patternNode, error) {
	switch strings.ToLower(kind) {
	case patternChecker, patternGradient, patternRings:
		return &patternNode{kind: strings.ToLower(kind), extent: extent}, nil
	default:
		return nil, fmt.Errorf("unknown pattern %q (want %s, %s or %s)",
			kind, patternChecker, patternGradient, patternRings)
	}
}

// Render fills dst with roi of the pattern at level in format f.
func (n *patternNode) Render(roi tile.Rect, level int, f pixel.Format, dst []byte) error {
	count := roi.Area()
	scratch := make([]byte, pixel.RGBAFloat.RowBytes(count))
	scale := 1 << level
	i := 0
	for y := roi.Y; y < roi.Bottom(); y++ {
		for x := roi.X; x < roi.Right(); x++ {
			r, g, b := n.color(x*scale, y*scale)
			pixel.PutFloats(scratch[i*16:], r, g, b, 1)
			i++
		}
	}
	pixel.Convert(pixel.RGBAFloat, f, scratch, dst, count)
	return nil
}

func (n *patternNode) color(x, y int) (r, g, b float32) {
	w := float32(max(n.extent.Width, 1))
	h := float32(max(n.extent.Height, 1))
	switch n.kind {
	case patternChecker:
		if ((x>>checkerShift)+(y>>checkerShift))&1 == 0 {
			return 0.8, 0.8, 0.8
		}
		return 0.05, 0.05, 0.1
	case patternGradient:
		return float32(x-n.extent.X) / w, float32(y-n.extent.Y) / h, 0.5
	default:
		cx := float64(n.extent.X) + float64(w)/2
		cy := float64(n.extent.Y) + float64(h)/2
		d := math.Hypot(float64(x)-cx, float64(y)-cy)
		v := float32(0.5 + 0.5*math.Sin(d/8))
		return v, v * 0.6, 1 - v
	}
}

// invert flips the color channels of linear RGBA float pixels and keeps
// alpha.
var invert = operation.FilterFunc(func(in, out []byte, n int, _ tile.Rect, _ int) bool {
	for i := range n {
		p := i * 4
		pixel.PutFloats(out[p*4:],
			1-pixel.Float(in, p),
			1-pixel.Float(in, p+1),
			1-pixel.Float(in, p+2),
			pixel.Float(in, p+3))
	}
	return true
})
