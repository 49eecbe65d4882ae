package processor

import (
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// Node produces the pixels of roi at level into dst, packed row by row in
// format. A returned error leaves dst undefined.
type Node interface {
	Render(roi tile.Rect, level int, format pixel.Format, dst []byte) error
}

// NodeFunc adapts a function to Node.
type NodeFunc func(roi tile.Rect, level int, format pixel.Format, dst []byte) error

// Render implements Node.
func (f NodeFunc) Render(roi tile.Rect, level int, format pixel.Format, dst []byte) error {
	return f(roi, level, format, dst)
}
