package operation

import (
	"errors"
	"fmt"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/internal/parallel"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// MinThreadedPixels is the smallest region split across workers. Smaller
// regions, and regions one pixel high, run on the calling goroutine.
const MinThreadedPixels = 64 * 64

// ErrProcessFailed is returned when an operation body reports failure for
// part of a region.
var ErrProcessFailed = errors.New("operation: process failed")

// PointFilter computes n output pixels from n input pixels.
type PointFilter interface {
	ProcessFilter(in, out []byte, n int, roi tile.Rect, level int) bool
}

// PointComposer computes n output pixels from an input and an auxiliary
// input.
type PointComposer interface {
	ProcessComposer(in, aux, out []byte, n int, roi tile.Rect, level int) bool
}

// PointComposer3 computes n output pixels from an input and two auxiliary
// inputs.
type PointComposer3 interface {
	ProcessComposer3(in, aux, aux2, out []byte, n int, roi tile.Rect, level int) bool
}

// FilterFunc adapts a function to PointFilter.
type FilterFunc func(in, out []byte, n int, roi tile.Rect, level int) bool

// ProcessFilter implements PointFilter.
func (f FilterFunc) ProcessFilter(in, out []byte, n int, roi tile.Rect, level int) bool {
	return f(in, out, n, roi, level)
}

// ComposerFunc adapts a function to PointComposer.
type ComposerFunc func(in, aux, out []byte, n int, roi tile.Rect, level int) bool

// ProcessComposer implements PointComposer.
func (f ComposerFunc) ProcessComposer(in, aux, out []byte, n int, roi tile.Rect, level int) bool {
	return f(in, aux, out, n, roi, level)
}

// Composer3Func adapts a function to PointComposer3.
type Composer3Func func(in, aux, aux2, out []byte, n int, roi tile.Rect, level int) bool

// ProcessComposer3 implements PointComposer3.
func (f Composer3Func) ProcessComposer3(in, aux, aux2, out []byte, n int, roi tile.Rect, level int) bool {
	return f(in, aux, aux2, out, n, roi, level)
}

// Filter runs op over roi of out at level, reading the same rectangle of
// in. Pixels are presented in format. A nil in reads as zero.
func Filter(op PointFilter, in, out *buffer.Buffer, roi tile.Rect, level int, format pixel.Format, opts ...Option) error {
	return run(&job{
		kind: KindFilter, op: op,
		inputs: []*buffer.Buffer{in}, out: out,
		roi: roi, level: level, format: format,
		body: func(ins [][]byte, o []byte, n int, r tile.Rect) bool {
			return op.ProcessFilter(ins[0], o, n, r, level)
		},
	}, opts)
}

// Compose runs op over roi of out at level with in and aux co-registered.
func Compose(op PointComposer, in, aux, out *buffer.Buffer, roi tile.Rect, level int, format pixel.Format, opts ...Option) error {
	return run(&job{
		kind: KindComposer, op: op,
		inputs: []*buffer.Buffer{in, aux}, out: out,
		roi: roi, level: level, format: format,
		body: func(ins [][]byte, o []byte, n int, r tile.Rect) bool {
			return op.ProcessComposer(ins[0], ins[1], o, n, r, level)
		},
	}, opts)
}

// Compose3 runs op over roi of out at level with in, aux and aux2
// co-registered.
func Compose3(op PointComposer3, in, aux, aux2, out *buffer.Buffer, roi tile.Rect, level int, format pixel.Format, opts ...Option) error {
	return run(&job{
		kind: KindComposer3, op: op,
		inputs: []*buffer.Buffer{in, aux, aux2}, out: out,
		roi: roi, level: level, format: format,
		body: func(ins [][]byte, o []byte, n int, r tile.Rect) bool {
			return op.ProcessComposer3(ins[0], ins[1], ins[2], o, n, r, level)
		},
	}, opts)
}

type job struct {
	kind   Kind
	op     any
	inputs []*buffer.Buffer
	out    *buffer.Buffer
	roi    tile.Rect
	level  int
	format pixel.Format
	body   func(ins [][]byte, out []byte, n int, roi tile.Rect) bool
}

func run(j *job, opts []Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if j.out == nil {
		return errors.New("operation: nil output buffer")
	}
	if !j.format.IsValid() {
		return fmt.Errorf("operation: invalid format %v", j.format)
	}
	if j.roi.Empty() {
		return nil
	}

	pool := o.pool
	if pool == nil {
		pool = parallel.Default()
	}
	threads := pool.Workers()
	if o.threads > 0 {
		threads = min(threads, o.threads)
	}

	if threads <= 1 || j.roi.Height <= 1 || j.roi.Area() < MinThreadedPixels {
		return j.band(j.roi, o)
	}
	bands := parallel.Split(j.roi, threads)
	work := make([]func() error, len(bands))
	for i, b := range bands {
		work[i] = func() error { return j.band(b, o) }
	}
	return pool.Run(work)
}

// band processes one band, on the accelerator when it accepts the work.
func (j *job) band(r tile.Rect, o options) error {
	if o.accelerate {
		if done, err := j.accelerate(r, o); done {
			return err
		}
	}
	return j.iterate(r, o)
}

// iterate walks r of the output with every input registered on the same
// iterator.
func (j *job) iterate(r tile.Rect, o options) error {
	it := buffer.NewIterator(j.out, r, j.level, j.format, buffer.AccessWrite, buffer.AbyssNone)
	idx := make([]int, len(j.inputs))
	var zeros []byte
	for i, in := range j.inputs {
		if in == nil {
			idx[i] = -1
			if zeros == nil {
				zeros = make([]byte, j.out.TileWidth()*j.out.TileHeight()*j.format.BytesPerPixel())
			}
			continue
		}
		idx[i] = it.Add(in, r, j.format, buffer.AccessRead, o.abyss)
	}

	ins := make([][]byte, len(j.inputs))
	failed := 0
	for it.Next() {
		n := it.Length()
		for i, k := range idx {
			if k < 0 {
				ins[i] = zeros[:n*j.format.BytesPerPixel()]
				clear(ins[i])
				continue
			}
			ins[i] = it.Data(k)
		}
		if !j.body(ins, it.Data(0), n, it.Roi(0)) {
			failed++
		}
	}
	if failed > 0 {
		tilebuf.Logger().Warn("operation: body failed", "kind", j.kind.String(), "roi", r.String(), "items", failed)
		return fmt.Errorf("%w: %d items in %v", ErrProcessFailed, failed, r)
	}
	return nil
}
