package processor

import (
	"context"
	"sync"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/internal/region"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// State is the coarse scheduling state of a Processor.
type State uint8

const (
	// Idle means the target is fully valid.
	Idle State = iota

	// Queued means part of the target is registered but not yet claimed.
	Queued

	// Rendering means claimed dirty rectangles are pending.
	Rendering
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case Rendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// Processor renders a target rectangle of a Node into a Cache in chunks.
//
// Processor is safe for concurrent use; steps are serialized.
type Processor struct {
	node      Node
	cache     *Cache
	format    pixel.Format
	chunkSize int
	sink      SinkFunc

	mu       sync.Mutex
	target   tile.Rect
	queued   *region.Region
	dirty    []tile.Rect
	sinkDone bool
	chunks   int
	failures int
}

// New creates a processor rendering node into c. It starts Idle with an
// empty target.
func New(node Node, c *Cache, opts ...Option) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &Processor{
		node:      node,
		cache:     c,
		format:    c.Buffer().Format(),
		chunkSize: o.chunkSize,
		sink:      o.sink,
		queued:    region.New(),
		sinkDone:  true,
	}
	if o.format != nil {
		p.format = *o.format
	}
	c.OnInvalidated(p.invalidated)
	return p
}

// ChunkSize returns the chunk area budget.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// SetTarget replaces the target and abandons every claimed rectangle of
// the previous one. Already valid parts of r are not queued.
func (p *Processor) SetTarget(r tile.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.target = r
	p.dirty = p.dirty[:0]
	p.queued = region.New(r)
	for _, v := range p.cache.validIn(r).Rects() {
		p.queued.Subtract(v)
	}
	p.sinkDone = p.sink == nil
	tilebuf.Logger().Debug("processor: target set", "target", r.String(), "queued", p.queued.Area())
}

// Target returns the current target.
func (p *Processor) Target() tile.Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// invalidated re-queues the part of r inside the target that is not
// already claimed.
func (p *Processor) invalidated(r tile.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in := r.Intersect(p.target)
	if in.Empty() {
		return
	}
	add := region.New(in)
	for _, d := range p.dirty {
		add.Subtract(d)
	}
	for _, a := range add.Rects() {
		p.queued.Add(a)
	}
	if p.sink != nil {
		p.sinkDone = false
	}
}

// Step performs one bounded unit of work and reports whether more remains.
//
// Queued area is claimed first. Then the top dirty rectangle is halved
// along its longer side, rows on ties, when it exceeds the chunk budget;
// otherwise it is rendered, written and marked valid. A node failure is
// logged and the chunk is filled with zeros and marked valid. Once the
// target is fully valid the sink, if any, runs in its own step.
func (p *Processor) Step() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.dirty) == 0 && !p.queued.Empty() {
		// Claimed rectangles leave the queued region.
		rs := p.queued.Rects()
		for i := len(rs) - 1; i >= 0; i-- {
			p.dirty = append(p.dirty, rs[i])
		}
		p.queued.Clear()
	}

	if len(p.dirty) == 0 {
		if !p.sinkDone {
			p.runSink()
		}
		return false
	}

	r := p.dirty[len(p.dirty)-1]
	p.dirty = p.dirty[:len(p.dirty)-1]
	if r.Area() > p.chunkSize {
		a, b := split(r)
		p.dirty = append(p.dirty, b, a)
		return true
	}

	p.render(r)
	return p.more()
}

func (p *Processor) more() bool {
	return len(p.dirty) > 0 || !p.queued.Empty() || !p.sinkDone
}

// split halves r along its longer side, rows on ties.
func split(r tile.Rect) (a, b tile.Rect) {
	if r.Width > r.Height {
		w := r.Width / 2
		return tile.NewRect(r.X, r.Y, w, r.Height), tile.NewRect(r.X+w, r.Y, r.Width-w, r.Height)
	}
	h := r.Height / 2
	return tile.NewRect(r.X, r.Y, r.Width, h), tile.NewRect(r.X, r.Y+h, r.Width, r.Height-h)
}

func (p *Processor) render(r tile.Rect) {
	dst := make([]byte, p.format.RowBytes(r.Width)*r.Height)
	if err := p.node.Render(r, 0, p.format, dst); err != nil {
		p.failures++
		clear(dst)
		tilebuf.Logger().Warn("processor: node failed, using blank chunk", "roi", r.String(), "err", err)
	}
	if err := p.cache.Buffer().Write(r, p.format, dst, 0); err != nil {
		p.failures++
		tilebuf.Logger().Warn("processor: chunk write failed", "roi", r.String(), "err", err)
	}
	p.chunks++
	p.cache.Computed(r)
}

func (p *Processor) runSink() {
	p.sinkDone = true
	if err := p.sink(p.cache.Buffer(), p.target); err != nil {
		p.failures++
		tilebuf.Logger().Warn("processor: sink failed", "target", p.target.String(), "err", err)
		return
	}
	tilebuf.Logger().Info("processor: target rendered", "target", p.target.String(),
		"chunks", p.chunks, "failures", p.failures)
}

// Work performs one step and returns whether more work remains together
// with the progress after the step.
func (p *Processor) Work() (more bool, progress float64) {
	more = p.Step()
	return more, p.Progress()
}

// Render steps until the target is rendered or ctx is done. The chunk in
// flight when ctx is cancelled completes first.
func (p *Processor) Render(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.Step() {
			return nil
		}
	}
}

// Progress returns the valid fraction of the target in [0, 1]: valid area
// inside the target, less queued and claimed area, over the target area.
// A zero-area target reports 1.
func (p *Processor) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.target.Area()
	if total == 0 {
		return 1
	}
	done := p.cache.validIn(p.target)
	for _, d := range p.dirty {
		done.Subtract(d)
	}
	for _, q := range p.queued.Rects() {
		done.Subtract(q)
	}
	return min(1, float64(done.Area())/float64(total))
}

// IsRendered reports whether nothing is queued or claimed.
func (p *Processor) IsRendered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dirty) == 0 && p.queued.Empty()
}

// State returns the scheduling state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case len(p.dirty) > 0:
		return Rendering
	case !p.queued.Empty():
		return Queued
	default:
		return Idle
	}
}

// Pending returns a copy of the claimed dirty rectangles, next first.
func (p *Processor) Pending() []tile.Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tile.Rect, len(p.dirty))
	for i, d := range p.dirty {
		out[len(p.dirty)-1-i] = d
	}
	return out
}

// Chunks returns the number of chunks rendered so far.
func (p *Processor) Chunks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chunks
}

// Failures returns the number of failed chunks and sink runs.
func (p *Processor) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
