package operation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// ErrFallbackToCPU indicates the accelerator cannot handle a band. The band
// then runs on the worker pool.
var ErrFallbackToCPU = errors.New("operation: falling back to CPU")

// Kind describes an operation contract for accelerator capability checks.
type Kind uint32

const (
	// KindFilter is a PointFilter.
	KindFilter Kind = 1 << iota

	// KindComposer is a PointComposer.
	KindComposer

	// KindComposer3 is a PointComposer3.
	KindComposer3
)

// String returns the kind names joined by "|".
func (k Kind) String() string {
	var parts []string
	if k&KindFilter != 0 {
		parts = append(parts, "filter")
	}
	if k&KindComposer != 0 {
		parts = append(parts, "composer")
	}
	if k&KindComposer3 != 0 {
		parts = append(parts, "composer3")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
	return strings.Join(parts, "|")
}

// Accelerator is an optional offload provider for whole bands.
//
// The band's inputs are staged into packed host blocks in the requested
// format before Process is called, and out is written back to the output
// buffer when Process returns nil. Returning ErrFallbackToCPU, or any other
// error, sends the band to the worker pool instead.
type Accelerator interface {
	// Name returns the accelerator name.
	Name() string

	// Init acquires device resources. Called once during registration.
	Init() error

	// Close releases device resources.
	Close()

	// CanAccelerate reports whether the accelerator handles kind.
	CanAccelerate(k Kind) bool

	// Process runs op over roi. inputs hold one packed block per input
	// buffer, nil for an absent input.
	Process(op any, inputs [][]byte, out []byte, roi tile.Rect, level int, format pixel.Format) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers a for band offload, replacing and closing
// any previous accelerator. If a.Init fails, a is not registered.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("operation: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	tilebuf.Logger().Info("operation: accelerator registered", "name", a.Name())
	return nil
}

// UnregisterAccelerator removes and closes the registered accelerator.
func UnregisterAccelerator() {
	accelMu.Lock()
	old := accel
	accel = nil
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// CurrentAccelerator returns the registered accelerator, or nil.
func CurrentAccelerator() Accelerator {
	accelMu.RLock()
	defer accelMu.RUnlock()
	return accel
}

// accelerate offers r to the registered accelerator. done is false when the
// band must run on the pool. Level 0 only: the output is written back with
// buffer.Write.
func (j *job) accelerate(r tile.Rect, o options) (done bool, err error) {
	a := CurrentAccelerator()
	if a == nil || j.level != 0 || !a.CanAccelerate(j.kind) {
		return false, nil
	}

	bpp := j.format.BytesPerPixel()
	inputs := make([][]byte, len(j.inputs))
	for i, in := range j.inputs {
		if in == nil {
			continue
		}
		inputs[i] = make([]byte, r.Area()*bpp)
		if err := in.Read(r, j.level, j.format, inputs[i], 0, o.abyss); err != nil {
			return true, err
		}
	}
	out := make([]byte, r.Area()*bpp)

	if err := a.Process(j.op, inputs, out, r, j.level, j.format); err != nil {
		if !errors.Is(err, ErrFallbackToCPU) {
			tilebuf.Logger().Warn("operation: accelerator failed, using CPU",
				"accelerator", a.Name(), "roi", r.String(), "err", err)
		}
		return false, nil
	}
	return true, j.out.Write(r, j.format, out, 0)
}
