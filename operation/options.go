package operation

import (
	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/internal/parallel"
)

// Option configures a single operation run.
type Option func(*options)

type options struct {
	pool       *parallel.WorkerPool
	threads    int
	abyss      buffer.AbyssPolicy
	accelerate bool
}

func defaultOptions() options {
	return options{
		abyss:      buffer.AbyssNone,
		accelerate: true,
	}
}

// WithPool runs bands on p instead of the process-wide pool.
func WithPool(p *parallel.WorkerPool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithThreads caps the number of bands. Values <= 0 mean one band per
// pool worker.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

// WithAbyss sets the abyss policy used when reading inputs.
func WithAbyss(p buffer.AbyssPolicy) Option {
	return func(o *options) {
		o.abyss = p
	}
}

// WithoutAccelerator keeps every band on the worker pool.
func WithoutAccelerator() Option {
	return func(o *options) {
		o.accelerate = false
	}
}
