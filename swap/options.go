package swap

import "github.com/gogpu/tilebuf/stats"

// Option configures a Swap.
type Option func(*options)

type options struct {
	queueBytes  int64
	compression Compression
	counters    *stats.Counters
}

func defaultOptions() options {
	return options{
		queueBytes:  DefaultQueueBytes,
		compression: CompressNone,
	}
}

// WithQueueBytes sets the byte limit of the write queue. Values <= 0 keep
// the default.
func WithQueueBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.queueBytes = n
		}
	}
}

// WithCompression selects the record encoding.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCounters reports swap statistics to c.
func WithCounters(c *stats.Counters) Option {
	return func(o *options) {
		o.counters = c
	}
}
