package cache

import (
	"github.com/gogpu/tilebuf/stats"
	"github.com/gogpu/tilebuf/swap"
)

// Option configures a Cache.
type Option func(*options)

type options struct {
	swap     *swap.Swap
	counters *stats.Counters
}

func defaultOptions() options {
	return options{}
}

// WithSwap backs the cache with s. The cache closes s when it is closed.
// Without a swap, dirty tiles are never evicted.
func WithSwap(s *swap.Swap) Option {
	return func(o *options) {
		o.swap = s
	}
}

// WithCounters reports cache statistics to c. It defaults to the swap's
// counters, so one snapshot covers both layers.
func WithCounters(c *stats.Counters) Option {
	return func(o *options) {
		o.counters = c
	}
}
