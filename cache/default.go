package cache

import (
	"sync"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/swap"
)

var (
	defaultOnce  sync.Once
	defaultCache *Cache
)

// Default returns the process-wide cache used by storages created without
// an explicit cache. It is created on first use with DefaultBudget and a
// file swap in the system temporary directory; if the swap file cannot be
// created the cache runs without swap.
func Default() *Cache {
	defaultOnce.Do(func() {
		var opts []Option
		store, err := swap.NewFile("")
		if err != nil {
			tilebuf.Logger().Warn("cache: default swap unavailable", "err", err)
		} else {
			opts = append(opts, WithSwap(swap.New(store)))
		}
		defaultCache, _ = New(DefaultBudget, opts...)
	})
	return defaultCache
}
