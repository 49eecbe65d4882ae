// Package stats holds the shared counters reported by the cache and swap
// layers.
//
// A Counters value is created by the caller and handed to the cache and the
// swap backend it measures, so independent caches never mix their numbers.
// All methods are safe for concurrent use.
package stats

import (
	"fmt"
	"sync/atomic"
)

// Counters is a set of atomically updated cache and swap statistics.
//
// Gauges describe current state (resident bytes, queued bytes, busy flags)
// and follow the measured objects. Cumulative counters (hits, misses,
// stalls, bytes read and written) only grow until Reset.
type Counters struct {
	cacheTotal         atomic.Int64
	cachePeak          atomic.Int64
	cacheTotalUncloned atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	cacheEvictions     atomic.Int64

	swapTotal         atomic.Int64
	swapTotalUncloned atomic.Int64
	swapFileSize      atomic.Int64
	swapQueued        atomic.Int64
	swapQueueFull     atomic.Bool
	swapQueueStalls   atomic.Int64
	swapReading       atomic.Int32
	swapWriting       atomic.Int32
	swapReadTotal     atomic.Int64
	swapWriteTotal    atomic.Int64

	zoomTotal       atomic.Int64
	tileUnavailable atomic.Int64
}

// New returns zeroed counters.
func New() *Counters {
	return &Counters{}
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	CacheTotal         int64 // bytes resident in the cache
	CachePeak          int64 // highest CacheTotal since the last reset
	CacheTotalUncloned int64 // bytes resident if no tile data were shared
	CacheHits          int64
	CacheMisses        int64
	CacheEvictions     int64

	SwapTotal         int64 // bytes occupied in the swap store
	SwapTotalUncloned int64 // logical bytes of all swapped tiles
	SwapFileSize      int64
	SwapBusy          bool // a read or write is in flight or queued
	SwapQueued        int64
	SwapQueueFull     bool
	SwapQueueStalls   int64
	SwapReading       bool
	SwapWriting       bool
	SwapReadTotal     int64
	SwapWriteTotal    int64

	ZoomTotal       int64 // bytes produced by mip generation
	TileUnavailable int64 // swap reads that failed and were replaced by blank tiles
}

// Snapshot returns the current values. Individual fields are read
// atomically; the snapshot as a whole is not.
func (c *Counters) Snapshot() Snapshot {
	reading := c.swapReading.Load() > 0
	writing := c.swapWriting.Load() > 0
	queued := c.swapQueued.Load()
	return Snapshot{
		CacheTotal:         c.cacheTotal.Load(),
		CachePeak:          c.cachePeak.Load(),
		CacheTotalUncloned: c.cacheTotalUncloned.Load(),
		CacheHits:          c.cacheHits.Load(),
		CacheMisses:        c.cacheMisses.Load(),
		CacheEvictions:     c.cacheEvictions.Load(),
		SwapTotal:          c.swapTotal.Load(),
		SwapTotalUncloned:  c.swapTotalUncloned.Load(),
		SwapFileSize:       c.swapFileSize.Load(),
		SwapBusy:           reading || writing || queued > 0,
		SwapQueued:         queued,
		SwapQueueFull:      c.swapQueueFull.Load(),
		SwapQueueStalls:    c.swapQueueStalls.Load(),
		SwapReading:        reading,
		SwapWriting:        writing,
		SwapReadTotal:      c.swapReadTotal.Load(),
		SwapWriteTotal:     c.swapWriteTotal.Load(),
		ZoomTotal:          c.zoomTotal.Load(),
		TileUnavailable:    c.tileUnavailable.Load(),
	}
}

// Reset zeroes the cumulative counters and restarts peak tracking from the
// current resident total. Gauges are left alone since they describe data
// that is still resident or queued.
func (c *Counters) Reset() {
	c.cacheHits.Store(0)
	c.cacheMisses.Store(0)
	c.cacheEvictions.Store(0)
	c.swapQueueStalls.Store(0)
	c.swapReadTotal.Store(0)
	c.swapWriteTotal.Store(0)
	c.zoomTotal.Store(0)
	c.tileUnavailable.Store(0)
	c.cachePeak.Store(c.cacheTotal.Load())
}

// ============================================================================
// Cache
// ============================================================================

// AddCacheTotal adjusts the resident byte total and raises the peak.
func (c *Counters) AddCacheTotal(delta int64) {
	total := c.cacheTotal.Add(delta)
	for {
		peak := c.cachePeak.Load()
		if total <= peak || c.cachePeak.CompareAndSwap(peak, total) {
			return
		}
	}
}

// CacheTotal returns the resident byte total.
func (c *Counters) CacheTotal() int64 { return c.cacheTotal.Load() }

// AddCacheUncloned adjusts the resident total counted without sharing.
func (c *Counters) AddCacheUncloned(delta int64) { c.cacheTotalUncloned.Add(delta) }

// Hit counts a cache hit.
func (c *Counters) Hit() { c.cacheHits.Add(1) }

// Miss counts a cache miss.
func (c *Counters) Miss() { c.cacheMisses.Add(1) }

// Evicted counts an eviction.
func (c *Counters) Evicted() { c.cacheEvictions.Add(1) }

// TileUnavailable counts a tile replaced by blank data after a failed read.
func (c *Counters) TileUnavailable() { c.tileUnavailable.Add(1) }

// AddZoom counts bytes produced by mip generation.
func (c *Counters) AddZoom(n int64) { c.zoomTotal.Add(n) }

// ============================================================================
// Swap
// ============================================================================

// AddSwapTotal adjusts the occupied swap bytes.
func (c *Counters) AddSwapTotal(delta int64) { c.swapTotal.Add(delta) }

// AddSwapUncloned adjusts the logical swapped bytes.
func (c *Counters) AddSwapUncloned(delta int64) { c.swapTotalUncloned.Add(delta) }

// SetSwapFileSize records the current swap file size.
func (c *Counters) SetSwapFileSize(n int64) { c.swapFileSize.Store(n) }

// AddSwapQueued adjusts the bytes waiting to be written.
func (c *Counters) AddSwapQueued(delta int64) { c.swapQueued.Add(delta) }

// SetSwapQueueFull records whether the write queue is at capacity.
func (c *Counters) SetSwapQueueFull(full bool) { c.swapQueueFull.Store(full) }

// Stall counts a producer blocked on a full write queue.
func (c *Counters) Stall() { c.swapQueueStalls.Add(1) }

// BeginRead marks a swap read in flight. The returned function ends it and
// records n bytes read.
func (c *Counters) BeginRead() func(n int64) {
	c.swapReading.Add(1)
	return func(n int64) {
		c.swapReadTotal.Add(n)
		c.swapReading.Add(-1)
	}
}

// BeginWrite marks a swap write in flight. The returned function ends it
// and records n bytes written.
func (c *Counters) BeginWrite() func(n int64) {
	c.swapWriting.Add(1)
	return func(n int64) {
		c.swapWriteTotal.Add(n)
		c.swapWriting.Add(-1)
	}
}

// String summarizes the snapshot on one line.
func (s Snapshot) String() string {
	return fmt.Sprintf("cache %d/%d bytes (peak %d) hits %d misses %d; swap %d bytes file %d queued %d stalls %d; zoom %d",
		s.CacheTotal, s.CacheTotalUncloned, s.CachePeak, s.CacheHits, s.CacheMisses,
		s.SwapTotal, s.SwapFileSize, s.SwapQueued, s.SwapQueueStalls, s.ZoomTotal)
}
