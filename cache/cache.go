// Package cache keeps a bounded set of tiles resident in memory.
//
// The cache is sharded by a hash of the tile key to reduce lock contention.
// Each shard keeps its own recency list; eviction visits shards in turn and
// takes the least recently used tile that no holder has claimed, so the
// policy is an approximation of global LRU. A dirty victim is snapshotted
// and queued for the swap before it leaves the cache, and concurrent
// requests for a key being loaded or evicted wait for that to finish.
package cache

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/stats"
	"github.com/gogpu/tilebuf/swap"
	"github.com/gogpu/tilebuf/tile"
)

const (
	// shardCount is the number of shards. Must be a power of 2.
	shardCount = 16

	shardMask = shardCount - 1

	// scanDepth bounds how far from the tail a shard is searched for an
	// unclaimed victim.
	scanDepth = 32
)

// DefaultBudget is the resident byte budget of the default cache.
const DefaultBudget = 256 << 20

// ErrInvalidBudget is returned by New for a non-positive budget.
var ErrInvalidBudget = errors.New("cache: invalid budget")

// Loader produces tiles for keys that are neither resident nor swapped.
// If a Loader also implements tile.Owner, it is installed as the owner of
// every tile the cache loads on its behalf.
type Loader interface {
	Fill(key tile.Key) (*tile.Tile, error)
}

// FillFunc adapts a function to a Loader.
type FillFunc func(key tile.Key) (*tile.Tile, error)

// Fill implements Loader.
func (f FillFunc) Fill(key tile.Key) (*tile.Tile, error) { return f(key) }

// Cache is a byte-bounded tile cache backed by a swap.
//
// Cache is safe for concurrent use.
type Cache struct {
	shards   [shardCount]*shard
	budget   int64
	counters *stats.Counters
	swap     *swap.Swap

	resident atomic.Int64
	hand     atomic.Uint32

	evictMu sync.Mutex
	closed  atomic.Bool
}

type shard struct {
	mu      sync.Mutex
	entries map[tile.Key]*entry
	lru     lruList

	// busy holds keys being loaded or evicted.
	busy map[tile.Key]*transit
}

type entry struct {
	t    *tile.Tile
	node *lruNode
}

// transit is a key moving between the cache and the swap.
type transit struct {
	done     chan struct{}
	evicting bool
}

// New creates a cache holding at most budget resident bytes.
func New(budget int64, opts ...Option) (*Cache, error) {
	if budget <= 0 {
		return nil, ErrInvalidBudget
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.counters == nil {
		if o.swap != nil {
			o.counters = o.swap.Counters()
		} else {
			o.counters = stats.New()
		}
	}

	c := &Cache{
		budget:   budget,
		counters: o.counters,
		swap:     o.swap,
	}
	for i := range c.shards {
		c.shards[i] = &shard{
			entries: make(map[tile.Key]*entry),
			busy:    make(map[tile.Key]*transit),
		}
	}
	return c, nil
}

// hashKey hashes a tile key for shard selection.
func hashKey(k tile.Key) uint64 {
	var b [32]byte
	binary.LittleEndian.PutUint64(b[0:], k.Storage)
	binary.LittleEndian.PutUint64(b[8:], uint64(k.X))
	binary.LittleEndian.PutUint64(b[16:], uint64(k.Y))
	binary.LittleEndian.PutUint64(b[24:], uint64(k.Z))
	return xxhash.Sum64(b[:])
}

func (c *Cache) shardFor(k tile.Key) *shard {
	return c.shards[hashKey(k)&shardMask]
}

// Budget returns the resident byte budget.
func (c *Cache) Budget() int64 { return c.budget }

// Resident returns the bytes currently resident.
func (c *Cache) Resident() int64 { return c.resident.Load() }

// Counters returns the statistics the cache reports to.
func (c *Cache) Counters() *stats.Counters { return c.counters }

// Swap returns the swap backend, or nil.
func (c *Cache) Swap() *swap.Swap { return c.swap }

// Len returns the number of resident tiles.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// AddResident implements tile.Meter.
func (c *Cache) AddResident(delta int64) {
	c.resident.Add(delta)
	c.counters.AddCacheTotal(delta)
}

// Get returns the tile for key with a claim held for the caller. A resident
// tile is a hit. Otherwise the tile is read from the swap, or produced by
// the loader when the swap has no record, and inserted; this is a miss.
// Every call counts exactly one hit or one miss.
func (c *Cache) Get(key tile.Key, l Loader) (*tile.Tile, error) {
	s := c.shardFor(key)
	for {
		s.mu.Lock()
		if e, ok := s.entries[key]; ok {
			s.lru.MoveToFront(e.node)
			e.t.Ref()
			s.mu.Unlock()
			c.counters.Hit()
			return e.t, nil
		}
		if tr, ok := s.busy[key]; ok {
			s.mu.Unlock()
			<-tr.done
			continue
		}
		tr := &transit{done: make(chan struct{})}
		s.busy[key] = tr
		s.mu.Unlock()

		c.counters.Miss()
		t, err := c.load(key, l)
		if err != nil {
			s.mu.Lock()
			delete(s.busy, key)
			s.mu.Unlock()
			close(tr.done)
			return nil, err
		}

		t.Ref()
		c.insert(s, key, t)
		s.mu.Lock()
		delete(s.busy, key)
		s.mu.Unlock()
		close(tr.done)

		c.evict()
		return t, nil
	}
}

// load reads key from the swap or falls back to the loader. A failed swap
// read degrades to the loader and is counted as an unavailable tile.
func (c *Cache) load(key tile.Key, l Loader) (*tile.Tile, error) {
	var t *tile.Tile
	if c.swap != nil {
		data, ok, err := c.swap.Read(key)
		switch {
		case err != nil:
			tilebuf.Logger().Warn("cache: tile unavailable, using blank data",
				"key", key.String(), "err", err)
			c.counters.TileUnavailable()
		case ok:
			t = tile.New(key, data)
		}
	}
	if t == nil {
		var err error
		if t, err = l.Fill(key); err != nil {
			return nil, err
		}
	}
	if o, ok := l.(tile.Owner); ok {
		t.SetOwner(o)
	}
	return t, nil
}

// insert makes t resident under key, replacing any resident tile.
func (c *Cache) insert(s *shard, key tile.Key, t *tile.Tile) {
	charged := t.Attach(c)
	s.mu.Lock()
	old, had := s.entries[key]
	if had {
		s.lru.Remove(old.node)
	}
	s.entries[key] = &entry{t: t, node: s.lru.PushFront(key)}
	s.mu.Unlock()

	c.AddResident(charged)
	c.counters.AddCacheUncloned(int64(t.Size()))
	if had {
		c.release(old.t)
	}
}

// release uncharges a tile that left the cache.
func (c *Cache) release(t *tile.Tile) {
	c.AddResident(-t.Detach())
	c.counters.AddCacheUncloned(-int64(t.Size()))
	t.Recycle()
}

// Insert makes t resident under its key, replacing and releasing any tile
// resident there. Any swapped record for the key is discarded.
func (c *Cache) Insert(t *tile.Tile) {
	key := t.Key()
	s := c.shardFor(key)
	for {
		s.mu.Lock()
		tr, ok := s.busy[key]
		s.mu.Unlock()
		if !ok {
			break
		}
		<-tr.done
	}
	if c.swap != nil {
		if err := c.swap.Delete(key); err != nil {
			tilebuf.Logger().Warn("cache: swap delete failed", "key", key.String(), "err", err)
		}
	}
	c.insert(s, key, t)
	c.evict()
}

// Lookup returns the resident tile for key with a claim held, without
// loading or counting a hit or miss.
func (c *Cache) Lookup(key tile.Key) (*tile.Tile, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.t.Ref(), true
}

// ============================================================================
// Eviction
// ============================================================================

// evict removes unclaimed tiles until the resident total fits the budget or
// no victim can be found.
func (c *Cache) evict() {
	if c.resident.Load() <= c.budget {
		return
	}
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	for c.resident.Load() > c.budget {
		if !c.evictOne() {
			tilebuf.Logger().Debug("cache: over budget, every tile claimed",
				"resident", c.resident.Load(), "budget", c.budget)
			return
		}
	}
}

// evictOne evicts one tile, visiting shards from a rotating start.
func (c *Cache) evictOne() bool {
	start := c.hand.Add(1)
	for i := range uint32(shardCount) {
		s := c.shards[(start+i)&shardMask]
		if c.evictFrom(s) {
			return true
		}
	}
	return false
}

// evictFrom removes the least recently used unclaimed tile of s. While the
// victim is written to the swap its key stays busy, so a concurrent Get
// waits and then reads the queued data back.
func (c *Cache) evictFrom(s *shard) bool {
	s.mu.Lock()
	var victim *entry
	depth := 0
	for n := s.lru.Back(); n != nil && depth < scanDepth; n = n.prev {
		depth++
		e := s.entries[n.key]
		if e.t.Refs() != 0 {
			continue
		}
		if c.swap == nil && e.t.Dirty() {
			continue
		}
		victim = e
		break
	}
	if victim == nil {
		s.mu.Unlock()
		return false
	}
	key := victim.node.key
	s.lru.Remove(victim.node)
	delete(s.entries, key)
	tr := &transit{done: make(chan struct{}), evicting: true}
	s.busy[key] = tr
	s.mu.Unlock()

	if victim.t.Dirty() {
		data, _ := victim.t.Snapshot()
		if err := c.swap.Write(key, data, nil); err != nil {
			tilebuf.Logger().Warn("cache: dirty tile dropped", "key", key.String(), "err", err)
		}
	}

	c.release(victim.t)
	c.counters.Evicted()
	tilebuf.Logger().Debug("cache: evicted", "key", key.String())

	s.mu.Lock()
	delete(s.busy, key)
	s.mu.Unlock()
	close(tr.done)
	return true
}

// ============================================================================
// Messages
// ============================================================================

// Void discards the tile for key from memory and swap. A holder keeps its
// copy, but the copy is no longer reachable through the cache. Void waits
// for a load or eviction of key in progress, and keeps the key busy until
// the swap record is gone so no concurrent Get reads it back.
func (c *Cache) Void(key tile.Key) {
	s := c.shardFor(key)
	var tr *transit
	for {
		s.mu.Lock()
		if busy, ok := s.busy[key]; ok {
			s.mu.Unlock()
			<-busy.done
			continue
		}
		tr = &transit{done: make(chan struct{})}
		s.busy[key] = tr
		break
	}
	e, ok := s.entries[key]
	if ok {
		s.lru.Remove(e.node)
		delete(s.entries, key)
	}
	s.mu.Unlock()
	if ok {
		c.release(e.t)
	}
	if c.swap != nil {
		if err := c.swap.Delete(key); err != nil {
			tilebuf.Logger().Warn("cache: swap delete failed", "key", key.String(), "err", err)
		}
	}

	s.mu.Lock()
	delete(s.busy, key)
	s.mu.Unlock()
	close(tr.done)
}

// MarkDirty flags the resident tile for key as modified. It reports whether
// the tile was resident.
func (c *Cache) MarkDirty(key tile.Key) bool {
	t, ok := c.Lookup(key)
	if !ok {
		return false
	}
	t.MarkDirty()
	t.Unref()
	return true
}

// IsDirty reports whether key holds modifications not yet persisted.
func (c *Cache) IsDirty(key tile.Key) bool {
	if t, ok := c.Lookup(key); ok {
		dirty := t.Dirty()
		t.Unref()
		return dirty
	}
	return c.swap != nil && c.swap.Pending(key)
}

// dirtyTiles returns the dirty resident tiles of storage id with a claim
// held on each. limit <= 0 means no limit.
func (c *Cache) dirtyTiles(id uint64, limit int) []*tile.Tile {
	var out []*tile.Tile
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if k.Storage == id && e.t.Dirty() {
				out = append(out, e.t.Ref())
				if limit > 0 && len(out) >= limit {
					s.mu.Unlock()
					return out
				}
			}
		}
		s.mu.Unlock()
	}
	return out
}

// writeBack queues t for the swap and marks it stored once persisted.
func (c *Cache) writeBack(t *tile.Tile) {
	data, rev := t.Snapshot()
	err := c.swap.Write(t.Key(), data, func() { t.MarkStored(rev) })
	if err != nil {
		tilebuf.Logger().Warn("cache: write back failed", "key", t.Key().String(), "err", err)
	}
}

// FlushStorage persists every dirty resident tile of storage id and waits
// for the swap to drain. It reports whether any tile was written.
func (c *Cache) FlushStorage(id uint64) bool {
	if c.swap == nil {
		return false
	}
	tiles := c.dirtyTiles(id, 0)
	for _, t := range tiles {
		c.writeBack(t)
		t.Unref()
	}
	c.swap.Flush()
	return len(tiles) > 0
}

// Idle writes back one dirty resident tile of storage id without waiting.
// It reports whether a tile was queued.
func (c *Cache) Idle(id uint64) bool {
	if c.swap == nil {
		return false
	}
	tiles := c.dirtyTiles(id, 1)
	if len(tiles) == 0 {
		return false
	}
	c.writeBack(tiles[0])
	tiles[0].Unref()
	return true
}

// DropStorage removes every tile of storage id from memory and swap.
func (c *Cache) DropStorage(id uint64) {
	var dropped []*tile.Tile
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if k.Storage == id {
				s.lru.Remove(e.node)
				delete(s.entries, k)
				dropped = append(dropped, e.t)
			}
		}
		s.mu.Unlock()
	}
	for _, t := range dropped {
		c.release(t)
	}
	if c.swap != nil {
		c.swap.DropStorage(id)
	}
}

// Close drops every resident tile and closes the swap.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, s := range c.shards {
		s.mu.Lock()
		entries := s.entries
		s.entries = make(map[tile.Key]*entry)
		s.lru = lruList{}
		s.mu.Unlock()
		for _, e := range entries {
			c.release(e.t)
		}
	}
	if c.swap != nil {
		return c.swap.Close()
	}
	return nil
}
