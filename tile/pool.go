package tile

import "sync"

// Pool provides reuse of tile data blocks via sync.Pool.
//
// Blocks are grouped by byte size, since storages with different tile
// geometry or pixel formats produce different block sizes. Blocks handed
// out by Get are always zeroed.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// pools holds a *sync.Pool per block size.
	pools sync.Map
}

// NewPool creates a new block pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns a zeroed block of exactly size bytes.
func (p *Pool) Get(size int) []byte {
	if size <= 0 {
		return nil
	}
	pool := p.getOrCreatePool(size)
	bp := pool.Get().(*[]byte)
	buf := *bp
	clear(buf)
	return buf
}

// Put returns a block for reuse. Blocks of unknown size are left to the GC.
func (p *Pool) Put(buf []byte) {
	if len(buf) == 0 {
		return
	}
	if pool, ok := p.pools.Load(len(buf)); ok {
		pool.(*sync.Pool).Put(&buf)
	}
}

// getOrCreatePool gets or creates the sync.Pool for blocks of size bytes.
func (p *Pool) getOrCreatePool(size int) *sync.Pool {
	if pool, ok := p.pools.Load(size); ok {
		return pool.(*sync.Pool)
	}

	newPool := &sync.Pool{
		New: func() any {
			buf := make([]byte, size)
			return &buf
		},
	}

	// Another goroutine may have stored a pool first; use theirs.
	actual, _ := p.pools.LoadOrStore(size, newPool)
	return actual.(*sync.Pool)
}

// defaultPool is the package-level pool used for tile allocations.
var defaultPool = NewPool()

func getBuffer(size int) []byte { return defaultPool.Get(size) }

func putBuffer(buf []byte) { defaultPool.Put(buf) }

// NewBlank creates a clean zero-filled tile for key using a pooled block.
func NewBlank(key Key, size int) *Tile {
	return New(key, getBuffer(size))
}
