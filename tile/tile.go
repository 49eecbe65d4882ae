package tile

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Key identifies a tile in the storage that owns it.
type Key struct {
	Storage uint64
	X, Y, Z int
}

// String returns the key as "storage:x,y@z".
func (k Key) String() string {
	return fmt.Sprintf("%d:%d,%d@%d", k.Storage, k.X, k.Y, k.Z)
}

// Parent returns the key of the tile one mip level up that covers k.
func (k Key) Parent() Key {
	return Key{Storage: k.Storage, X: Index(k.X, 2), Y: Index(k.Y, 2), Z: k.Z + 1}
}

// Data is a block of pixel bytes that may be shared by several tiles.
type Data struct {
	buf []byte

	// shares counts tiles referencing this block. A write through a tile
	// whose data has shares > 1 copies the block first.
	shares atomic.Int32

	// resident counts cache-resident tiles referencing this block, so the
	// cache charges shared bytes once.
	resident atomic.Int32
}

func newData(buf []byte) *Data {
	d := &Data{buf: buf}
	d.shares.Store(1)
	return d
}

// Owner receives notifications about writes to a tile. Storage implements it
// to invalidate the mip levels above a modified tile. It is a non-owning
// association used only for write-back addressing.
type Owner interface {
	TileWritten(t *Tile)
}

// Meter receives resident byte adjustments. The cache implements it to keep
// its resident total exact when a tile stops sharing its data.
type Meter interface {
	AddResident(delta int64)
}

// Tile is a fixed-size block of pixel data addressed by a Key.
//
// Thread safety: data access requires RLock (readers) or Lock (writers).
// Reference counting and dirty tracking are atomic.
type Tile struct {
	key  Key
	size int

	mu    sync.RWMutex
	data  *Data
	owner Owner
	meter Meter

	refs atomic.Int32

	// rev is bumped by every write; stored is the rev last handed to swap.
	rev    atomic.Uint64
	stored atomic.Uint64
}

// New creates a clean tile for key holding buf. The tile takes ownership of
// buf and starts with no claims.
func New(key Key, buf []byte) *Tile {
	return &Tile{key: key, size: len(buf), data: newData(buf)}
}

// Key returns the storage coordinates of the tile.
func (t *Tile) Key() Key { return t.key }

// X returns the tile column.
func (t *Tile) X() int { return t.key.X }

// Y returns the tile row.
func (t *Tile) Y() int { return t.key.Y }

// Z returns the mip level.
func (t *Tile) Z() int { return t.key.Z }

// Size returns the tile size in bytes.
func (t *Tile) Size() int { return t.size }

// SetOwner installs the write-back association. It must be called before
// the tile is published to other goroutines.
func (t *Tile) SetOwner(o Owner) { t.owner = o }

// Owner returns the write-back association, or nil.
func (t *Tile) Owner() Owner { return t.owner }

// Ref adds a claim on the tile.
func (t *Tile) Ref() *Tile {
	t.refs.Add(1)
	return t
}

// Unref releases a claim obtained from a Source or Ref.
func (t *Tile) Unref() {
	if t.refs.Add(-1) < 0 {
		panic("tile: unref of unreferenced tile " + t.key.String())
	}
}

// Refs returns the number of outstanding claims.
func (t *Tile) Refs() int { return int(t.refs.Load()) }

// RLock acquires shared read access to the tile data.
func (t *Tile) RLock() { t.mu.RLock() }

// RUnlock releases shared read access.
func (t *Tile) RUnlock() { t.mu.RUnlock() }

// Lock acquires exclusive write access. If the data is shared with another
// tile it is copied first, so the write never leaks into the other holder.
func (t *Tile) Lock() {
	t.mu.Lock()
	if t.data.shares.Load() > 1 {
		t.unshare()
	}
}

// Unlock releases write access, marks the tile dirty and notifies the owner.
func (t *Tile) Unlock() {
	t.rev.Add(1)
	owner := t.owner
	t.mu.Unlock()
	if owner != nil {
		owner.TileWritten(t)
	}
}

// unshare gives t a private copy of its data. Caller must hold t.mu.
// The old block is released only after the copy is complete, so another
// sharer never observes shares == 1 while the copy still reads it.
func (t *Tile) unshare() {
	old := t.data
	buf := getBuffer(t.size)
	copy(buf, old.buf)
	nd := newData(buf)
	if t.meter != nil {
		nd.resident.Store(1)
		t.meter.AddResident(int64(t.size))
		if old.resident.Add(-1) == 0 {
			t.meter.AddResident(-int64(t.size))
		}
	}
	t.data = nd
	old.shares.Add(-1)
}

// Bytes returns the tile data. The caller must hold RLock or Lock.
func (t *Tile) Bytes() []byte { return t.data.buf }

// Shared reports whether the data is currently shared with another tile.
func (t *Tile) Shared() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.data.shares.Load() > 1
}

// Dup returns a new tile for key that shares t's data copy-on-write.
func (t *Tile) Dup(key Key) *Tile {
	t.mu.RLock()
	d := t.data
	d.shares.Add(1)
	t.mu.RUnlock()
	n := &Tile{key: key, size: t.size, data: d}
	// A duplicate has never been persisted under its own key.
	n.rev.Store(1)
	return n
}

// Dirty reports whether the content differs from the last persisted copy.
func (t *Tile) Dirty() bool { return t.rev.Load() != t.stored.Load() }

// MarkDirty flags the tile as modified without writing to it.
func (t *Tile) MarkDirty() { t.rev.Add(1) }

// Snapshot copies the tile data and returns it with the revision it
// represents. Pass the revision to MarkStored once the copy is persisted.
func (t *Tile) Snapshot() ([]byte, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	buf := make([]byte, t.size)
	copy(buf, t.data.buf)
	return buf, t.rev.Load()
}

// MarkStored records that revision rev has been persisted. A later write
// leaves the tile dirty again.
func (t *Tile) MarkStored(rev uint64) { t.stored.Store(rev) }

// Attach marks the tile resident and charges its data to m. It returns the
// number of bytes newly charged: zero when the data is already resident
// through another tile.
func (t *Tile) Attach(m Meter) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.meter = m
	if t.data.resident.Add(1) == 1 {
		return int64(t.size)
	}
	return 0
}

// Detach marks the tile non-resident. It returns the number of bytes no
// longer charged.
func (t *Tile) Detach() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.meter == nil {
		return 0
	}
	t.meter = nil
	if t.data.resident.Add(-1) == 0 {
		return int64(t.size)
	}
	return 0
}

// Recycle returns the data block to the buffer pool when no other tile and
// no holder can observe it. It reports whether the block was recycled.
func (t *Tile) Recycle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs.Load() != 0 || t.meter != nil || t.data.shares.Load() != 1 {
		return false
	}
	putBuffer(t.data.buf)
	t.data = newData(nil)
	return true
}
