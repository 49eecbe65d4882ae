package cache

import "github.com/gogpu/tilebuf/tile"

// Residency describes where the current content of a tile lives.
type Residency uint8

const (
	// Absent means the key has never been stored or was voided.
	Absent Residency = iota

	// Clean means the tile is resident and matches its persisted copy, or
	// has none.
	Clean

	// Dirty means the tile is resident with unpersisted modifications.
	Dirty

	// PendingRead means a request is loading the tile.
	PendingRead

	// PendingWrite means the tile is not resident and its content is
	// queued for the swap.
	PendingWrite

	// Swapped means the tile is held only by the swap.
	Swapped
)

// String returns the residency name.
func (r Residency) String() string {
	switch r {
	case Absent:
		return "absent"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case PendingRead:
		return "pending-read"
	case PendingWrite:
		return "pending-write"
	case Swapped:
		return "swapped"
	default:
		return "unknown"
	}
}

// State reports the residency of key.
func (c *Cache) State(key tile.Key) Residency {
	s := c.shardFor(key)
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		dirty := e.t.Dirty()
		s.mu.Unlock()
		if dirty {
			return Dirty
		}
		return Clean
	}
	tr, busy := s.busy[key]
	s.mu.Unlock()

	if busy {
		if tr.evicting {
			return PendingWrite
		}
		return PendingRead
	}
	if c.swap == nil {
		return Absent
	}
	if c.swap.Pending(key) {
		return PendingWrite
	}
	if c.swap.Has(key) {
		return Swapped
	}
	return Absent
}
