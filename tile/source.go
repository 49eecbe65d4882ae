package tile

// Message is a control message forwarded along a chain of tile sources.
type Message uint8

const (
	// MsgVoid discards a tile's content, forcing regeneration.
	MsgVoid Message = iota

	// MsgDirty marks a tile as modified.
	MsgDirty

	// MsgIsDirty queries whether a tile holds unpersisted modifications.
	MsgIsDirty

	// MsgFlushDirty persists all pending modifications. Coordinates are ignored.
	MsgFlushDirty

	// MsgIdle performs one unit of background maintenance. It reports whether
	// any work was done. Coordinates are ignored.
	MsgIdle
)

// String returns the message name.
func (m Message) String() string {
	switch m {
	case MsgVoid:
		return "void"
	case MsgDirty:
		return "dirty"
	case MsgIsDirty:
		return "is-dirty"
	case MsgFlushDirty:
		return "flush-dirty"
	case MsgIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Source is the capability shared by storages, buffers and handlers: it
// produces tiles on demand and accepts control messages.
//
// GetTile returns a tile with a claim held for the caller, who must call
// Unref when done.
type Source interface {
	GetTile(x, y, z int) (*Tile, error)
	Message(msg Message, x, y, z int) bool
}
