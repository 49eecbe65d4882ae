package swap

import (
	"encoding/binary"
	"errors"

	"github.com/gogpu/tilebuf/tile"
)

// ErrClosed is returned by operations on a closed swap or store.
var ErrClosed = errors.New("swap: closed")

// Store persists encoded tile records by key. Implementations are safe for
// concurrent use; the swap engine issues at most one Put at a time.
type Store interface {
	// Put stores data under key, replacing any previous record. It returns
	// the number of bytes the record occupies in the store.
	Put(key tile.Key, data []byte) (int64, error)

	// Get returns the record for key. ok is false when none exists.
	Get(key tile.Key) (data []byte, ok bool, err error)

	// Delete removes the record for key. Deleting a missing key is not an
	// error.
	Delete(key tile.Key) error

	// Size returns the on-disk footprint of the store in bytes.
	Size() int64

	// Close releases the store and removes its files.
	Close() error
}

// keyLen is the length of an encoded key.
const keyLen = 32

// encodeKey returns a big-endian encoding of key whose byte order matches
// (storage, z, y, x) order, with signs flipped so negative coordinates
// sort before positive ones.
func encodeKey(k tile.Key) []byte {
	b := make([]byte, keyLen)
	binary.BigEndian.PutUint64(b[0:], k.Storage)
	binary.BigEndian.PutUint64(b[8:], flipSign(k.Z))
	binary.BigEndian.PutUint64(b[16:], flipSign(k.Y))
	binary.BigEndian.PutUint64(b[24:], flipSign(k.X))
	return b
}

func flipSign(v int) uint64 {
	return uint64(int64(v)) ^ (1 << 63)
}
