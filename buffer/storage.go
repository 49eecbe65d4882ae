package buffer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/cache"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

// MaxLevel is the highest mip level a storage serves.
const MaxLevel = 8

// Default tile geometry for storages created implicitly.
const (
	DefaultTileWidth  = 128
	DefaultTileHeight = 64
)

var (
	// ErrInvalidTileSize is returned for non-positive tile dimensions.
	ErrInvalidTileSize = errors.New("buffer: invalid tile size")

	// ErrInvalidFormat is returned for an unknown pixel format.
	ErrInvalidFormat = errors.New("buffer: invalid pixel format")

	// ErrTileNotFound is returned for mip levels outside [0, MaxLevel].
	ErrTileNotFound = errors.New("buffer: tile not found")
)

var storageIDs atomic.Uint64

// Storage is the root of a buffer chain. It fixes the tile geometry and
// pixel format and produces tiles through a cache.
//
// Missing level-0 tiles are blank. Missing tiles at higher levels are
// built by box-filtering the four tiles below them, and any write to a
// tile voids the tiles above it.
type Storage struct {
	id         uint64
	tileWidth  int
	tileHeight int
	format     pixel.Format
	tileBytes  int
	cache      *cache.Cache
	closed     atomic.Bool
}

// StorageOption configures a Storage.
type StorageOption func(*Storage)

// WithStorageCache makes the storage use c instead of cache.Default().
func WithStorageCache(c *cache.Cache) StorageOption {
	return func(s *Storage) {
		s.cache = c
	}
}

// NewStorage creates a storage with the given tile geometry and format.
func NewStorage(tileWidth, tileHeight int, format pixel.Format, opts ...StorageOption) (*Storage, error) {
	if tileWidth <= 0 || tileHeight <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidTileSize, tileWidth, tileHeight)
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, format)
	}
	s := &Storage{
		id:         storageIDs.Add(1),
		tileWidth:  tileWidth,
		tileHeight: tileHeight,
		format:     format,
		tileBytes:  tileWidth * tileHeight * format.BytesPerPixel(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.Default()
	}
	return s, nil
}

// ID returns the storage identity used in tile keys.
func (s *Storage) ID() uint64 { return s.id }

// TileWidth returns the tile width in pixels.
func (s *Storage) TileWidth() int { return s.tileWidth }

// TileHeight returns the tile height in pixels.
func (s *Storage) TileHeight() int { return s.tileHeight }

// Format returns the native pixel format.
func (s *Storage) Format() pixel.Format { return s.format }

// PixelSize returns the bytes per pixel of the native format.
func (s *Storage) PixelSize() int { return s.format.BytesPerPixel() }

// TileBytes returns the size of one tile in bytes.
func (s *Storage) TileBytes() int { return s.tileBytes }

// Cache returns the cache holding the storage's tiles.
func (s *Storage) Cache() *cache.Cache { return s.cache }

func (s *Storage) key(x, y, z int) tile.Key {
	return tile.Key{Storage: s.id, X: x, Y: y, Z: z}
}

// GetTile implements tile.Source. It fails only for levels outside
// [0, MaxLevel].
func (s *Storage) GetTile(x, y, z int) (*tile.Tile, error) {
	if z < 0 || z > MaxLevel {
		return nil, fmt.Errorf("%w: level %d", ErrTileNotFound, z)
	}
	return s.cache.Get(s.key(x, y, z), s)
}

// Fill implements cache.Loader.
func (s *Storage) Fill(key tile.Key) (*tile.Tile, error) {
	if key.Z == 0 {
		return tile.NewBlank(key, s.tileBytes), nil
	}
	return s.zoom(key)
}

// TileWritten implements tile.Owner: the tiles above a written tile no
// longer match it.
func (s *Storage) TileWritten(t *tile.Tile) {
	s.voidAbove(t.Key())
}

func (s *Storage) voidAbove(k tile.Key) {
	for k.Z < MaxLevel {
		k = k.Parent()
		s.cache.Void(k)
	}
}

// Message implements tile.Source.
func (s *Storage) Message(msg tile.Message, x, y, z int) bool {
	switch msg {
	case tile.MsgVoid:
		k := s.key(x, y, z)
		s.cache.Void(k)
		s.voidAbove(k)
		return true
	case tile.MsgDirty:
		return s.cache.MarkDirty(s.key(x, y, z))
	case tile.MsgIsDirty:
		return s.cache.IsDirty(s.key(x, y, z))
	case tile.MsgFlushDirty:
		return s.cache.FlushStorage(s.id)
	case tile.MsgIdle:
		return s.cache.Idle(s.id)
	}
	return false
}

// Insert makes t resident as a tile of this storage, replacing any content
// at its key, and voids the tiles above it. t must carry this storage's id.
func (s *Storage) Insert(t *tile.Tile) {
	t.SetOwner(s)
	s.cache.Insert(t)
	s.voidAbove(t.Key())
}

// Close drops every tile of the storage from the cache and swap.
func (s *Storage) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cache.DropStorage(s.id)
	tilebuf.Logger().Debug("storage closed", "id", s.id)
}
