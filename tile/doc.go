// Package tile provides the addressing arithmetic and the tile type shared
// by every layer of tilebuf.
//
// A tile is a fixed-size block of pixel data in a storage's native format,
// addressed by integer coordinates (x, y, z) where z is the mip level.
// Coordinates may be negative: [Index] and [Offset] implement floor division
// and a non-negative remainder, and every other package routes coordinate
// arithmetic through them.
//
// # Ownership
//
// Tiles are reference counted. Whoever obtains a tile from a [Source] holds a
// claim on it and must call [Tile.Unref] when done; the cache never evicts a
// tile that has outstanding claims.
//
// Tile data may be shared between tiles (copy-on-write). [Tile.Lock] obtains
// exclusive write access and transparently unshares the data first.
// Readers use [Tile.RLock]; they never block each other.
package tile
