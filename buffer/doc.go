// Package buffer provides tiled pixel buffers.
//
// A Storage owns tiles of fixed geometry and format. A Buffer is a
// rectangular view onto a storage or onto another buffer, with its own
// extent, shift, abyss and default format. Pixel coordinates of a buffer
// map to storage coordinates by adding the buffer's total shift, the sum of
// the shifts along its chain.
//
// The abyss is the rectangle of a buffer considered to hold defined data.
// Reads outside it follow an AbyssPolicy and writes outside it are
// discarded. A view's abyss is always contained in its source's abyss, so
// it can only shrink along a chain.
//
// Reading and writing pixel rectangles goes through the same tile walker
// used by Iterator, which hands per-pixel code contiguous blocks that never
// cross a tile boundary of the primary buffer.
package buffer
