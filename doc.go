// Package tilebuf is a tiled, sparse, cache-backed pixel buffer engine.
//
// # Overview
//
// Images of unbounded extent are stored as fixed-size tiles addressed by
// (x, y, level). Tiles live in a bounded in-memory cache and spill to a
// disk swap when the cache is full; missing tiles read as blank, and tiles
// at level > 0 are built on demand by averaging the level below.
//
// The engine is split into packages:
//
//   - tile: tile addressing, copy-on-write tiles and the tile source chain
//   - pixel: pixel formats and format conversion
//   - cache: the bounded tile cache with LRU eviction
//   - swap: the asynchronous disk swap with file and LevelDB stores
//   - buffer: storages, buffer views with abyss and shift, the iterator
//   - operation: point filter and composer contracts run over the pool
//   - processor: incremental chunked rendering into a valid-region cache
//   - config: process settings loaded from TOML
//
// # Quick Start
//
//	ch, err := config.Default().Open()
//	if err != nil {
//	    return err
//	}
//	defer ch.Close()
//
//	b, err := buffer.New(buffer.WithCache(ch),
//	    buffer.WithExtent(tile.NewRect(0, 0, 256, 256)),
//	    buffer.WithFormat(pixel.RGBA8))
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	p := processor.New(node, processor.NewCache(b))
//	p.SetTarget(b.Extent())
//	for p.Step() {
//	}
//
// # Logging
//
// The library is silent by default. Install a [log/slog] logger with
// [SetLogger] to receive cache, swap and processor diagnostics.
//
// # Thread Safety
//
// Caches, storages, buffers and processors are safe for concurrent use.
// An Iterator is owned by one goroutine.
package tilebuf
