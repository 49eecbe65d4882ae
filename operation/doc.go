// Package operation delivers buffer regions to per-pixel operation bodies.
//
// An operation body sees packed blocks of pixels in a requested format and
// never a tile boundary: the region is split into bands across a worker
// pool, each band is walked with a buffer.Iterator, and every iterator item
// is handed to the body. A registered Accelerator may take a whole band
// instead; when it declines, the band runs on the pool.
//
// Bodies report success with their return value. A false return does not
// stop the remaining items; the call finishes the region and then returns
// an error wrapping ErrProcessFailed.
package operation
