// Package processor renders a target rectangle of a node into a
// cache-backed buffer in bounded chunks.
//
// A Processor holds a target, the part of it not yet claimed for rendering
// (the queued region), and a stack of claimed dirty rectangles. Each Step
// either halves the top rectangle when its area exceeds the chunk budget,
// or renders it through the Node, writes the pixels into the Cache's
// buffer and marks them valid. Work can be abandoned between any two
// steps; at most one chunk is ever in flight.
//
//	c := processor.NewCache(out)
//	p := processor.New(node, c, processor.WithChunkSize(256*256))
//	p.SetTarget(roi)
//	for p.Step() {
//	    report(p.Progress())
//	}
package processor
