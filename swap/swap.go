// Package swap persists tiles evicted from the cache.
//
// A Swap owns one Store and a single writer goroutine. Writes are queued and
// return immediately unless the queue already holds its byte limit, in which
// case the producer stalls until the writer drains enough of it. Pending
// writes for the same key are coalesced, and reads consult the queue before
// the store, so a tile is never observed older than its last write.
package swap

import (
	"fmt"
	"sync"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/stats"
	"github.com/gogpu/tilebuf/tile"
)

// DefaultQueueBytes is the default write queue limit.
const DefaultQueueBytes = 50 << 20

// StoredFunc is called once the data queued by Write is persisted. It runs
// on the writer goroutine before Flush observes the write as complete.
type StoredFunc func()

type pending struct {
	key      tile.Key
	data     []byte
	onStored []StoredFunc
	dropped  bool
}

type record struct {
	stored  int64
	logical int64
}

// Swap is an asynchronous tile write-back queue in front of a Store.
type Swap struct {
	store       Store
	compression Compression
	limit       int64
	counters    *stats.Counters

	mu       sync.Mutex
	cond     *sync.Cond
	queue    map[tile.Key]*pending
	order    []tile.Key
	queued   int64
	inflight *pending
	records  map[tile.Key]record
	closed   bool

	done chan struct{}
}

// New starts a swap engine writing to store.
func New(store Store, opts ...Option) *Swap {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.counters == nil {
		o.counters = stats.New()
	}
	s := &Swap{
		store:       store,
		compression: o.compression,
		limit:       o.queueBytes,
		counters:    o.counters,
		queue:       make(map[tile.Key]*pending),
		records:     make(map[tile.Key]record),
		done:        make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.writer()
	return s
}

// Counters returns the counters the swap reports to.
func (s *Swap) Counters() *stats.Counters { return s.counters }

// Compression returns the record encoding in use.
func (s *Swap) Compression() Compression { return s.compression }

// Write queues data for key. It takes ownership of data. If the queue is
// full the call blocks until the writer has made room; a block is counted
// as a stall. onStored, if not nil, runs on the writer goroutine after the
// data, or newer data for the same key, is persisted.
func (s *Swap) Write(key tile.Key, data []byte, onStored StoredFunc) error {
	n := int64(len(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	stalled := false
	for !s.closed && s.queued > 0 && s.queued+n > s.limit {
		if !stalled {
			stalled = true
			s.counters.Stall()
			s.counters.SetSwapQueueFull(true)
		}
		s.cond.Wait()
	}
	if s.closed {
		return ErrClosed
	}

	if p, ok := s.queue[key]; ok {
		s.addQueued(n - int64(len(p.data)))
		p.data = data
		if onStored != nil {
			p.onStored = append(p.onStored, onStored)
		}
		return nil
	}

	p := &pending{key: key, data: data}
	if onStored != nil {
		p.onStored = []StoredFunc{onStored}
	}
	s.queue[key] = p
	s.order = append(s.order, key)
	s.addQueued(n)
	s.cond.Broadcast()
	return nil
}

// addQueued adjusts the queued byte count. Caller must hold s.mu.
func (s *Swap) addQueued(delta int64) {
	s.queued += delta
	s.counters.AddSwapQueued(delta)
	s.counters.SetSwapQueueFull(s.queued >= s.limit)
}

// Read returns the newest data for key, from the write queue if present,
// otherwise from the store. ok is false when the key was never written or
// has been deleted.
func (s *Swap) Read(key tile.Key) (data []byte, ok bool, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrClosed
	}
	if p, found := s.queue[key]; found {
		data = clone(p.data)
		s.mu.Unlock()
		return data, true, nil
	}
	if p := s.inflight; p != nil && p.key == key && !p.dropped {
		data = clone(p.data)
		s.mu.Unlock()
		return data, true, nil
	}
	rec, found := s.records[key]
	s.mu.Unlock()
	if !found {
		return nil, false, nil
	}

	end := s.counters.BeginRead()
	raw, ok, err := s.store.Get(key)
	if err != nil || !ok {
		end(0)
		if err == nil {
			err = fmt.Errorf("swap: record for %v missing from store", key)
		}
		return nil, false, err
	}
	end(int64(len(raw)))

	data, err = s.compression.decode(raw, int(rec.logical))
	if err != nil {
		return nil, false, fmt.Errorf("swap: read %v: %w", key, err)
	}
	if int64(len(data)) != rec.logical {
		return nil, false, fmt.Errorf("swap: read %v: got %d bytes, want %d", key, len(data), rec.logical)
	}
	return data, true, nil
}

// Has reports whether key has queued or persisted data.
func (s *Swap) Has(key tile.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[key]; ok {
		return true
	}
	if p := s.inflight; p != nil && p.key == key && !p.dropped {
		return true
	}
	_, ok := s.records[key]
	return ok
}

// Pending reports whether key has a write queued or in flight.
func (s *Swap) Pending(key tile.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[key]; ok {
		return true
	}
	p := s.inflight
	return p != nil && p.key == key && !p.dropped
}

// Delete discards key from the queue and the store.
func (s *Swap) Delete(key tile.Key) error {
	s.mu.Lock()
	s.dropQueuedLocked(key)
	rec, found := s.records[key]
	delete(s.records, key)
	s.mu.Unlock()

	if !found {
		return nil
	}
	s.counters.AddSwapTotal(-rec.stored)
	s.counters.AddSwapUncloned(-rec.logical)
	err := s.store.Delete(key)
	s.counters.SetSwapFileSize(s.store.Size())
	return err
}

// dropQueuedLocked removes key from the queue and cancels an in-flight
// write of it. Caller must hold s.mu.
func (s *Swap) dropQueuedLocked(key tile.Key) {
	if p, ok := s.queue[key]; ok {
		delete(s.queue, key)
		s.addQueued(-int64(len(p.data)))
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.cond.Broadcast()
	}
	if p := s.inflight; p != nil && p.key == key {
		p.dropped = true
	}
}

// DropStorage discards every record belonging to storage id.
func (s *Swap) DropStorage(id uint64) {
	s.mu.Lock()
	var keys []tile.Key
	for k := range s.queue {
		if k.Storage == id {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		s.dropQueuedLocked(k)
	}
	if p := s.inflight; p != nil && p.key.Storage == id {
		p.dropped = true
	}
	keys = keys[:0]
	for k := range s.records {
		if k.Storage == id {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()

	for _, k := range keys {
		if err := s.Delete(k); err != nil {
			tilebuf.Logger().Warn("swap: delete failed", "key", k.String(), "err", err)
		}
	}
}

// Flush blocks until every write queued before the call is persisted.
func (s *Swap) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.closed && (len(s.order) > 0 || s.inflight != nil) {
		s.cond.Wait()
	}
}

// Queued returns the bytes waiting to be written.
func (s *Swap) Queued() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued
}

// Close drains the queue, stops the writer and closes the store.
func (s *Swap) Close() error {
	s.Flush()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.done

	s.mu.Lock()
	var stored, logical int64
	for _, r := range s.records {
		stored += r.stored
		logical += r.logical
	}
	s.records = nil
	s.mu.Unlock()
	s.counters.AddSwapTotal(-stored)
	s.counters.AddSwapUncloned(-logical)
	s.counters.SetSwapFileSize(0)
	return s.store.Close()
}

func (s *Swap) writer() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.order) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.order) == 0 {
			s.mu.Unlock()
			return
		}
		key := s.order[0]
		s.order = s.order[1:]
		p := s.queue[key]
		delete(s.queue, key)
		s.inflight = p
		s.mu.Unlock()

		if err := s.persist(p); err != nil {
			tilebuf.Logger().Warn("swap: write failed", "key", key.String(), "err", err)
		} else {
			for _, fn := range p.onStored {
				fn()
			}
		}

		s.mu.Lock()
		s.inflight = nil
		s.addQueued(-int64(len(p.data)))
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// persist encodes and stores p, then updates accounting. A write cancelled
// while in flight is removed again.
func (s *Swap) persist(p *pending) error {
	enc, err := s.compression.encode(p.data)
	if err != nil {
		return err
	}

	end := s.counters.BeginWrite()
	stored, err := s.store.Put(p.key, enc)
	if err != nil {
		end(0)
		return err
	}
	end(int64(len(enc)))

	s.mu.Lock()
	if p.dropped {
		s.mu.Unlock()
		err = s.store.Delete(p.key)
		s.counters.SetSwapFileSize(s.store.Size())
		return err
	}
	prev := s.records[p.key]
	s.records[p.key] = record{stored: stored, logical: int64(len(p.data))}
	s.mu.Unlock()

	s.counters.AddSwapTotal(stored - prev.stored)
	s.counters.AddSwapUncloned(int64(len(p.data)) - prev.logical)
	s.counters.SetSwapFileSize(s.store.Size())
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
