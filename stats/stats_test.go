package stats

import (
	"sync"
	"testing"
)

func TestCountersPeak(t *testing.T) {
	c := New()
	c.AddCacheTotal(100)
	c.AddCacheTotal(50)
	c.AddCacheTotal(-120)

	s := c.Snapshot()
	if s.CacheTotal != 30 {
		t.Errorf("CacheTotal = %d, want 30", s.CacheTotal)
	}
	if s.CachePeak != 150 {
		t.Errorf("CachePeak = %d, want 150", s.CachePeak)
	}
}

func TestCountersReset(t *testing.T) {
	c := New()
	c.AddCacheTotal(4096)
	c.AddCacheTotal(-1024)
	c.Hit()
	c.Miss()
	c.Miss()
	c.Stall()
	c.AddSwapQueued(64)
	c.AddZoom(16)
	c.BeginRead()(10)
	c.BeginWrite()(20)

	c.Reset()
	s := c.Snapshot()

	for name, v := range map[string]int64{
		"CacheHits":       s.CacheHits,
		"CacheMisses":     s.CacheMisses,
		"SwapQueueStalls": s.SwapQueueStalls,
		"SwapReadTotal":   s.SwapReadTotal,
		"SwapWriteTotal":  s.SwapWriteTotal,
		"ZoomTotal":       s.ZoomTotal,
	} {
		if v != 0 {
			t.Errorf("%s = %d after Reset, want 0", name, v)
		}
	}
	if s.CacheTotal != 3072 {
		t.Errorf("CacheTotal = %d after Reset, want 3072 (resident data untouched)", s.CacheTotal)
	}
	if s.CachePeak != 3072 {
		t.Errorf("CachePeak = %d after Reset, want current total 3072", s.CachePeak)
	}
	if s.SwapQueued != 64 {
		t.Errorf("SwapQueued = %d after Reset, want 64", s.SwapQueued)
	}
}

func TestCountersBusyFlags(t *testing.T) {
	c := New()
	if c.Snapshot().SwapBusy {
		t.Fatal("SwapBusy set on fresh counters")
	}

	done := c.BeginRead()
	s := c.Snapshot()
	if !s.SwapReading || !s.SwapBusy {
		t.Errorf("during read: reading=%v busy=%v", s.SwapReading, s.SwapBusy)
	}
	done(128)

	s = c.Snapshot()
	if s.SwapReading || s.SwapBusy {
		t.Errorf("after read: reading=%v busy=%v", s.SwapReading, s.SwapBusy)
	}
	if s.SwapReadTotal != 128 {
		t.Errorf("SwapReadTotal = %d, want 128", s.SwapReadTotal)
	}
}

func TestCountersConcurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				c.Hit()
				c.AddCacheTotal(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.CacheHits != 8000 {
		t.Errorf("CacheHits = %d, want 8000", s.CacheHits)
	}
	if s.CachePeak != 8000 {
		t.Errorf("CachePeak = %d, want 8000", s.CachePeak)
	}
}
