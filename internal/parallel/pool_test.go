package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/tilebuf/tile"
)

// =============================================================================
// WorkerPool creation
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if want := runtime.GOMAXPROCS(0); pool.Workers() != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, pool.Workers(), want)
		}
		pool.Close()
	}
}

func TestDefaultPool(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() returned different pools")
	}
	if !Default().IsRunning() {
		t.Error("Default() pool is not running")
	}
}

// =============================================================================
// ExecuteAll
// =============================================================================

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_ExecuteAllEveryIndex(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var mu sync.Mutex
	seen := make(map[int]bool)
	work := make([]func(), 10)
	for i := range work {
		work[i] = func() {
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		}
	}
	pool.ExecuteAll(work)

	for i := range 10 {
		if !seen[i] {
			t.Errorf("missing index %d", i)
		}
	}
}

func TestWorkerPool_ExecuteAllEmpty(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	pool.ExecuteAll(nil)
	pool.ExecuteAll([]func(){})
}

func TestWorkerPool_WorkStealing(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var fast, slow atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		if i%10 == 0 {
			work[i] = func() {
				time.Sleep(5 * time.Millisecond)
				slow.Add(1)
			}
		} else {
			work[i] = func() { fast.Add(1) }
		}
	}
	pool.ExecuteAll(work)

	if slow.Load() != 10 || fast.Load() != 90 {
		t.Errorf("slow/fast = %d/%d, want 10/90", slow.Load(), fast.Load())
	}
}

// =============================================================================
// Run
// =============================================================================

func TestWorkerPool_Run(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	errA := errors.New("band a")
	errB := errors.New("band b")
	work := []func() error{
		func() error { return nil },
		func() error { return errA },
		func() error { return nil },
		func() error { return errB },
	}
	err := pool.Run(work)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Run() error = %v, want both band errors", err)
	}

	if err := pool.Run([]func() error{func() error { return nil }}); err != nil {
		t.Errorf("Run(single) error = %v, want nil", err)
	}
	if err := pool.Run(nil); err != nil {
		t.Errorf("Run(nil) error = %v, want nil", err)
	}
}

// =============================================================================
// Close
// =============================================================================

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("pool should not be running after Close")
	}
}

func TestWorkerPool_ExecuteAfterClose(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()

	var executed atomic.Bool
	pool.ExecuteAll([]func(){func() { executed.Store(true) }})
	time.Sleep(20 * time.Millisecond)

	if executed.Load() {
		t.Error("work was executed on closed pool")
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			work := make([]func(), 50)
			for i := range work {
				work[i] = func() { counter.Add(1) }
			}
			pool.ExecuteAll(work)
		}()
	}
	wg.Wait()

	if counter.Load() != 500 {
		t.Errorf("counter = %d, want 500", counter.Load())
	}
}

func TestWorkerPool_NoGoroutineLeak(t *testing.T) {
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	for range 5 {
		pool := NewWorkerPool(4)
		work := make([]func(), 100)
		for j := range work {
			work[j] = func() {}
		}
		pool.ExecuteAll(work)
		pool.Close()
	}

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	if final := runtime.NumGoroutine(); final > baseline+2 {
		t.Errorf("goroutine count: baseline=%d, final=%d (leak detected)", baseline, final)
	}
}

// =============================================================================
// Split
// =============================================================================

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		r    tile.Rect
		n    int
		want []tile.Rect
	}{
		{"rows", tile.NewRect(0, 0, 4, 8), 4, []tile.Rect{
			tile.NewRect(0, 0, 4, 2), tile.NewRect(0, 2, 4, 2),
			tile.NewRect(0, 4, 4, 2), tile.NewRect(0, 6, 4, 2),
		}},
		{"columns", tile.NewRect(-5, 3, 10, 2), 3, []tile.Rect{
			tile.NewRect(-5, 3, 3, 2), tile.NewRect(-2, 3, 3, 2), tile.NewRect(1, 3, 4, 2),
		}},
		{"square splits rows", tile.NewRect(0, 0, 3, 3), 2, []tile.Rect{
			tile.NewRect(0, 0, 3, 1), tile.NewRect(0, 1, 3, 2),
		}},
		{"more parts than rows", tile.NewRect(0, 0, 1, 2), 8, []tile.Rect{
			tile.NewRect(0, 0, 1, 1), tile.NewRect(0, 1, 1, 1),
		}},
		{"zero parts", tile.NewRect(0, 0, 4, 2), 0, []tile.Rect{tile.NewRect(0, 0, 4, 2)}},
		{"empty", tile.Rect{}, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.r, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("Split() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("band %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func BenchmarkWorkerPool_ExecuteAll(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	work := make([]func(), 64)
	for i := range work {
		work[i] = func() {}
	}
	b.ResetTimer()
	for range b.N {
		pool.ExecuteAll(work)
	}
}
