package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/cache"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/swap"
	"github.com/gogpu/tilebuf/tile"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tilebuf.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ============================================================================
// Defaults and validation
// ============================================================================

func TestDefaultValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.CacheBytes != cache.DefaultBudget {
		t.Errorf("CacheBytes = %d, want %d", c.CacheBytes, cache.DefaultBudget)
	}
	if c.TileWidth != buffer.DefaultTileWidth || c.TileHeight != buffer.DefaultTileHeight {
		t.Errorf("tile size = %dx%d, want %dx%d", c.TileWidth, c.TileHeight,
			buffer.DefaultTileWidth, buffer.DefaultTileHeight)
	}
	if c.Swap != BackendFile {
		t.Errorf("Swap = %q, want %q", c.Swap, BackendFile)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"zero tile width", func(c *Config) { c.TileWidth = 0 }, buffer.ErrInvalidTileSize},
		{"negative tile height", func(c *Config) { c.TileHeight = -4 }, buffer.ErrInvalidTileSize},
		{"zero budget", func(c *Config) { c.CacheBytes = 0 }, cache.ErrInvalidBudget},
		{"backend", func(c *Config) { c.Swap = "tape" }, ErrInvalidBackend},
		{"threads", func(c *Config) { c.Threads = -1 }, ErrInvalidThreads},
		{"negative queue", func(c *Config) { c.QueueBytes = -1 }, ErrInvalidQueue},
		{"zero queue", func(c *Config) { c.QueueBytes = 0 }, ErrInvalidQueue},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunkSize},
		{"negative chunk", func(c *Config) { c.ChunkSize = -64 }, ErrInvalidChunkSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	c := Default()
	c.TileWidth = 0
	c.CacheBytes = -1
	c.Compression = "lzma"

	err := c.Validate()
	if !errors.Is(err, buffer.ErrInvalidTileSize) || !errors.Is(err, cache.ErrInvalidBudget) {
		t.Errorf("Validate() = %v, want tile size and budget errors", err)
	}
	if !strings.Contains(err.Error(), "lzma") {
		t.Errorf("Validate() = %v, want compression error", err)
	}
}

func TestWorkerCount(t *testing.T) {
	c := Default()
	if c.WorkerCount() < 1 {
		t.Errorf("WorkerCount() = %d, want >= 1", c.WorkerCount())
	}
	c.Threads = 3
	if c.WorkerCount() != 3 {
		t.Errorf("WorkerCount() = %d, want 3", c.WorkerCount())
	}
}

// ============================================================================
// Loading
// ============================================================================

func TestLoad(t *testing.T) {
	path := writeFile(t, `
tile_width = 64
tile_height = 32
cache_bytes = 1048576
swap = "leveldb"
compression = "zstd"
threads = 2
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.TileWidth != 64 || c.TileHeight != 32 {
		t.Errorf("tile size = %dx%d, want 64x32", c.TileWidth, c.TileHeight)
	}
	if c.CacheBytes != 1<<20 || c.Swap != BackendLevelDB || c.Compression != "zstd" || c.Threads != 2 {
		t.Errorf("Load() = %+v", c)
	}
	if c.QueueBytes != swap.DefaultQueueBytes {
		t.Errorf("QueueBytes = %d, want default %d", c.QueueBytes, swap.DefaultQueueBytes)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "tile_width = = 3", "config:"},
		{"unknown key", "tile_depth = 3", "unknown keys tile_depth"},
		{"invalid value", "cache_bytes = 0", "invalid budget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

// ============================================================================
// Open
// ============================================================================

func TestOpen(t *testing.T) {
	for _, backend := range []string{BackendNone, BackendFile, BackendLevelDB} {
		t.Run(backend, func(t *testing.T) {
			c := Default()
			c.Swap = backend
			c.SwapDir = t.TempDir()
			c.CacheBytes = 8 * 32 * 32 * 4
			c.TileWidth, c.TileHeight = 32, 32
			c.Compression = "zstd"

			ch, err := c.Open()
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer ch.Close()
			if (ch.Swap() == nil) != (backend == BackendNone) {
				t.Errorf("Swap() = %v for backend %q", ch.Swap(), backend)
			}
			if ch.Budget() != c.CacheBytes {
				t.Errorf("Budget() = %d, want %d", ch.Budget(), c.CacheBytes)
			}

			r := tile.NewRect(0, 0, 64, 64)
			b, err := buffer.New(append(c.BufferOptions(ch), buffer.WithExtent(r), buffer.WithFormat(pixel.Gray8))...)
			if err != nil {
				t.Fatal(err)
			}
			defer b.Close()
			if b.TileWidth() != 32 || b.TileHeight() != 32 {
				t.Errorf("tile size = %dx%d, want 32x32", b.TileWidth(), b.TileHeight())
			}
			src := make([]byte, r.Area())
			for i := range src {
				src[i] = byte(i % 13)
			}
			if err := b.Set(src, pixel.Gray8); err != nil {
				t.Fatal(err)
			}
			got := make([]byte, r.Area())
			if err := b.Get(got, pixel.Gray8); err != nil {
				t.Fatal(err)
			}
			for i := range got {
				if got[i] != src[i] {
					t.Fatalf("pixel %d = %d, want %d", i, got[i], src[i])
				}
			}
		})
	}
}

func TestOpenInvalid(t *testing.T) {
	c := Default()
	c.CacheBytes = 0
	if _, err := c.Open(); !errors.Is(err, cache.ErrInvalidBudget) {
		t.Errorf("Open() error = %v, want ErrInvalidBudget", err)
	}
}
