// Package config holds process-level settings for the tile engine and
// builds the shared cache from them.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/cache"
	"github.com/gogpu/tilebuf/processor"
	"github.com/gogpu/tilebuf/stats"
	"github.com/gogpu/tilebuf/swap"
)

// Swap backends.
const (
	BackendNone    = "none"
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

var (
	// ErrInvalidBackend is returned for an unknown swap backend name.
	ErrInvalidBackend = errors.New("config: invalid swap backend")

	// ErrInvalidThreads is returned for a negative thread count.
	ErrInvalidThreads = errors.New("config: invalid thread count")

	// ErrInvalidQueue is returned for a swap queue limit that is not positive.
	ErrInvalidQueue = errors.New("config: invalid swap queue size")

	// ErrInvalidChunkSize is returned for a chunk area that is not positive.
	// Positive values are clamped by the processor.
	ErrInvalidChunkSize = errors.New("config: invalid chunk size")
)

// Config groups the settings shared by every buffer of a process.
type Config struct {
	TileWidth   int    `toml:"tile_width"`
	TileHeight  int    `toml:"tile_height"`
	CacheBytes  int64  `toml:"cache_bytes"`
	Swap        string `toml:"swap"`
	SwapDir     string `toml:"swap_dir"`
	Compression string `toml:"compression"`
	QueueBytes  int64  `toml:"queue_bytes"`

	// Threads is the operation worker count; 0 uses GOMAXPROCS.
	Threads   int `toml:"threads"`
	ChunkSize int `toml:"chunk_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		TileWidth:   buffer.DefaultTileWidth,
		TileHeight:  buffer.DefaultTileHeight,
		CacheBytes:  cache.DefaultBudget,
		Swap:        BackendFile,
		Compression: swap.CompressNone.String(),
		QueueBytes:  swap.DefaultQueueBytes,
		ChunkSize:   processor.DefaultChunkSize,
	}
}

// Load reads a TOML file over the defaults and validates the result.
// Keys missing from the file keep their default value; unknown keys are
// an error.
func Load(path string) (Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.TileWidth <= 0 || c.TileHeight <= 0 {
		errs = append(errs, fmt.Errorf("%w: %dx%d", buffer.ErrInvalidTileSize, c.TileWidth, c.TileHeight))
	}
	if c.CacheBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", cache.ErrInvalidBudget, c.CacheBytes))
	}
	switch strings.ToLower(c.Swap) {
	case BackendNone, BackendFile, BackendLevelDB:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Swap))
	}
	if _, err := swap.ParseCompression(c.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.QueueBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidQueue, c.QueueBytes))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidThreads, c.Threads))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidChunkSize, c.ChunkSize))
	}
	return errors.Join(errs...)
}

// WorkerCount returns the resolved operation worker count.
func (c Config) WorkerCount() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.GOMAXPROCS(0)
}

// Open validates c and builds a cache with its counters and swap. Closing
// the cache closes the swap.
func (c Config) Open() (*cache.Cache, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	counters := stats.New()

	var store swap.Store
	var err error
	switch strings.ToLower(c.Swap) {
	case BackendFile:
		store, err = swap.NewFile(c.SwapDir)
	case BackendLevelDB:
		store, err = swap.NewLevelDB(c.SwapDir)
	}
	if err != nil {
		return nil, err
	}

	opts := []cache.Option{cache.WithCounters(counters)}
	if store != nil {
		comp, _ := swap.ParseCompression(c.Compression)
		s := swap.New(store,
			swap.WithCompression(comp),
			swap.WithQueueBytes(c.QueueBytes),
			swap.WithCounters(counters))
		opts = append(opts, cache.WithSwap(s))
	}

	ch, err := cache.New(c.CacheBytes, opts...)
	if err != nil {
		return nil, err
	}
	tilebuf.Logger().Debug("config: cache opened", "budget", c.CacheBytes, "swap", c.Swap,
		"compression", c.Compression)
	return ch, nil
}

// BufferOptions returns the buffer options selecting c's tile geometry
// on ch.
func (c Config) BufferOptions(ch *cache.Cache) []buffer.Option {
	return []buffer.Option{
		buffer.WithCache(ch),
		buffer.WithTileSize(c.TileWidth, c.TileHeight),
	}
}
