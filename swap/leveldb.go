package swap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/tile"
)

// LevelDB is a Store backed by a LevelDB database in its own directory.
type LevelDB struct {
	dir string

	mu sync.RWMutex
	db *leveldb.DB
}

// NewLevelDB opens a fresh database in a unique directory under dir. An
// empty dir uses the system temporary directory.
func NewLevelDB(dir string) (*LevelDB, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("swap: create dir: %w", err)
	}
	path, err := os.MkdirTemp(dir, "tilebuf-leveldb-")
	if err != nil {
		return nil, fmt.Errorf("swap: create dir: %w", err)
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		// Records are transient; skip the write-ahead sync.
		NoSync:      true,
		Compression: opt.NoCompression,
	})
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("swap: open leveldb: %w", err)
	}
	tilebuf.Logger().Info("swap database created", "path", path)
	return &LevelDB{dir: path, db: db}, nil
}

// Path returns the database directory.
func (s *LevelDB) Path() string { return s.dir }

// Put implements Store.
func (s *LevelDB) Put(key tile.Key, data []byte) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	if err := s.db.Put(encodeKey(key), data, nil); err != nil {
		return 0, fmt.Errorf("swap: put %v: %w", key, err)
	}
	return int64(len(data)), nil
}

// Get implements Store.
func (s *LevelDB) Get(key tile.Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, false, ErrClosed
	}
	val, err := s.db.Get(encodeKey(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("swap: get %v: %w", key, err)
	}
	return val, true, nil
}

// Delete implements Store.
func (s *LevelDB) Delete(key tile.Key) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Delete(encodeKey(key), nil)
}

// Size implements Store. It sums the database files.
func (s *LevelDB) Size() int64 {
	var total int64
	_ = filepath.WalkDir(s.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Close implements Store. The database directory is removed.
func (s *LevelDB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if rmErr := os.RemoveAll(s.dir); err == nil {
		err = rmErr
	}
	return err
}
