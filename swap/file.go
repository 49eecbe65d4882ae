package swap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/tile"
)

// blockAlign is the allocation granularity of the swap file.
const blockAlign = 256

// extent is a byte range in the swap file. cap is the allocated size and
// len the bytes in use.
type extent struct {
	off, len, cap int64
}

// File is a Store keeping all records in a single temporary file.
//
// Space freed by deleted or relocated records is kept on a free list sorted
// by offset; adjacent free extents are merged, and a free extent at the end
// of the file shrinks it.
type File struct {
	path string

	mu     sync.RWMutex
	f      *os.File
	blocks map[tile.Key]extent
	free   []extent
	tail   int64
}

// NewFile creates a uniquely named swap file in dir. An empty dir uses the
// system temporary directory.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("swap: create dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("tilebuf-%d-%s.swap", os.Getpid(), uuid.NewString()))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("swap: create file: %w", err)
	}
	tilebuf.Logger().Info("swap file created", "path", path)
	return &File{
		path:   path,
		f:      f,
		blocks: make(map[tile.Key]extent),
	}, nil
}

// Path returns the swap file path.
func (s *File) Path() string { return s.path }

// Put implements Store.
func (s *File) Put(key tile.Key, data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, ErrClosed
	}

	n := int64(len(data))
	ext, ok := s.blocks[key]
	if !ok || ext.cap < n {
		if ok {
			s.release(ext)
		}
		ext = s.allocate(n)
	}
	ext.len = n

	if _, err := s.f.WriteAt(data, ext.off); err != nil {
		s.release(ext)
		delete(s.blocks, key)
		return 0, fmt.Errorf("swap: write %v: %w", key, err)
	}
	s.blocks[key] = ext
	return ext.cap, nil
}

// Get implements Store.
func (s *File) Get(key tile.Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.f == nil {
		return nil, false, ErrClosed
	}
	ext, ok := s.blocks[key]
	if !ok {
		return nil, false, nil
	}
	buf := make([]byte, ext.len)
	if _, err := s.f.ReadAt(buf, ext.off); err != nil {
		return nil, false, fmt.Errorf("swap: read %v: %w", key, err)
	}
	return buf, true, nil
}

// Delete implements Store.
func (s *File) Delete(key tile.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	if ext, ok := s.blocks[key]; ok {
		delete(s.blocks, key)
		s.release(ext)
	}
	return nil
}

// Size implements Store.
func (s *File) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tail
}

// Close implements Store. The swap file is removed.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.blocks = nil
	s.free = nil
	if rmErr := os.Remove(s.path); err == nil {
		err = rmErr
	}
	return err
}

// allocate returns an extent of at least n bytes, first fit from the free
// list, else appended at the tail. Caller must hold s.mu.
func (s *File) allocate(n int64) extent {
	need := (n + blockAlign - 1) / blockAlign * blockAlign
	if need == 0 {
		need = blockAlign
	}
	for i, fr := range s.free {
		if fr.cap < need {
			continue
		}
		ext := extent{off: fr.off, cap: need}
		if fr.cap == need {
			s.free = append(s.free[:i], s.free[i+1:]...)
		} else {
			s.free[i] = extent{off: fr.off + need, cap: fr.cap - need}
		}
		return ext
	}
	ext := extent{off: s.tail, cap: need}
	s.tail += need
	tilebuf.Logger().Debug("swap file grown", "size", s.tail)
	return ext
}

// release returns ext to the free list. Caller must hold s.mu.
func (s *File) release(ext extent) {
	ext.len = 0
	i := sort.Search(len(s.free), func(i int) bool { return s.free[i].off > ext.off })
	s.free = append(s.free, extent{})
	copy(s.free[i+1:], s.free[i:])
	s.free[i] = ext

	// Merge with the following extent, then the preceding one.
	if i+1 < len(s.free) && s.free[i].off+s.free[i].cap == s.free[i+1].off {
		s.free[i].cap += s.free[i+1].cap
		s.free = append(s.free[:i+1], s.free[i+2:]...)
	}
	if i > 0 && s.free[i-1].off+s.free[i-1].cap == s.free[i].off {
		s.free[i-1].cap += s.free[i].cap
		s.free = append(s.free[:i], s.free[i+1:]...)
	}

	if last := s.free[len(s.free)-1]; last.off+last.cap == s.tail {
		s.tail = last.off
		s.free = s.free[:len(s.free)-1]
		if s.f != nil {
			if err := s.f.Truncate(s.tail); err != nil {
				tilebuf.Logger().Debug("swap file truncate failed", "size", s.tail, "err", err)
			}
		}
	}
}
