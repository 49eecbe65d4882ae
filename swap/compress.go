package swap

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how tile records are encoded before reaching the
// store.
type Compression uint8

const (
	// CompressNone stores raw tile bytes.
	CompressNone Compression = iota

	// CompressZstd stores zstd-compressed tile bytes.
	CompressZstd
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressNone:
		return "none"
	case CompressZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression returns the compression named s.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressNone, nil
	case "zstd":
		return CompressZstd, nil
	default:
		return 0, fmt.Errorf("swap: unknown compression %q", s)
	}
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedFastest))
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	},
}

func (c Compression) encode(data []byte) ([]byte, error) {
	if c != CompressZstd {
		return data, nil
	}
	enc := zstdEncPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(data, make([]byte, 0, len(data)/4))
	zstdEncPool.Put(enc)
	return out, nil
}

func (c Compression) decode(data []byte, size int) ([]byte, error) {
	if c != CompressZstd {
		return data, nil
	}
	dec := zstdDecPool.Get().(*zstd.Decoder)
	out, err := dec.DecodeAll(data, make([]byte, 0, size))
	zstdDecPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
