package buffer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/tilebuf"
	"github.com/gogpu/tilebuf/tile"
)

// Handler intercepts tile requests and messages on their way from a buffer
// to its source. Implementations call next to continue down the chain.
type Handler interface {
	GetTile(next tile.Source, x, y, z int) (*tile.Tile, error)
	Message(next tile.Source, msg tile.Message, x, y, z int) bool
}

type handlerLink struct {
	h    Handler
	next tile.Source
}

func (l *handlerLink) GetTile(x, y, z int) (*tile.Tile, error) {
	return l.h.GetTile(l.next, x, y, z)
}

func (l *handlerLink) Message(msg tile.Message, x, y, z int) bool {
	return l.h.Message(l.next, msg, x, y, z)
}

// LogHandler logs every tile request and message at the given level.
type LogHandler struct {
	Level slog.Level
	Name  string
}

// GetTile implements Handler.
func (h LogHandler) GetTile(next tile.Source, x, y, z int) (*tile.Tile, error) {
	t, err := next.GetTile(x, y, z)
	tilebuf.Logger().Log(context.Background(), h.Level, "get tile", "buffer", h.Name, "x", x, "y", y, "z", z, "err", err)
	return t, err
}

// Message implements Handler.
func (h LogHandler) Message(next tile.Source, msg tile.Message, x, y, z int) bool {
	ok := next.Message(msg, x, y, z)
	tilebuf.Logger().Log(context.Background(), h.Level, "tile message", "buffer", h.Name, "msg", msg.String(),
		"x", x, "y", y, "z", z, "result", ok)
	return ok
}

// CountingHandler counts tile requests passing through it.
type CountingHandler struct {
	gets     atomic.Int64
	messages atomic.Int64
}

// GetTile implements Handler.
func (h *CountingHandler) GetTile(next tile.Source, x, y, z int) (*tile.Tile, error) {
	h.gets.Add(1)
	return next.GetTile(x, y, z)
}

// Message implements Handler.
func (h *CountingHandler) Message(next tile.Source, msg tile.Message, x, y, z int) bool {
	h.messages.Add(1)
	return next.Message(msg, x, y, z)
}

// Gets returns the number of tile requests seen.
func (h *CountingHandler) Gets() int64 { return h.gets.Load() }

// Messages returns the number of messages seen.
func (h *CountingHandler) Messages() int64 { return h.messages.Load() }
