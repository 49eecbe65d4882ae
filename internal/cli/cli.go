// Package cli implements the tilebuf command-line interface.
//
// The CLI renders procedural images through the incremental processor into
// a tiled buffer, optionally runs a point filter over the result, exports
// it as PNG or TIFF and reports cache and swap statistics.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The same
// charmbracelet logger is installed as the library's slog handler, so
// cache, swap and processor diagnostics share one output.
package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/tilebuf"
)

const appName = "tilebuf"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a CLI logging to w at level and routes library logs to the
// same logger.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{Logger: newLogger(w, level)}
	tilebuf.SetLogger(slog.New(c.Logger))
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "tilebuf renders procedural images through a tiled pixel buffer",
		Long:         `tilebuf renders images chunk by chunk into a sparse tiled buffer backed by a bounded tile cache and a disk swap, then exports the result.`,
		SilenceUsage: true,
	}
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.configCommand())
	return root
}

// newLogger creates a logger with timestamp formatting.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
