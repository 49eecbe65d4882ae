package cli

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/internal/parallel"
	"github.com/gogpu/tilebuf/operation"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/processor"
	"github.com/gogpu/tilebuf/tile"
)

const (
	defaultWidth  = 1024
	defaultHeight = 768
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	config  string  // configuration file
	output  string  // output image path, .png or .tif
	pattern string  // procedural source
	width   int     // target width in pixels
	height  int     // target height in pixels
	invert  bool    // run the invert filter over the rendered target
	overlay string  // second pattern blended over the first
	blend   string  // blend mode of the overlay
	scale   float64 // export resampling factor
	chunk   int     // chunk area override, 0 keeps the configured value
	threads int     // worker override, 0 keeps the configured value
	stats   bool    // print cache and swap statistics
	lang    string  // locale of the statistics report
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		pattern: patternRings,
		width:   defaultWidth,
		height:  defaultHeight,
		scale:   1,
		blend:   operation.BlendMultiply.String(),
		lang:    "en",
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a procedural image chunk by chunk and export it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				opts.output = opts.pattern + ".png"
			}
			return c.runRender(cmd.Context(), cmd, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "configuration file (TOML)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.png, .tif, .tiff)")
	cmd.Flags().StringVarP(&opts.pattern, "pattern", "p", opts.pattern, "source pattern: checker, gradient, rings")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "image width")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "image height")
	cmd.Flags().BoolVar(&opts.invert, "invert", false, "invert colors before export")
	cmd.Flags().StringVar(&opts.overlay, "overlay", "", "pattern to blend over the source")
	cmd.Flags().StringVar(&opts.blend, "blend", opts.blend, "overlay blend mode: over, plus, multiply, screen, darken, lighten, difference, exclusion")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "resample the exported image by this factor")
	cmd.Flags().IntVar(&opts.chunk, "chunk", 0, "chunk area in pixels (overrides config)")
	cmd.Flags().IntVar(&opts.threads, "threads", 0, "worker threads (overrides config)")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print cache and swap statistics")
	cmd.Flags().StringVar(&opts.lang, "lang", opts.lang, "locale for number formatting in --stats")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, cmd *cobra.Command, opts *renderOpts) error {
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("invalid size %dx%d", opts.width, opts.height)
	}
	if math.IsNaN(opts.scale) || opts.scale <= 0 {
		return fmt.Errorf("invalid scale %v", opts.scale)
	}
	if _, err := exportFormat(opts.output); err != nil {
		return err
	}
	tag, err := language.Parse(opts.lang)
	if err != nil {
		return fmt.Errorf("invalid --lang: %w", err)
	}

	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	if opts.threads > 0 {
		cfg.Threads = opts.threads
	}
	if opts.chunk > 0 {
		cfg.ChunkSize = opts.chunk
	}

	extent := tile.NewRect(0, 0, opts.width, opts.height)
	node, err := newPatternNode(opts.pattern, extent)
	if err != nil {
		return err
	}
	job := &renderJob{opts: opts, logger: c.Logger, chunk: cfg.ChunkSize}
	if opts.overlay != "" {
		if job.overlay, err = newPatternNode(opts.overlay, extent); err != nil {
			return err
		}
		if job.blend, err = operation.ParseBlendMode(opts.blend); err != nil {
			return err
		}
	}

	ch, err := cfg.Open()
	if err != nil {
		return err
	}
	defer ch.Close()

	job.newBuffer = func(name string) (*buffer.Buffer, error) {
		return buffer.New(append(cfg.BufferOptions(ch),
			buffer.WithName(name),
			buffer.WithExtent(extent),
			buffer.WithFormat(pixel.RGBA8))...)
	}
	src, err := job.newBuffer(opts.pattern)
	if err != nil {
		return err
	}
	defer src.Close()

	job.pool = parallel.NewWorkerPool(cfg.WorkerCount())
	defer job.pool.Close()

	var sinkErr error
	sink := func(b *buffer.Buffer, target tile.Rect) error {
		sinkErr = job.finish(b, target)
		return sinkErr
	}

	p := processor.New(node, processor.NewCache(src),
		processor.WithChunkSize(cfg.ChunkSize),
		processor.WithFormat(pixel.RGBAFloat),
		processor.WithSink(sink))
	p.SetTarget(extent)

	prog := newProgress(c.Logger)
	c.Logger.Debug("rendering", "pattern", opts.pattern, "size", extent.String(),
		"chunk", p.ChunkSize(), "threads", cfg.WorkerCount(), "swap", cfg.Swap)
	next := 0.1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, done := p.Work()
		if done >= next {
			c.Logger.Debug("progress", "done", fmt.Sprintf("%.0f%%", done*100), "chunks", p.Chunks())
			next = math.Floor(done*10)/10 + 0.1
		}
		if !more {
			break
		}
	}
	if sinkErr != nil {
		return sinkErr
	}
	if n := p.Failures(); n > 0 {
		c.Logger.Warn("chunks failed", "count", n)
	}
	prog.done(fmt.Sprintf("Rendered %s to %s in %d chunks", extent, opts.output, p.Chunks()))

	if opts.stats {
		writeReport(cmd.OutOrStdout(), ch.Counters().Snapshot(), tag)
	}
	return nil
}

// renderJob carries the post-processing state of one render command.
type renderJob struct {
	opts      *renderOpts
	logger    *log.Logger
	pool      *parallel.WorkerPool
	newBuffer func(name string) (*buffer.Buffer, error)
	chunk     int
	overlay   *patternNode
	blend     operation.BlendMode
}

// finish blends the overlay, applies the filter and exports the target.
func (j *renderJob) finish(b *buffer.Buffer, target tile.Rect) error {
	out := b
	if j.overlay != nil {
		dst, err := j.compose(out, target)
		if err != nil {
			return err
		}
		defer dst.Close()
		out = dst
	}
	if j.opts.invert {
		dst, err := j.newBuffer(j.opts.pattern + "/inverted")
		if err != nil {
			return err
		}
		defer dst.Close()
		if err := operation.Filter(invert, out, dst, target, 0, pixel.RGBAFloat, operation.WithPool(j.pool)); err != nil {
			return fmt.Errorf("invert: %w", err)
		}
		out = dst
	}
	if err := export(out, target, j.opts.output, j.opts.scale); err != nil {
		return err
	}
	j.logger.Debug("exported", "path", j.opts.output, "scale", j.opts.scale)
	return nil
}

// compose renders the overlay pattern into its own buffer and blends it
// over b into a new buffer.
func (j *renderJob) compose(b *buffer.Buffer, target tile.Rect) (*buffer.Buffer, error) {
	layer, err := j.newBuffer(j.opts.overlay)
	if err != nil {
		return nil, err
	}
	defer layer.Close()

	p := processor.New(j.overlay, processor.NewCache(layer),
		processor.WithChunkSize(j.chunk),
		processor.WithFormat(pixel.RGBAFloat))
	p.SetTarget(target)
	for p.Step() {
	}

	dst, err := j.newBuffer(j.opts.pattern + "/" + j.blend.String())
	if err != nil {
		return nil, err
	}
	if err := operation.Compose(operation.Blend(j.blend), b, layer, dst, target, 0, pixel.RGBAFloat,
		operation.WithPool(j.pool)); err != nil {
		dst.Close()
		return nil, fmt.Errorf("blend %s: %w", j.blend, err)
	}
	j.logger.Debug("blended", "overlay", j.opts.overlay, "mode", j.blend, "chunks", p.Chunks())
	return dst, nil
}

// ExitCode returns the process exit status for an error returned by the
// root command.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130 // shell convention for SIGINT
	default:
		return 1
	}
}
