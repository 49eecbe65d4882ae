package cli

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/tilebuf/stats"
)

// writeReport prints s with digit grouping for tag.
func writeReport(w io.Writer, s stats.Snapshot, tag language.Tag) {
	p := message.NewPrinter(tag)
	p.Fprintf(w, "cache:  %d bytes resident (%d unshared), peak %d\n",
		s.CacheTotal, s.CacheTotalUncloned, s.CachePeak)
	p.Fprintf(w, "        %d hits, %d misses, %d evictions\n",
		s.CacheHits, s.CacheMisses, s.CacheEvictions)
	p.Fprintf(w, "swap:   %d bytes stored (%d logical), file %d bytes\n",
		s.SwapTotal, s.SwapTotalUncloned, s.SwapFileSize)
	p.Fprintf(w, "        %d bytes read, %d bytes written, %d stalls\n",
		s.SwapReadTotal, s.SwapWriteTotal, s.SwapQueueStalls)
	p.Fprintf(w, "zoom:   %d bytes\n", s.ZoomTotal)
	if s.TileUnavailable > 0 {
		p.Fprintf(w, "lost:   %d tiles\n", s.TileUnavailable)
	}
}
