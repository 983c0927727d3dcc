package chunker

import "github.com/dgallion1/doclayout/internal/docmodel"

// DefaultPagesPerChunk keeps each request within provider page limits.
const DefaultPagesPerChunk = 15

// Config controls chunking behavior.
type Config struct {
	Enabled       bool // Split into fixed-size page ranges; otherwise one range.
	PagesPerChunk int  // Maximum pages per range when Enabled.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		PagesPerChunk: DefaultPagesPerChunk,
	}
}

// Split partitions [0, total) into ascending half-open ranges of at most
// size pages. The last range may be shorter. total == 0 yields no ranges.
func Split(total, size int) ([]docmodel.PageRange, error) {
	if size <= 0 {
		return nil, docmodel.InvalidInputf("chunk size must be positive, got %d", size)
	}
	if total < 0 {
		return nil, docmodel.InvalidInputf("total pages must not be negative, got %d", total)
	}

	ranges := make([]docmodel.PageRange, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		ranges = append(ranges, docmodel.PageRange{Start: start, End: min(start+size, total)})
	}
	return ranges, nil
}

// Plan applies cfg to a document of total pages. With chunking disabled the
// whole document is a single range.
func Plan(total int, cfg Config) ([]docmodel.PageRange, error) {
	size := cfg.PagesPerChunk
	if !cfg.Enabled {
		size = max(total, 1)
	} else if size <= 0 {
		size = DefaultPagesPerChunk
	}
	return Split(total, size)
}
