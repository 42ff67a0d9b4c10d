package chunker

import (
	"fmt"

	"docrag/internal/domain"
)

// Defaults match the sizes used for documentation pages: windows of 1000
// bytes stepping by 800.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// WindowChunker splits text into fixed-size overlapping windows by byte
// offset. It has no notion of word or sentence boundaries.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// NewWindowChunker validates the window parameters. overlap >= chunkSize
// would make the advance step non-positive and never terminate, so it is
// rejected rather than clamped.
func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidChunking, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must be non-negative", domain.ErrInvalidChunking, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidChunking, overlap, chunkSize)
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk returns the ordered windows covering text. Text no longer than the
// chunk size comes back as a single chunk, including the empty string; the
// final window may be shorter than the nominal size.
func (c *WindowChunker) Chunk(text string) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}
	step := c.chunkSize - c.overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + c.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			return chunks
		}
		chunks = append(chunks, text[start:end])
	}
}

// Step is the number of leading bytes each chunk contributes before the next
// chunk's overlap begins. The backup and coverage tests rely on it.
func (c *WindowChunker) Step() int { return c.chunkSize - c.overlap }
