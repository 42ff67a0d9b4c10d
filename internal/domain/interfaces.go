package domain

import "context"

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits raw text into ordered windows suitable for indexing.
type Chunker interface {
	Chunk(text string) []string
}
