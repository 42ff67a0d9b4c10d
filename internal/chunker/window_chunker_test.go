package chunker

import (
	"errors"
	"strings"
	"testing"

	"docrag/internal/domain"
)

func TestWindowChunkerTwoWindows(t *testing.T) {
	c, err := NewWindowChunker(800, 200)
	if err != nil {
		t.Fatalf("NewWindowChunker: %v", err)
	}
	text := strings.Repeat("a", 600) + strings.Repeat("b", 400)
	chunks := c.Chunk(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != text[0:800] {
		t.Errorf("first chunk should cover [0,800)")
	}
	if chunks[1] != text[600:1000] {
		t.Errorf("second chunk should cover [600,1000)")
	}
}

func TestWindowChunkerSingleChunk(t *testing.T) {
	c, _ := NewWindowChunker(100, 10)
	for _, text := range []string{"", "short", strings.Repeat("x", 100)} {
		chunks := c.Chunk(text)
		if len(chunks) != 1 {
			t.Errorf("Chunk(%d bytes): expected 1 chunk, got %d", len(text), len(chunks))
			continue
		}
		if chunks[0] != text {
			t.Errorf("Chunk(%d bytes): single chunk should equal input", len(text))
		}
	}
}

func TestWindowChunkerCoverage(t *testing.T) {
	cases := []struct {
		size, overlap, n int
	}{
		{10, 3, 5},
		{10, 3, 100},
		{50, 0, 173},
		{7, 6, 40},
		{1000, 200, 2500},
	}
	for _, tc := range cases {
		c, err := NewWindowChunker(tc.size, tc.overlap)
		if err != nil {
			t.Fatalf("NewWindowChunker(%d,%d): %v", tc.size, tc.overlap, err)
		}
		text := makeText(tc.n)
		chunks := c.Chunk(text)
		if len(chunks) == 0 {
			t.Fatalf("no chunks for %d bytes", tc.n)
		}
		var b strings.Builder
		for i, ch := range chunks {
			if i == len(chunks)-1 {
				b.WriteString(ch)
			} else {
				b.WriteString(ch[:c.Step()])
			}
		}
		if b.String() != text {
			t.Errorf("size=%d overlap=%d n=%d: leading segments do not reconstruct the input", tc.size, tc.overlap, tc.n)
		}
		for i, ch := range chunks {
			if len(ch) > tc.size {
				t.Errorf("chunk %d longer than %d bytes", i, tc.size)
			}
		}
	}
}

func TestWindowChunkerInvalidParams(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{0, 0},
		{-5, 0},
		{10, 10},
		{10, 15},
		{10, -1},
	} {
		if _, err := NewWindowChunker(tc.size, tc.overlap); !errors.Is(err, domain.ErrInvalidChunking) {
			t.Errorf("NewWindowChunker(%d,%d): expected ErrInvalidChunking, got %v", tc.size, tc.overlap, err)
		}
	}
}

func makeText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789 "
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	return b.String()
}
