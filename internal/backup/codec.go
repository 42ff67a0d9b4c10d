// Package backup reads and writes the line-delimited JSON interchange
// format: one header line, then one document per line.
package backup

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"docrag/internal/domain"
)

// FormatVersion identifies the backup layout. Import logs the header it
// finds but does not validate it against the current state.
const FormatVersion = "1.0"

// maxLineBytes bounds a single backup line; documents are chunk-sized so
// this leaves generous headroom even with embeddings included.
const maxLineBytes = 16 * 1024 * 1024

// Header is the first line of a backup stream.
type Header struct {
	Version    string                  `json:"version"`
	ExportID   string                  `json:"exportId,omitempty"`
	ExportDate time.Time               `json:"exportDate"`
	Stats      *domain.CollectionStats `json:"stats,omitempty"`
}

type record struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float64      `json:"embedding,omitempty"`
}

// Write emits the header followed by one record per document. Embeddings
// are omitted unless includeEmbeddings is set, which keeps backups small.
func Write(w io.Writer, header Header, docs []domain.Document, includeEmbeddings bool) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if header.Version == "" {
		header.Version = FormatVersion
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("write backup header: %w", err)
	}
	for _, d := range docs {
		rec := record{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
		if includeEmbeddings {
			rec.Embedding = d.Embedding
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write backup record %s: %w", d.ID, err)
		}
	}
	return bw.Flush()
}

// Read parses an entire backup stream. Any malformed line fails the whole
// read with its line number; there is no partial recovery.
func Read(r io.Reader) (*Header, []domain.Document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, &domain.MalformedInputError{Line: 1, Reason: "empty backup stream"}
	}
	var header Header
	if err := json.Unmarshal(sc.Bytes(), &header); err != nil {
		return nil, nil, &domain.MalformedInputError{Line: 1, Reason: "invalid header", Err: err}
	}

	var docs []domain.Document
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, nil, &domain.MalformedInputError{Line: line, Reason: "invalid document record", Err: err}
		}
		if rec.ID == "" {
			return nil, nil, &domain.MalformedInputError{Line: line, Reason: "document record without id"}
		}
		docs = append(docs, domain.Document{
			ID:        rec.ID,
			Content:   rec.Content,
			Metadata:  rec.Metadata,
			Embedding: rec.Embedding,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return &header, docs, nil
}
