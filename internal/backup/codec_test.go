package backup

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"docrag/internal/domain"
)

func sampleDocs() []domain.Document {
	return []domain.Document{
		{ID: "aaa", Content: "first", Metadata: map[string]any{"category": "api"}, Embedding: []float64{1, 2}},
		{ID: "bbb", Content: "second", Metadata: map[string]any{"category": "guide", "tags": "a,b"}},
		{ID: "ccc", Content: "third"},
	}
}

func TestRoundTrip(t *testing.T) {
	docs := sampleDocs()
	var buf bytes.Buffer
	header := Header{ExportDate: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ExportID: "run-1"}
	if err := Write(&buf, header, docs, false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	gotHeader, gotDocs, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotHeader.Version != FormatVersion {
		t.Errorf("version = %q", gotHeader.Version)
	}
	if !gotHeader.ExportDate.Equal(header.ExportDate) {
		t.Errorf("exportDate = %v", gotHeader.ExportDate)
	}
	if len(gotDocs) != len(docs) {
		t.Fatalf("doc count = %d, want %d", len(gotDocs), len(docs))
	}
	sort.Slice(gotDocs, func(i, j int) bool { return gotDocs[i].ID < gotDocs[j].ID })
	for i, d := range gotDocs {
		if d.ID != docs[i].ID || d.Content != docs[i].Content {
			t.Errorf("doc %d: got (%s,%q)", i, d.ID, d.Content)
		}
		if d.Embedding != nil {
			t.Errorf("doc %d: embeddings should be omitted", i)
		}
	}
	if gotDocs[1].Metadata["tags"] != "a,b" {
		t.Errorf("metadata lost: %v", gotDocs[1].Metadata)
	}
}

func TestWriteIncludeEmbeddings(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Header{ExportDate: time.Now()}, sampleDocs(), true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, docs, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(docs[0].Embedding) != 2 {
		t.Errorf("embedding not round-tripped: %v", docs[0].Embedding)
	}
}

func TestReadMalformedLineFailsWhole(t *testing.T) {
	stream := `{"version":"1.0","exportDate":"2026-01-02T03:04:05Z"}
{"id":"aaa","content":"ok"}
{not json at all
{"id":"bbb","content":"never reached"}`
	_, _, err := Read(strings.NewReader(stream))
	var mal *domain.MalformedInputError
	if !errors.As(err, &mal) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if mal.Line != 3 {
		t.Errorf("line = %d, want 3", mal.Line)
	}
}

func TestReadEmptyStream(t *testing.T) {
	_, _, err := Read(strings.NewReader(""))
	var mal *domain.MalformedInputError
	if !errors.As(err, &mal) {
		t.Errorf("expected MalformedInputError, got %v", err)
	}
}

func TestReadRecordWithoutID(t *testing.T) {
	stream := `{"version":"1.0","exportDate":"2026-01-02T03:04:05Z"}
{"content":"anonymous"}`
	_, _, err := Read(strings.NewReader(stream))
	var mal *domain.MalformedInputError
	if !errors.As(err, &mal) || mal.Line != 2 {
		t.Errorf("expected MalformedInputError at line 2, got %v", err)
	}
}
