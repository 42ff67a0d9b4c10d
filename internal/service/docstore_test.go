package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"docrag/internal/domain"
	"docrag/internal/loader"
	"docrag/internal/vectorstore"
	"docrag/internal/vectorstore/memory"
)

// stubEmbedder returns fixed vectors for known texts and a deterministic
// letter-frequency vector otherwise.
type stubEmbedder struct {
	vecs map[string][]float64
}

func (e *stubEmbedder) Name() string   { return "stub" }
func (e *stubEmbedder) Dimension() int { return 3 }

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if v, ok := e.vecs[text]; ok {
		return v, nil
	}
	v := []float64{1, 0, 0}
	for i, r := range text {
		v[i%3] += float64(r%7) / 10
	}
	return v, nil
}

func newTestStore(t *testing.T) (*DocStore, *memory.Storage) {
	t.Helper()
	mem := memory.NewStorage()
	s := New(mem, &stubEmbedder{vecs: map[string][]float64{}})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s, mem
}

func TestOperationsBeforeInitialize(t *testing.T) {
	s := New(memory.NewStorage(), &stubEmbedder{})
	ctx := context.Background()
	if _, err := s.Query(ctx, "anything", nil); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Query before init: %v", err)
	}
	if _, err := s.Stats(ctx); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Stats before init: %v", err)
	}
	if _, err := s.IngestFiles(ctx, nil); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("IngestFiles before init: %v", err)
	}
}

func TestQueryWithoutEmbedder(t *testing.T) {
	s := New(memory.NewStorage(), nil)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := s.Query(ctx, "q", nil); !errors.Is(err, domain.ErrNoEmbedder) {
		t.Errorf("expected ErrNoEmbedder, got %v", err)
	}
}

func TestIngestFilesIdempotent(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()
	files := []loader.File{{
		Path:    "docs/api/endpoints.md",
		Content: "# Endpoints\n" + strings.Repeat("request and response details. ", 80),
		ModTime: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
	report, err := s.IngestFiles(ctx, files)
	if err != nil {
		t.Fatalf("IngestFiles: %v", err)
	}
	if report.Ingested == 0 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	first, _ := mem.Count(ctx)

	report2, err := s.IngestFiles(ctx, files)
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	second, _ := mem.Count(ctx)
	if first != second {
		t.Errorf("re-ingest should overwrite, count went %d -> %d", first, second)
	}
	if report2.Ingested != report.Ingested {
		t.Errorf("re-ingest report differs: %d vs %d", report2.Ingested, report.Ingested)
	}

	got, _ := mem.Get(ctx, 0, false)
	for i := range got.IDs {
		meta := got.Metadatas[i]
		if meta["category"] != "api" {
			t.Errorf("chunk %d category = %v", i, meta["category"])
		}
		if meta["title"] != "Endpoints" {
			t.Errorf("chunk %d title = %v", i, meta["title"])
		}
		if meta["priority"] != float64(80) {
			t.Errorf("chunk %d priority = %v", i, meta["priority"])
		}
	}
}

// failingStore forces a batch error so ingestion degrades to per-item
// inserts; the document with the poisoned id keeps failing.
type failingStore struct {
	*memory.Storage
	poisonID string
}

func (f *failingStore) Add(ctx context.Context, ids, docs []string, embs [][]float64, metas []map[string]any) error {
	if len(ids) > 1 {
		return &domain.BackendError{Op: "add", Err: fmt.Errorf("batch rejected")}
	}
	if len(ids) == 1 && ids[0] == f.poisonID {
		return &domain.BackendError{Op: "add", Err: fmt.Errorf("malformed record")}
	}
	return f.Storage.Add(ctx, ids, docs, embs, metas)
}

func TestBatchFallbackReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	docs := []domain.Document{
		{ID: "one", Content: "a", Embedding: []float64{1, 0}, Metadata: map[string]any{"source": "s"}},
		{ID: "two", Content: "b", Embedding: []float64{0, 1}, Metadata: map[string]any{"source": "s"}},
		{ID: "three", Content: "c", Embedding: []float64{1, 1}, Metadata: map[string]any{"source": "s"}},
	}
	fs := &failingStore{Storage: memory.NewStorage(), poisonID: "two"}
	s := New(fs, &stubEmbedder{})
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	report, err := s.AddDocuments(ctx, docs)
	if err != nil {
		t.Fatalf("AddDocuments should not raise on partial failure: %v", err)
	}
	if report.Ingested != 2 {
		t.Errorf("Ingested = %d, want 2", report.Ingested)
	}
	if len(report.Failed) != 1 || report.Failed[0].ID != "two" {
		t.Errorf("Failed = %+v", report.Failed)
	}
}

func seedCollection(t *testing.T, s *DocStore, emb *stubEmbedder) {
	t.Helper()
	emb.vecs["the query"] = []float64{1, 0, 0}
	docs := []domain.Document{
		{ID: "d1", Content: "exact match", Embedding: []float64{1, 0, 0},
			Metadata: map[string]any{"category": "api", "source": "docs/a.md", "tags": "rest,http"}},
		{ID: "d2", Content: "close match", Embedding: []float64{0.9, 0.1, 0},
			Metadata: map[string]any{"category": "guide", "source": "docs/b.md", "tags": "setup"}},
		{ID: "d3", Content: "far match", Embedding: []float64{0.2, 0.9, 0.2},
			Metadata: map[string]any{"category": "api", "source": "docs/c.md", "tags": "rest"}},
		{ID: "d4", Content: "orthogonal", Embedding: []float64{0, 0, 1},
			Metadata: map[string]any{"category": "general", "source": "docs/d.md"}},
	}
	if _, err := s.AddDocuments(context.Background(), docs); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestQueryThresholdAndOrdering(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float64{}}
	mem := memory.NewStorage()
	s := New(mem, emb)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	seedCollection(t, s, emb)

	loose, err := s.Query(ctx, "the query", &domain.QueryOptions{Limit: 10, Threshold: 0.0})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	strict, err := s.Query(ctx, "the query", &domain.QueryOptions{Limit: 10, Threshold: 0.9})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(loose) < len(strict) {
		t.Errorf("threshold monotonicity violated: %d at 0.0 vs %d at 0.9", len(loose), len(strict))
	}
	for i := 1; i < len(loose); i++ {
		if loose[i].Score > loose[i-1].Score {
			t.Errorf("results not sorted descending at %d", i)
		}
	}
	for _, r := range strict {
		if r.Score < 0.9 {
			t.Errorf("result %s below threshold: %f", r.ID, r.Score)
		}
	}
	if len(loose) > 0 && loose[0].ID != "d1" {
		t.Errorf("best result should be d1, got %s", loose[0].ID)
	}
}

func TestQueryCategoryFilter(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float64{}}
	s := New(memory.NewStorage(), emb)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	seedCollection(t, s, emb)

	results, err := s.Query(ctx, "the query", &domain.QueryOptions{Limit: 10, Threshold: 0, Category: "api"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 api results, got %d", len(results))
	}
	for _, r := range results {
		if r.Metadata["category"] != "api" {
			t.Errorf("result %s category = %v", r.ID, r.Metadata["category"])
		}
	}

	tagged, err := s.Query(ctx, "the query", &domain.QueryOptions{Limit: 10, Threshold: 0, Tags: []string{"setup"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(tagged) != 1 || tagged[0].ID != "d2" {
		t.Errorf("tag filter should keep only d2, got %+v", tagged)
	}
}

func TestStats(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float64{}}
	s := New(memory.NewStorage(), emb)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	seedCollection(t, s, emb)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 4 {
		t.Errorf("TotalDocuments = %d", stats.TotalDocuments)
	}
	if stats.ByCategory["api"] != 2 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if stats.BySource["docs/a.md"] != 1 {
		t.Errorf("BySource = %v", stats.BySource)
	}
	if stats.AvgChunkSize <= 0 {
		t.Errorf("AvgChunkSize = %f", stats.AvgChunkSize)
	}
}

func TestBackupRoundTripThroughService(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float64{}}
	s := New(memory.NewStorage(), emb)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	seedCollection(t, s, emb)

	var buf bytes.Buffer
	if err := s.ExportBackup(ctx, &buf, true); err != nil {
		t.Fatalf("ExportBackup: %v", err)
	}

	target := New(memory.NewStorage(), emb)
	if err := target.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	report, err := target.ImportBackup(ctx, &buf, true)
	if err != nil {
		t.Fatalf("ImportBackup: %v", err)
	}
	if report.Ingested != 4 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}

	var src, dst bytes.Buffer
	if err := s.ExportBackup(ctx, &src, false); err != nil {
		t.Fatal(err)
	}
	if err := target.ExportBackup(ctx, &dst, false); err != nil {
		t.Fatal(err)
	}
	if sortedLines(src.String()) != sortedLines(dst.String()) {
		t.Error("round-tripped collection differs from the original")
	}
}

// sortedLines drops the (timestamped) header and compares document records
// order-independently.
func sortedLines(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func TestDeleteBySource(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float64{}}
	mem := memory.NewStorage()
	s := New(mem, emb)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	seedCollection(t, s, emb)

	n, err := s.DeleteBySource(ctx, "docs/a.md")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d chunks, want 1", n)
	}
	if total, _ := mem.Count(ctx); total != 3 {
		t.Errorf("count = %d after delete", total)
	}
}

func TestApplyRetrievalFilterStableTies(t *testing.T) {
	resp := &vectorstore.QueryResponse{
		IDs:       []string{"x", "y", "z"},
		Documents: []string{"dx", "dy", "dz"},
		Metadatas: []map[string]any{nil, nil, nil},
		Distances: []float64{0.2, 0.2, 0.1},
	}
	results := applyRetrievalFilter(resp, 0, 10)
	if len(results) != 3 || results[0].ID != "z" {
		t.Fatalf("unexpected order: %+v", results)
	}
	// x and y tie; the store's original order must be kept.
	if results[1].ID != "x" || results[2].ID != "y" {
		t.Errorf("tie order not stable: %s, %s", results[1].ID, results[2].ID)
	}
}
