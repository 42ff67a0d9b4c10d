// Package service wires chunking, metadata normalization, identity
// assignment and retrieval filtering into the client operations.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docrag/internal/backup"
	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/identity"
	"docrag/internal/loader"
	"docrag/internal/metadata"
	"docrag/internal/vectorstore"
)

const (
	// DefaultBatchSize bounds how many chunks go to the store per request.
	DefaultBatchSize = 50
	// statsSampleLimit bounds the scan used for collection statistics.
	statsSampleLimit = 1000
)

// DocStore is the client for one documentation collection. All persistent
// state lives in the external vector store; a DocStore only holds transient
// per-operation data and the one-shot initialization result.
type DocStore struct {
	store     vectorstore.Storage
	embedder  domain.Embedder
	chunker   domain.Chunker
	logger    *zap.Logger
	batchSize int

	mu          sync.Mutex
	initialized bool
}

// Option configures a DocStore.
type Option func(*DocStore)

// WithLogger sets a logger for debug and partial-failure events.
func WithLogger(l *zap.Logger) Option {
	return func(s *DocStore) { s.logger = l }
}

// WithBatchSize overrides the ingestion batch size.
func WithBatchSize(n int) Option {
	return func(s *DocStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithChunker replaces the default window chunker.
func WithChunker(c domain.Chunker) Option {
	return func(s *DocStore) { s.chunker = c }
}

// New creates a DocStore. The embedder may be nil; operations that need
// embeddings then fail with ErrNoEmbedder.
func New(store vectorstore.Storage, embedder domain.Embedder, opts ...Option) *DocStore {
	defaultChunker, _ := chunker.NewWindowChunker(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	s := &DocStore{
		store:     store,
		embedder:  embedder,
		chunker:   defaultChunker,
		logger:    zap.NewNop(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize checks backend liveness and gets or creates the collection.
// It is idempotent: concurrent and repeated calls are serialized and the
// initialized flag is set at most once, on success. A failed attempt does
// not latch, so callers may retry after fixing connectivity.
func (s *DocStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := s.store.Heartbeat(ctx); err != nil {
		return fmt.Errorf("vector store unreachable: %w", err)
	}
	if err := s.store.EnsureCollection(ctx); err != nil {
		return err
	}
	s.initialized = true
	s.logger.Debug("client initialized")
	return nil
}

func (s *DocStore) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return domain.ErrNotInitialized
	}
	return nil
}

// IngestFiles chunks, normalizes, identifies and embeds the given markdown
// files, then upserts them. Per-item failures are reported, not raised; see
// IngestReport.
func (s *DocStore) IngestFiles(ctx context.Context, files []loader.File) (*IngestReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.embedder == nil {
		return nil, domain.ErrNoEmbedder
	}
	docs := make([]domain.Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, s.buildDocuments(f)...)
	}
	return s.addInBatches(ctx, docs)
}

// buildDocuments runs the chunk → normalize → identify pipeline for one file.
func (s *DocStore) buildDocuments(f loader.File) []domain.Document {
	category, priority := metadata.Classify(f.Path)
	title := metadata.Title(f.Content, f.Path)
	chunks := s.chunker.Chunk(f.Content)
	docs := make([]domain.Document, 0, len(chunks))
	for i, text := range chunks {
		meta := metadata.Map{
			"source":      metadata.String(f.Path),
			"filePath":    metadata.String(f.Path),
			"title":       metadata.String(title),
			"category":    metadata.String(category),
			"priority":    metadata.Number(float64(priority)),
			"chunkIndex":  metadata.Number(float64(i)),
			"totalChunks": metadata.Number(float64(len(chunks))),
		}
		if !f.ModTime.IsZero() {
			meta["lastModified"] = metadata.Timestamp(f.ModTime)
		}
		docs = append(docs, domain.Document{
			ID:       identity.ChunkID(f.Path, i),
			Content:  text,
			Metadata: meta.Flatten(),
		})
	}
	return docs
}

// AddDocuments upserts prebuilt documents, embedding any that arrive
// without a vector. Used by backup import.
func (s *DocStore) AddDocuments(ctx context.Context, docs []domain.Document) (*IngestReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.addInBatches(ctx, docs)
}

func (s *DocStore) addInBatches(ctx context.Context, docs []domain.Document) (*IngestReport, error) {
	report := &IngestReport{RunID: uuid.New().String()[:8]}
	log := s.logger.With(zap.String("run_id", report.RunID))
	log.Debug("ingest starting", zap.Int("documents", len(docs)))

	for start := 0; start < len(docs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		embedded, failures := s.embedBatch(ctx, batch)
		report.Failed = append(report.Failed, failures...)
		if len(embedded) == 0 {
			continue
		}

		if err := s.addBatch(ctx, embedded); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.Debug("batch insert failed, retrying per item",
				zap.Int("batch_start", start), zap.Error(err))
			for _, d := range embedded {
				if itemErr := s.addBatch(ctx, []domain.Document{d}); itemErr != nil {
					report.Failed = append(report.Failed, ItemFailure{
						ID:     d.ID,
						Source: metaString(d.Metadata, "source"),
						Reason: itemErr.Error(),
					})
					log.Debug("document skipped", zap.String("id", d.ID), zap.Error(itemErr))
					continue
				}
				report.Ingested++
			}
			continue
		}
		report.Ingested += len(embedded)
	}

	log.Info("ingest finished",
		zap.Int("ingested", report.Ingested),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// embedBatch fills in missing embeddings. A document that cannot be
// embedded becomes an item failure rather than aborting the batch.
func (s *DocStore) embedBatch(ctx context.Context, batch []domain.Document) ([]domain.Document, []ItemFailure) {
	out := make([]domain.Document, 0, len(batch))
	var failures []ItemFailure
	for _, d := range batch {
		if len(d.Embedding) == 0 {
			if s.embedder == nil {
				failures = append(failures, ItemFailure{
					ID:     d.ID,
					Source: metaString(d.Metadata, "source"),
					Reason: domain.ErrNoEmbedder.Error(),
				})
				continue
			}
			vec, err := s.embedder.Embed(ctx, d.Content)
			if err != nil {
				failures = append(failures, ItemFailure{
					ID:     d.ID,
					Source: metaString(d.Metadata, "source"),
					Reason: fmt.Sprintf("embedding: %v", err),
				})
				continue
			}
			d.Embedding = vec
		}
		out = append(out, d)
	}
	return out, failures
}

func (s *DocStore) addBatch(ctx context.Context, docs []domain.Document) error {
	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	embeddings := make([][]float64, len(docs))
	metadatas := make([]map[string]any, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		contents[i] = d.Content
		embeddings[i] = d.Embedding
		metadatas[i] = d.Metadata
	}
	return s.store.Add(ctx, ids, contents, embeddings, metadatas)
}

// Query embeds the text and returns threshold-filtered results sorted by
// descending similarity. Because filtering runs on the already-limited
// nearest-neighbor set, fewer than opts.Limit results can come back even
// when more qualifying documents exist in the collection.
func (s *DocStore) Query(ctx context.Context, text string, opts *domain.QueryOptions) ([]domain.QueryResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.embedder == nil {
		return nil, domain.ErrNoEmbedder
	}
	o := domain.DefaultQueryOptions()
	if opts != nil {
		o = *opts
	}
	if o.Limit <= 0 {
		o.Limit = domain.DefaultQueryLimit
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	resp, err := s.store.Query(ctx, vec, o.Limit, buildWhere(&o))
	if err != nil {
		return nil, err
	}
	return applyRetrievalFilter(resp, o.Threshold, o.Limit), nil
}

// Stats aggregates collection-level counts. Per-category and per-source
// figures come from a bounded sample and are best-effort on collections
// larger than the sample limit.
func (s *DocStore) Stats(ctx context.Context) (*domain.CollectionStats, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.stats(ctx)
}

func (s *DocStore) stats(ctx context.Context) (*domain.CollectionStats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	sample, err := s.store.Get(ctx, statsSampleLimit, false)
	if err != nil {
		return nil, err
	}
	stats := &domain.CollectionStats{
		TotalDocuments: total,
		ByCategory:     make(map[string]int),
		BySource:       make(map[string]int),
		Sampled:        len(sample.IDs),
	}
	var sizeSum int
	for i := range sample.IDs {
		meta := sample.Metadatas[i]
		if c := metaString(meta, "category"); c != "" {
			stats.ByCategory[c]++
		}
		if src := metaString(meta, "source"); src != "" {
			stats.BySource[src]++
		}
		sizeSum += len(sample.Documents[i])
	}
	if len(sample.IDs) > 0 {
		stats.AvgChunkSize = float64(sizeSum) / float64(len(sample.IDs))
	}
	return stats, nil
}

// DeleteBySource removes every chunk whose source metadata equals source.
func (s *DocStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	all, err := s.store.Get(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	var ids []string
	for i := range all.IDs {
		if metaString(all.Metadatas[i], "source") == source {
			ids = append(ids, all.IDs[i])
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.store.Delete(ctx, ids); err != nil {
		return 0, err
	}
	s.logger.Debug("source deleted", zap.String("source", source), zap.Int("chunks", len(ids)))
	return len(ids), nil
}

// ExportBackup writes the whole collection as line-delimited JSON.
func (s *DocStore) ExportBackup(ctx context.Context, w io.Writer, includeEmbeddings bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	stats, err := s.stats(ctx)
	if err != nil {
		return err
	}
	all, err := s.store.Get(ctx, 0, includeEmbeddings)
	if err != nil {
		return err
	}
	docs := make([]domain.Document, len(all.IDs))
	for i := range all.IDs {
		docs[i] = domain.Document{
			ID:       all.IDs[i],
			Content:  all.Documents[i],
			Metadata: all.Metadatas[i],
		}
		if includeEmbeddings && i < len(all.Embeddings) {
			docs[i].Embedding = all.Embeddings[i]
		}
	}
	header := backup.Header{
		ExportID:   uuid.New().String(),
		ExportDate: time.Now().UTC(),
		Stats:      stats,
	}
	return backup.Write(w, header, docs, includeEmbeddings)
}

// ImportBackup reads a backup stream and re-inserts its documents. With
// clear set, the collection is dropped and recreated first; otherwise
// records upsert over existing ids. A malformed line fails the whole import
// before any write happens.
func (s *DocStore) ImportBackup(ctx context.Context, r io.Reader, clear bool) (*IngestReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	header, docs, err := backup.Read(r)
	if err != nil {
		return nil, err
	}
	s.logger.Info("importing backup",
		zap.String("version", header.Version),
		zap.Time("exported_at", header.ExportDate),
		zap.Int("documents", len(docs)))
	if clear {
		if err := s.store.Reset(ctx); err != nil {
			return nil, err
		}
	}
	return s.addInBatches(ctx, docs)
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
