// Package chroma is a minimal REST client to a Chroma vector store.
// It resolves the collection by name with get-or-create semantics; the
// check-and-create on the server is not atomic against concurrent creators.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

const (
	DefaultURL        = "http://localhost:8000"
	DefaultCollection = "documentation"
)

// Storage talks to one Chroma collection over HTTP.
type Storage struct {
	url        string
	collection string
	client     *http.Client

	mu           sync.Mutex
	collectionID string
}

type Config struct {
	URL        string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Heartbeat(ctx context.Context) error {
	return s.getJSON(ctx, fmt.Sprintf("%s/api/v1/heartbeat", s.url), nil)
}

func (s *Storage) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureCollectionLocked(ctx)
}

func (s *Storage) ensureCollectionLocked(ctx context.Context) error {
	if s.collectionID != "" {
		return nil
	}
	body := map[string]any{
		"name":          s.collection,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/api/v1/collections", s.url), body, &resp); err != nil {
		return err
	}
	if resp.ID == "" {
		return &domain.BackendError{Op: "create collection", Err: fmt.Errorf("no collection id returned")}
	}
	s.collectionID = resp.ID
	return nil
}

func (s *Storage) collectionURL(ctx context.Context, suffix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCollectionLocked(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/v1/collections/%s/%s", s.url, s.collectionID, suffix), nil
}

func (s *Storage) Add(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	return s.bulkWrite(ctx, "add", ids, documents, embeddings, metadatas)
}

func (s *Storage) Update(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	return s.bulkWrite(ctx, "update", ids, documents, embeddings, metadatas)
}

func (s *Storage) bulkWrite(ctx context.Context, op string, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	n := len(ids)
	if len(documents) != n || len(embeddings) != n || len(metadatas) != n {
		return domain.ErrLengthMismatch
	}
	url, err := s.collectionURL(ctx, op)
	if err != nil {
		return err
	}
	body := map[string]any{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}
	return s.postJSON(ctx, url, body, nil)
}

func (s *Storage) Delete(ctx context.Context, ids []string) error {
	url, err := s.collectionURL(ctx, "delete")
	if err != nil {
		return err
	}
	return s.postJSON(ctx, url, map[string]any{"ids": ids}, nil)
}

func (s *Storage) Get(ctx context.Context, limit int, includeEmbeddings bool) (*vectorstore.GetResponse, error) {
	url, err := s.collectionURL(ctx, "get")
	if err != nil {
		return nil, err
	}
	include := []string{"documents", "metadatas"}
	if includeEmbeddings {
		include = append(include, "embeddings")
	}
	body := map[string]any{"include": include}
	if limit > 0 {
		body["limit"] = limit
	}
	var resp struct {
		IDs        []string         `json:"ids"`
		Documents  []string         `json:"documents"`
		Metadatas  []map[string]any `json:"metadatas"`
		Embeddings [][]float64      `json:"embeddings"`
	}
	if err := s.postJSON(ctx, url, body, &resp); err != nil {
		return nil, err
	}
	return &vectorstore.GetResponse{
		IDs:        resp.IDs,
		Documents:  resp.Documents,
		Metadatas:  resp.Metadatas,
		Embeddings: resp.Embeddings,
	}, nil
}

func (s *Storage) Query(ctx context.Context, embedding []float64, nResults int, where map[string]any) (*vectorstore.QueryResponse, error) {
	url, err := s.collectionURL(ctx, "query")
	if err != nil {
		return nil, err
	}
	if nResults <= 0 {
		nResults = 5
	}
	native, residual := splitWhere(where)
	body := map[string]any{
		"query_embeddings": [][]float64{embedding},
		"n_results":        nResults,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if len(native) > 0 {
		body["where"] = whereBody(native)
	}
	var resp struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	if err := s.postJSON(ctx, url, body, &resp); err != nil {
		return nil, err
	}
	out := &vectorstore.QueryResponse{}
	if len(resp.IDs) == 0 {
		return out, nil
	}
	for i := range resp.IDs[0] {
		meta := metaAt(resp.Metadatas, i)
		if len(residual) > 0 && !vectorstore.MatchWhere(meta, residual) {
			continue
		}
		out.IDs = append(out.IDs, resp.IDs[0][i])
		out.Documents = append(out.Documents, docAt(resp.Documents, i))
		out.Metadatas = append(out.Metadatas, meta)
		out.Distances = append(out.Distances, distAt(resp.Distances, i))
	}
	return out, nil
}

// splitWhere separates conditions the Chroma where grammar can express from
// those it cannot. $contains on a comma-joined list has no native form, and
// range operators here compare RFC3339 strings while Chroma only ranges over
// numbers, so both are applied to the returned rows instead. That keeps
// result semantics but can shrink the candidate set below n_results.
func splitWhere(where map[string]any) (native, residual map[string]any) {
	if len(where) == 0 {
		return nil, nil
	}
	native = make(map[string]any)
	residual = make(map[string]any)
	for key, cond := range where {
		ops, isOps := cond.(map[string]any)
		if !isOps {
			native[key] = map[string]any{"$eq": cond}
			continue
		}
		if nativeExpr(ops) {
			native[key] = cond
			continue
		}
		residual[key] = cond
	}
	if len(native) == 0 {
		native = nil
	}
	if len(residual) == 0 {
		residual = nil
	}
	return native, residual
}

// nativeExpr reports whether Chroma's validator accepts the field
// expression: exactly one operator, and one of $eq or $in.
func nativeExpr(ops map[string]any) bool {
	if len(ops) != 1 {
		return false
	}
	for op := range ops {
		if op != "$eq" && op != "$in" {
			return false
		}
	}
	return true
}

// whereBody renders native conditions in Chroma's where grammar, which
// allows exactly one top-level key. Multiple conditions nest under $and,
// in key order so request bodies are deterministic.
func whereBody(native map[string]any) map[string]any {
	if len(native) == 1 {
		return native
	}
	keys := make([]string, 0, len(native))
	for k := range native {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	clauses := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, map[string]any{k: native[k]})
	}
	return map[string]any{"$and": clauses}
}

func metaAt(metas [][]map[string]any, i int) map[string]any {
	if len(metas) == 0 || i >= len(metas[0]) {
		return nil
	}
	return metas[0][i]
}

func docAt(docs [][]string, i int) string {
	if len(docs) == 0 || i >= len(docs[0]) {
		return ""
	}
	return docs[0][i]
}

func distAt(dists [][]float64, i int) float64 {
	if len(dists) == 0 || i >= len(dists[0]) {
		return 0
	}
	return dists[0][i]
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	url, err := s.collectionURL(ctx, "count")
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.getJSON(ctx, url, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Storage) Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/api/v1/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.BackendError{Op: "reset", Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &domain.BackendError{Op: "reset", Err: fmt.Errorf("delete collection: %s", resp.Status)}
	}
	s.mu.Lock()
	s.collectionID = ""
	s.mu.Unlock()
	return s.EnsureCollection(ctx)
}

func (s *Storage) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.BackendError{Op: "GET " + url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &domain.BackendError{Op: "GET " + url, Err: fmt.Errorf("%s", resp.Status)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Storage) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.BackendError{Op: "POST " + url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &domain.BackendError{Op: "POST " + url, Err: fmt.Errorf("%s", resp.Status)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
