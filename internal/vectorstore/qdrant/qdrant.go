// Package qdrant is a minimal REST client to Qdrant, offered as an
// alternative backend. Qdrant point ids must be integers or UUIDs, so the
// library's hex chunk ids are mapped to deterministic v5 UUIDs and the
// original id travels in the payload. Qdrant cannot evaluate this library's
// where dialect natively; predicates are applied to the returned candidate
// set instead, which keeps result semantics but can shrink the set below
// nResults.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

const payloadIDKey = "_docrag_id"

// Storage talks to one Qdrant collection over HTTP. The collection is
// created lazily on the first write because Qdrant needs the vector
// dimension up front and the dimension is only known once an embedding has
// been seen.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu      sync.Mutex
	created bool
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	if cfg.Collection == "" {
		cfg.Collection = "documentation"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/healthz", nil)
	if err != nil {
		return err
	}
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.BackendError{Op: "heartbeat", Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &domain.BackendError{Op: "heartbeat", Err: fmt.Errorf("%s", resp.Status)}
	}
	return nil
}

// EnsureCollection succeeds without touching the server; creation happens
// on the first write, when the vector dimension is known.
func (s *Storage) EnsureCollection(ctx context.Context) error { return nil }

func (s *Storage) ensureCreated(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}
	if dimension <= 0 {
		return &domain.BackendError{Op: "create collection", Err: fmt.Errorf("unknown vector dimension")}
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 when the collection already exists with the same
	// schema, so this is get-or-create in one call.
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body); err != nil {
		return err
	}
	s.created = true
	return nil
}

func (s *Storage) Add(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	return s.upsert(ctx, ids, documents, embeddings, metadatas)
}

// Update shares upsert semantics with Add; Qdrant does not distinguish the
// two for existing points.
func (s *Storage) Update(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	return s.upsert(ctx, ids, documents, embeddings, metadatas)
}

func (s *Storage) upsert(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	n := len(ids)
	if len(documents) != n || len(embeddings) != n || len(metadatas) != n {
		return domain.ErrLengthMismatch
	}
	if n == 0 {
		return nil
	}
	if err := s.ensureCreated(ctx, len(embeddings[0])); err != nil {
		return err
	}
	points := make([]map[string]any, n)
	for i := range ids {
		payload := map[string]any{
			payloadIDKey: ids[i],
			"document":   documents[i],
		}
		for k, v := range metadatas[i] {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      pointID(ids[i]),
			"vector":  embeddings[i],
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

func (s *Storage) Delete(ctx context.Context, ids []string) error {
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}
	body := map[string]any{"points": points}
	return s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection), body, nil)
}

func (s *Storage) Get(ctx context.Context, limit int, includeEmbeddings bool) (*vectorstore.GetResponse, error) {
	if limit <= 0 {
		limit = 1 << 20
	}
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  includeEmbeddings,
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
				Vector  []float64      `json:"vector"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collection), body, &resp); err != nil {
		return nil, err
	}
	out := &vectorstore.GetResponse{}
	for _, p := range resp.Result.Points {
		id, document, meta := splitPayload(p.Payload)
		out.IDs = append(out.IDs, id)
		out.Documents = append(out.Documents, document)
		out.Metadatas = append(out.Metadatas, meta)
		if includeEmbeddings {
			out.Embeddings = append(out.Embeddings, p.Vector)
		}
	}
	return out, nil
}

func (s *Storage) Query(ctx context.Context, embedding []float64, nResults int, where map[string]any) (*vectorstore.QueryResponse, error) {
	if nResults <= 0 {
		nResults = 5
	}
	body := map[string]any{
		"vector":       embedding,
		"limit":        nResults,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), body, &resp); err != nil {
		return nil, err
	}
	out := &vectorstore.QueryResponse{}
	for _, r := range resp.Result {
		id, document, meta := splitPayload(r.Payload)
		if !vectorstore.MatchWhere(meta, where) {
			continue
		}
		out.IDs = append(out.IDs, id)
		out.Documents = append(out.Documents, document)
		out.Metadatas = append(out.Metadatas, meta)
		// Cosine scores are similarities already; callers expect distances.
		out.Distances = append(out.Distances, 1-r.Score)
	}
	return out, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection), map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.BackendError{Op: "reset", Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &domain.BackendError{Op: "reset", Err: fmt.Errorf("delete collection: %s", resp.Status)}
	}
	s.mu.Lock()
	s.created = false
	s.mu.Unlock()
	return nil
}

// pointID maps a chunk id to a deterministic UUID acceptable to Qdrant.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func splitPayload(payload map[string]any) (id, document string, meta map[string]any) {
	meta = make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case payloadIDKey:
			id, _ = v.(string)
		case "document":
			document, _ = v.(string)
		default:
			meta[k] = v
		}
	}
	return id, document, meta
}

func (s *Storage) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Storage) putJSON(ctx context.Context, url string, body any) error {
	return s.send(ctx, http.MethodPut, url, body, nil)
}

func (s *Storage) postJSON(ctx context.Context, url string, body, out any) error {
	return s.send(ctx, http.MethodPost, url, body, out)
}

func (s *Storage) send(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.BackendError{Op: method + " " + url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &domain.BackendError{Op: method + " " + url, Err: fmt.Errorf("%s", resp.Status)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
