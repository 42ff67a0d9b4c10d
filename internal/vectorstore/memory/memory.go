package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

// Storage is an in-memory vector store using brute-force cosine distance.
// It evaluates where predicates itself, so filter pushdown behaves the same
// as against a backend with native filtering.
type Storage struct {
	mu      sync.RWMutex
	created bool
	rows    []row
	index   map[string]int
}

type row struct {
	id        string
	document  string
	embedding []float64
	metadata  map[string]any
}

func NewStorage() *Storage {
	return &Storage{index: make(map[string]int)}
}

func (s *Storage) Heartbeat(ctx context.Context) error { return nil }

func (s *Storage) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	return nil
}

func (s *Storage) Add(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	if err := checkLengths(ids, documents, embeddings, metadatas); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return &domain.BackendError{Op: "add", Err: fmt.Errorf("collection does not exist")}
	}
	for i, id := range ids {
		r := row{id: id, document: documents[i], embedding: embeddings[i], metadata: metadatas[i]}
		if j, ok := s.index[id]; ok {
			s.rows[j] = r
			continue
		}
		s.index[id] = len(s.rows)
		s.rows = append(s.rows, r)
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	if err := checkLengths(ids, documents, embeddings, metadatas); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		j, ok := s.index[id]
		if !ok {
			return &domain.BackendError{Op: "update", Err: fmt.Errorf("unknown id %s", id)}
		}
		s.rows[j] = row{id: id, document: documents[i], embedding: embeddings[i], metadata: metadatas[i]}
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.rows[:0]
	for _, r := range s.rows {
		if _, gone := drop[r.id]; !gone {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	s.index = make(map[string]int, len(s.rows))
	for i, r := range s.rows {
		s.index[r.id] = i
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, limit int, includeEmbeddings bool) (*vectorstore.GetResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.rows)
	if limit > 0 && limit < n {
		n = limit
	}
	resp := &vectorstore.GetResponse{
		IDs:       make([]string, 0, n),
		Documents: make([]string, 0, n),
		Metadatas: make([]map[string]any, 0, n),
	}
	for _, r := range s.rows[:n] {
		resp.IDs = append(resp.IDs, r.id)
		resp.Documents = append(resp.Documents, r.document)
		resp.Metadatas = append(resp.Metadatas, r.metadata)
		if includeEmbeddings {
			resp.Embeddings = append(resp.Embeddings, r.embedding)
		}
	}
	return resp, nil
}

func (s *Storage) Query(ctx context.Context, embedding []float64, nResults int, where map[string]any) (*vectorstore.QueryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if nResults <= 0 {
		nResults = 5
	}
	type scored struct {
		r        row
		distance float64
	}
	candidates := make([]scored, 0, len(s.rows))
	for _, r := range s.rows {
		if !vectorstore.MatchWhere(r.metadata, where) {
			continue
		}
		candidates = append(candidates, scored{r: r, distance: 1 - cosine(embedding, r.embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	if nResults < len(candidates) {
		candidates = candidates[:nResults]
	}
	resp := &vectorstore.QueryResponse{}
	for _, c := range candidates {
		resp.IDs = append(resp.IDs, c.r.id)
		resp.Documents = append(resp.Documents, c.r.document)
		resp.Metadatas = append(resp.Metadatas, c.r.metadata)
		resp.Distances = append(resp.Distances, c.distance)
	}
	return resp, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

func (s *Storage) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.index = make(map[string]int)
	s.created = true
	return nil
}

func checkLengths(ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error {
	n := len(ids)
	if len(documents) != n || len(embeddings) != n || len(metadatas) != n {
		return domain.ErrLengthMismatch
	}
	return nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
