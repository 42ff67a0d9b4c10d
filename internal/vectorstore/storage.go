// Package vectorstore abstracts the collection-oriented vector database the
// library delegates persistence and similarity search to.
package vectorstore

import "context"

// QueryResponse is the raw nearest-neighbor output: parallel slices, one
// entry per returned neighbor, distances in the store's native metric.
type QueryResponse struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]any
	Distances []float64
}

// GetResponse is a bulk scan result. Embeddings is nil unless requested.
type GetResponse struct {
	IDs        []string
	Documents  []string
	Metadatas  []map[string]any
	Embeddings [][]float64
}

// Storage is the backend contract. Bulk operations take parallel slices and
// must reject mismatched lengths. The where predicate uses a small dialect:
// a key mapped to a scalar is an equality test, and a key mapped to an
// operator map supports $in (any-of), $contains (comma-list membership),
// $gte and $lte (lexicographic, used for RFC 3339 timestamps).
type Storage interface {
	// Heartbeat checks backend liveness.
	Heartbeat(ctx context.Context) error
	// EnsureCollection gets or creates the configured collection. The
	// check-then-create is not atomic against concurrent creators; that race
	// is inherited from the backend and left unhandled.
	EnsureCollection(ctx context.Context) error
	Add(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error
	Update(ctx context.Context, ids, documents []string, embeddings [][]float64, metadatas []map[string]any) error
	Delete(ctx context.Context, ids []string) error
	// Get scans up to limit documents. It does not paginate; callers treat
	// the result as a bounded sample of the collection.
	Get(ctx context.Context, limit int, includeEmbeddings bool) (*GetResponse, error)
	Query(ctx context.Context, embedding []float64, nResults int, where map[string]any) (*QueryResponse, error)
	Count(ctx context.Context) (int, error)
	// Reset drops and recreates the collection.
	Reset(ctx context.Context) error
}
