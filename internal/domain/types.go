package domain

import "time"

// Document is a unit of content stored in the vector collection. Metadata
// holds only store-safe scalars (string, float64, bool); anything richer is
// flattened before a Document is built.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float64      `json:"embedding,omitempty"`
}

// QueryResult is a matching document with its similarity score in [0,1],
// higher meaning more similar.
type QueryResult struct {
	ID       string
	Content  string
	Metadata map[string]any
	Score    float64
}

// QueryOptions narrows and bounds a similarity query. Attribute filters
// (Category, Source, Tags, DateRange) are pushed down to the store as a
// predicate before the nearest-neighbor search.
type QueryOptions struct {
	Limit     int
	Threshold float64
	Category  string
	Source    string
	Tags      []string
	DateRange *DateRange
}

// DateRange bounds documents by their lastModified metadata, inclusive.
// A zero From or To leaves that side unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Query defaults applied when options are omitted.
const (
	DefaultQueryLimit     = 5
	DefaultQueryThreshold = 0.7
)

// DefaultQueryOptions returns options with the standard limit and threshold.
// Callers that want threshold 0 must build QueryOptions explicitly; a zero
// threshold is honored as given, never replaced by the default.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: DefaultQueryLimit, Threshold: DefaultQueryThreshold}
}

// CollectionStats summarizes a collection. Category, source and chunk-size
// figures come from a bounded sample and are best-effort when the collection
// exceeds the sample limit; TotalDocuments is exact.
type CollectionStats struct {
	TotalDocuments int            `json:"totalDocuments"`
	ByCategory     map[string]int `json:"byCategory"`
	BySource       map[string]int `json:"bySource"`
	AvgChunkSize   float64        `json:"avgChunkSize"`
	Sampled        int            `json:"sampled"`
}
