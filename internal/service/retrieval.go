package service

import (
	"sort"
	"time"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

// IngestReport is the outcome of a batch ingestion. Partial failure is an
// expected, common result and is carried as data rather than as an error.
type IngestReport struct {
	RunID    string
	Ingested int
	Failed   []ItemFailure
}

// ItemFailure describes one document that could not be stored.
type ItemFailure struct {
	ID     string
	Source string
	Reason string
}

// buildWhere translates query options into the store's predicate dialect.
func buildWhere(o *domain.QueryOptions) map[string]any {
	where := make(map[string]any)
	if o.Category != "" {
		where["category"] = o.Category
	}
	if o.Source != "" {
		where["source"] = o.Source
	}
	if len(o.Tags) > 0 {
		where["tags"] = map[string]any{"$contains": o.Tags}
	}
	if o.DateRange != nil {
		bounds := make(map[string]any)
		if !o.DateRange.From.IsZero() {
			bounds["$gte"] = o.DateRange.From.UTC().Format(time.RFC3339)
		}
		if !o.DateRange.To.IsZero() {
			bounds["$lte"] = o.DateRange.To.UTC().Format(time.RFC3339)
		}
		if len(bounds) > 0 {
			where["lastModified"] = bounds
		}
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

// applyRetrievalFilter converts distances to similarities, gates on the
// threshold and returns at most limit results in descending score order.
// similarity = 1 - distance assumes the store's metric is normalized to
// [0,1]; other metrics are not renormalized here.
func applyRetrievalFilter(resp *vectorstore.QueryResponse, threshold float64, limit int) []domain.QueryResult {
	results := make([]domain.QueryResult, 0, len(resp.IDs))
	for i := range resp.IDs {
		score := 1 - resp.Distances[i]
		if score < threshold {
			continue
		}
		results = append(results, domain.QueryResult{
			ID:       resp.IDs[i],
			Content:  resp.Documents[i],
			Metadata: resp.Metadatas[i],
			Score:    score,
		})
	}
	// Stable keeps the store's original order for equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
