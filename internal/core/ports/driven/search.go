package driven

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// LexicalSearch provides keyword search over chunks.
type LexicalSearch interface {
	// Search returns matching chunk ids, best first. Filters are exact matches
	// on chunk metadata.
	Search(ctx context.Context, query string, limit int, filters domain.Filters) ([]SearchHit, error)
}

// SearchHit represents a search result from the engine.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score (e.g., BM25).
	Score float64
}
