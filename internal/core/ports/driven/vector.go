package driven

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// VectorSearch provides semantic similarity search over chunk embeddings.
type VectorSearch interface {
	// Search finds the nearest chunks to the query vector, most similar first.
	// Filters apply to the chunk payload.
	Search(ctx context.Context, vector []float32, limit int, filters domain.Filters) ([]VectorHit, error)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score.
	Similarity float64
}
