package driving

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// RetrievalService performs fused lexical and vector retrieval.
type RetrievalService interface {
	// Retrieve returns at most opts.TopK candidates.
	// Returns domain.ErrRetrievalUnavailable only when every source fails.
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.Candidate, error)
}
