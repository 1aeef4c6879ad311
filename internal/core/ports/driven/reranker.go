package driven

import "context"

// Reranker scores query-document pairs with a cross-encoder.
// This is an optional service - when nil, fusion order is kept.
type Reranker interface {
	// Score returns one relevance score per document, in input order.
	Score(ctx context.Context, query string, docs []string) ([]float64, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
