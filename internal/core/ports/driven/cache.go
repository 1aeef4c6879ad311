package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// ClassificationCache stores model classifications by normalised query.
// This is an optional service - when nil, every ambiguous query hits the model.
type ClassificationCache interface {
	// Get returns a cached classification. The boolean is false on a miss.
	Get(ctx context.Context, key string) (domain.Classification, bool, error)

	// Set stores a classification for ttl.
	Set(ctx context.Context, key string, c domain.Classification, ttl time.Duration) error

	// Close releases resources.
	Close() error
}
