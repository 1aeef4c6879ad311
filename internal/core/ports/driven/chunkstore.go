package driven

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// ChunkStore resolves chunk payloads by id.
type ChunkStore interface {
	// GetChunks returns the chunks that exist, in no particular order.
	// Missing ids are omitted without error.
	GetChunks(ctx context.Context, ids []string) ([]domain.Chunk, error)

	// GetChunk returns one chunk.
	// Returns domain.ErrNotFound if it does not exist.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)
}

// ChunkWriter persists chunks and keeps the search indexes in sync.
type ChunkWriter interface {
	// SaveChunks creates or replaces chunks.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error
}
