package driven

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// PostProcessor processes normalised document content to produce chunks.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging.
	Name() string

	// Process receives the normalised document and the chunks of earlier
	// processors. A chunker receives nil and returns new chunks.
	Process(ctx context.Context, doc *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// DocumentPipeline normalises a document and splits it into chunks.
type DocumentPipeline interface {
	Process(ctx context.Context, doc *domain.SourceDocument) ([]domain.Chunk, error)
}
