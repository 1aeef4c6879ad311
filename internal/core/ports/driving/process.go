package driving

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// ProcessFixture is a self-contained import of one definition with its chunks.
type ProcessFixture struct {
	Definition domain.Definition
	Processes  []domain.ProcessImport
	Chunks     []domain.Chunk

	// Documents are split into chunks by the import pipeline.
	Documents []domain.SourceDocument

	// DefaultWhitelists generates per-lane whitelists after import.
	DefaultWhitelists bool
}

// ImportResult summarises a fixture import.
type ImportResult struct {
	DefinitionID string                         `json:"definition_id"`
	Processes    int                            `json:"processes"`
	Nodes        int                            `json:"nodes"`
	Flows        int                            `json:"flows"`
	Lanes        int                            `json:"lanes"`
	Chunks       int                            `json:"chunks"`
	Documents    int                            `json:"documents,omitempty"`
	Whitelists   *domain.DefaultWhitelistResult `json:"whitelists,omitempty"`
}

// ProcessService exposes imported process definitions.
type ProcessService interface {
	// Definitions lists every definition with its processes.
	Definitions(ctx context.Context) ([]domain.Definition, error)

	// Import writes a fixture to the stores.
	Import(ctx context.Context, fx ProcessFixture) (*ImportResult, error)
}
