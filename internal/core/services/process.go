package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Ensure ProcessService implements the interface.
var _ driving.ProcessService = (*ProcessService)(nil)

// embedBatchSize bounds a single embedding request during import.
const embedBatchSize = 32

// ProcessService imports fixtures and lists the stored definitions.
type ProcessService struct {
	graphs     driven.ProcessGraphStore
	writer     driven.GraphWriter
	chunks     driven.ChunkWriter
	embedding  driven.EmbeddingService
	whitelists driving.WhitelistService
	pipeline   driven.DocumentPipeline
}

// NewProcessService creates a process service.
// The embedding parameter is optional (can be nil).
func NewProcessService(
	graphs driven.ProcessGraphStore,
	writer driven.GraphWriter,
	chunks driven.ChunkWriter,
	embedding driven.EmbeddingService,
	whitelists driving.WhitelistService,
) *ProcessService {
	return &ProcessService{
		graphs:     graphs,
		writer:     writer,
		chunks:     chunks,
		embedding:  embedding,
		whitelists: whitelists,
	}
}

// SetPipeline sets the pipeline that splits fixture documents into chunks.
// Without one, fixtures carrying documents are rejected.
func (s *ProcessService) SetPipeline(p driven.DocumentPipeline) {
	s.pipeline = p
}

// Definitions lists every definition with its processes.
func (s *ProcessService) Definitions(ctx context.Context) ([]domain.Definition, error) {
	return s.graphs.Definitions(ctx)
}

// Import writes a fixture. The graph is replaced as a whole; chunks are
// upserted. Missing embeddings are generated when an embedding service is
// configured, and an embedding failure only leaves those chunks lexical.
func (s *ProcessService) Import(ctx context.Context, fx driving.ProcessFixture) (*driving.ImportResult, error) {
	if err := validateFixture(fx); err != nil {
		return nil, err
	}

	all, err := s.documentChunks(ctx, fx)
	if err != nil {
		return nil, err
	}

	res := &driving.ImportResult{
		DefinitionID: fx.Definition.ID,
		Processes:    len(fx.Processes),
		Chunks:       len(all),
		Documents:    len(fx.Documents),
	}
	for _, p := range fx.Processes {
		res.Nodes += len(p.Nodes)
		res.Flows += len(p.Flows)
		res.Lanes += len(p.Lanes)
	}

	if err := s.writer.SaveDefinition(ctx, fx.Definition, fx.Processes); err != nil {
		return nil, fmt.Errorf("save definition %s: %w", fx.Definition.ID, err)
	}
	logger.Info("Imported definition %s: %d processes, %d nodes, %d flows",
		res.DefinitionID, res.Processes, res.Nodes, res.Flows)

	if len(all) > 0 {
		chunks := s.embedMissing(ctx, all)
		if err := s.chunks.SaveChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("save chunks: %w", err)
		}
	}

	if fx.DefaultWhitelists && s.whitelists != nil {
		wl, err := s.whitelists.CreateDefaults(ctx, fx.Definition.ID)
		if err != nil {
			return nil, fmt.Errorf("create default whitelists: %w", err)
		}
		res.Whitelists = &wl
	}
	return res, nil
}

// documentChunks returns the fixture chunks followed by the chunks of
// every fixture document.
func (s *ProcessService) documentChunks(ctx context.Context, fx driving.ProcessFixture) ([]domain.Chunk, error) {
	if len(fx.Documents) == 0 {
		return fx.Chunks, nil
	}
	if s.pipeline == nil {
		return nil, fmt.Errorf("%w: no document pipeline configured", domain.ErrInvalidInput)
	}

	all := append([]domain.Chunk(nil), fx.Chunks...)
	for i := range fx.Documents {
		chunks, err := s.pipeline.Process(ctx, &fx.Documents[i])
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", fx.Documents[i].ID, err)
		}
		logger.Debug("Import: document %s split into %d chunks", fx.Documents[i].ID, len(chunks))
		all = append(all, chunks...)
	}
	return all, nil
}

func (s *ProcessService) embedMissing(ctx context.Context, chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	if s.embedding == nil {
		return out
	}

	var pending []int
	for i, c := range out {
		if len(c.Embedding) == 0 && strings.TrimSpace(c.Text) != "" {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += embedBatchSize {
		end := min(start+embedBatchSize, len(pending))
		idx := pending[start:end]
		texts := make([]string, len(idx))
		for j, i := range idx {
			texts[j] = out[i].Text
		}

		vecs, err := s.embedding.EmbedBatch(ctx, texts)
		if err == nil && len(vecs) != len(idx) {
			err = fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(idx))
		}
		if err != nil {
			logger.Warn("Import: embedding %d chunks failed, keeping them lexical only: %v", len(idx), err)
			continue
		}
		for j, i := range idx {
			out[i].Embedding = vecs[j]
		}
	}
	return out
}

func validateFixture(fx driving.ProcessFixture) error {
	if strings.TrimSpace(fx.Definition.ID) == "" {
		return fmt.Errorf("%w: definition id is required", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(fx.Processes))
	for _, p := range fx.Processes {
		if p.ID == "" {
			return fmt.Errorf("%w: process id is required", domain.ErrInvalidInput)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate process %s", domain.ErrInvalidInput, p.ID)
		}
		seen[p.ID] = true

		nodes := make(map[string]bool, len(p.Nodes))
		for _, n := range p.Nodes {
			if n.ID == "" {
				return fmt.Errorf("%w: process %s has a node without id", domain.ErrInvalidInput, p.ID)
			}
			nodes[n.ID] = true
		}
		for _, f := range p.Flows {
			if !nodes[f.SourceID] || !nodes[f.TargetID] {
				return fmt.Errorf("%w: flow %s in process %s references an unknown node",
					domain.ErrInvalidInput, f.ID, p.ID)
			}
		}
	}
	for _, c := range fx.Chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
		}
	}
	docs := make(map[string]bool, len(fx.Documents))
	for _, d := range fx.Documents {
		switch {
		case strings.TrimSpace(d.ID) == "":
			return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
		case docs[d.ID]:
			return fmt.Errorf("%w: duplicate document %s", domain.ErrInvalidInput, d.ID)
		case strings.TrimSpace(d.Text) == "":
			return fmt.Errorf("%w: document %s has no text", domain.ErrInvalidInput, d.ID)
		}
		docs[d.ID] = true
	}
	return nil
}
