// Package postprocessors turns process documentation into chunks.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.DocumentPipeline = (*Pipeline)(nil)

// Pipeline normalises a document by its format and then chains
// PostProcessors over it in order.
type Pipeline struct {
	normalisers map[string]driven.Normaliser
	processors  []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		normalisers: make(map[string]driven.Normaliser),
		processors:  processors,
	}
}

// AddNormaliser registers n for every format it reports. A later
// normaliser replaces an earlier one for the same format.
func (p *Pipeline) AddNormaliser(n driven.Normaliser) {
	for _, f := range n.Formats() {
		p.normalisers[strings.ToLower(f)] = n
	}
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Process normalises doc and runs it through all processors.
// The first processor receives nil chunks and should create them.
// Documents without a registered normaliser for their format are
// rejected; with no normalisers registered at all the text is used as is.
func (p *Pipeline) Process(ctx context.Context, doc *domain.SourceDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	normalised := *doc
	if len(p.normalisers) > 0 {
		format := doc.NormalisedFormat()
		n, ok := p.normalisers[format]
		if !ok {
			return nil, fmt.Errorf("%w: document %s has unsupported format %q", domain.ErrInvalidInput, doc.ID, format)
		}
		res, err := n.Normalise(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("normalise %s: %w", doc.ID, err)
		}
		normalised.Text = res.Content
		if normalised.Title == "" {
			normalised.Title = res.Title
		}
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, &normalised, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return chunks, nil
}
