package postprocessors

import (
	"github.com/custodia-labs/procrag/internal/normalisers/markdown"
	"github.com/custodia-labs/procrag/internal/normalisers/plaintext"
	"github.com/custodia-labs/procrag/internal/postprocessors/chunker"
)

// NewDefaultPipeline builds the pipeline used for imported documentation:
// plain text and markdown normalisers followed by the chunker.
func NewDefaultPipeline(opts ...chunker.Option) *Pipeline {
	p := NewPipeline(chunker.New(opts...))
	p.AddNormaliser(plaintext.New())
	p.AddNormaliser(markdown.New())
	return p
}
