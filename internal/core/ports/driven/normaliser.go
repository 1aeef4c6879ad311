package driven

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// Normaliser turns the text of one document format into plain text.
type Normaliser interface {
	// Formats returns the document formats this normaliser handles.
	Formats() []string

	// Normalise converts the document text to plain text.
	Normalise(ctx context.Context, doc *domain.SourceDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Splitting into chunks is left to the PostProcessor pipeline.
type NormaliseResult struct {
	// Title is the document title, taken from the content when the
	// document had none.
	Title string

	// Content is the plain text.
	Content string
}
