package plaintext

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Formats returns the document formats this normaliser handles.
func (n *Normaliser) Formats() []string {
	return []string{domain.DocumentFormatText}
}

var (
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// Normalise unifies line endings, drops trailing whitespace and collapses
// runs of blank lines.
func (n *Normaliser) Normalise(_ context.Context, doc *domain.SourceDocument) (*driven.NormaliseResult, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(doc.Text, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = trailingSpace.ReplaceAllString(content, "")
	content = blankLines.ReplaceAllString(content, "\n\n")

	return &driven.NormaliseResult{
		Title:   extractTitle(doc),
		Content: strings.TrimSpace(content),
	}, nil
}

// extractTitle prefers the document title, then a readable form of its id.
func extractTitle(doc *domain.SourceDocument) string {
	if doc.Title != "" {
		return doc.Title
	}
	title := strings.ReplaceAll(doc.ID, "_", " ")
	return strings.ReplaceAll(title, "-", " ")
}
