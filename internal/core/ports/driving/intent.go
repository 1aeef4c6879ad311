package driving

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// IntentClassifier decides whether a query goes through retrieval.
type IntentClassifier interface {
	// Classify never fails. Model errors degrade to PROCESS_RELATED with a
	// low confidence.
	Classify(ctx context.Context, query string, history []domain.ChatTurn) domain.Classification
}
