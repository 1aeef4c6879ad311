package driven

import (
	"time"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// MetricsRecorder receives operational measurements.
// This is an optional service - when nil, nothing is recorded.
type MetricsRecorder interface {
	// RetrievalDuration records how long one source took and whether it failed.
	RetrievalDuration(source domain.RetrievalSource, d time.Duration, err error)

	// IntentClassified counts a classification by intent and deciding stage.
	IntentClassified(intent domain.Intent, stage string)

	// RerankFallback counts reranks that fell back to fusion order.
	RerankFallback()

	// GatingDegraded counts gating lookups that failed and were recovered.
	GatingDegraded(step string)

	// BatchQuery counts a replayed batch query by outcome.
	BatchQuery(outcome string)
}
