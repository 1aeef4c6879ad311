package driving

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// AskService sequences classification, gating and retrieval for one question.
type AskService interface {
	// Ask returns domain.ErrInvalidInput for malformed requests and
	// domain.ErrRetrievalUnavailable when retrieval cannot run at all.
	Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResponse, error)
}

// BatchResult is the outcome of one replayed request.
type BatchResult struct {
	// Index is the position of the request in the input.
	Index int

	// Response is nil when Err is set.
	Response *domain.AskResponse

	// Err is the failure of this request, if any.
	Err error
}

// BatchService replays many requests with bounded concurrency.
type BatchService interface {
	// Run answers every request. Results arrive in completion order and the
	// returned slice is ordered by Index. onResult may be nil.
	Run(ctx context.Context, reqs []domain.AskRequest, onResult func(BatchResult)) ([]BatchResult, error)
}
