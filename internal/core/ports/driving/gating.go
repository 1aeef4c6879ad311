package driving

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// GatingService builds the process context for a request.
type GatingService interface {
	// Build never fails. Lookup errors are logged and yield empty collections.
	Build(ctx context.Context, req domain.GatingRequest) *domain.GatingContext
}
