package services

import (
	"strings"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// ResolveGatingMode picks the gating mode for a request.
// A current node always enables gating. Without one, forcing selects the full
// process overview. A process name on its own never triggers gating; it only
// filters retrieval.
func ResolveGatingMode(currentNodeID string, forceProcessContext bool) domain.GatingMode {
	if strings.TrimSpace(currentNodeID) != "" {
		return domain.GatingModeEnabled
	}
	if forceProcessContext {
		return domain.GatingModeProcessContext
	}
	return domain.GatingModeNone
}
