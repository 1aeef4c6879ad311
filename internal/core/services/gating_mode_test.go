package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

func TestResolveGatingMode(t *testing.T) {
	tests := []struct {
		name   string
		nodeID string
		force  bool
		want   domain.GatingMode
	}{
		{"no node, not forced", "", false, domain.GatingModeNone},
		{"no node, forced", "", true, domain.GatingModeProcessContext},
		{"node, not forced", "Task_1", false, domain.GatingModeEnabled},
		{"node wins over force", "Task_1", true, domain.GatingModeEnabled},
		{"blank node id is absent", "   ", false, domain.GatingModeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveGatingMode(tt.nodeID, tt.force))
		})
	}
}

func TestResolveGatingMode_ProcessNameIrrelevant(t *testing.T) {
	// The resolver has no process name input; a request carrying only a
	// process name resolves the same as one without.
	req := domain.AskRequest{Query: "q", ProcessName: "Dienstreise"}
	assert.Equal(t, domain.GatingModeNone, ResolveGatingMode(req.CurrentNodeID, req.ForceProcessContext))
}
