package mcp

import (
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask runs the full pipeline. Required.
	Ask driving.AskService

	// Retrieval backs the search tool.
	Retrieval driving.RetrievalService

	// Intent backs the classify tool.
	Intent driving.IntentClassifier

	// Gating backs the gating_context tool.
	Gating driving.GatingService

	// Whitelist backs next_allowed and the whitelist resource.
	Whitelist driving.WhitelistService

	// Process backs the definitions resource.
	Process driving.ProcessService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	return nil
}
