package domain

import (
	"fmt"
	"strings"
)

// AskRequest is a single question to the engine.
type AskRequest struct {
	Query               string     `json:"query" yaml:"query"`
	Roles               []string   `json:"roles,omitempty" yaml:"roles"`
	History             []ChatTurn `json:"history,omitempty" yaml:"history"`
	ProcessName         string     `json:"process_name,omitempty" yaml:"process_name"`
	ProcessID           string     `json:"process_id,omitempty" yaml:"process_id"`
	DefinitionID        string     `json:"definition_id,omitempty" yaml:"definition_id"`
	CurrentNodeID       string     `json:"current_node_id,omitempty" yaml:"current_node_id"`
	Tags                []string   `json:"tags,omitempty" yaml:"tags"`
	TopK                int        `json:"top_k,omitempty" yaml:"top_k"`
	Rerank              *bool      `json:"rerank,omitempty" yaml:"rerank"`
	RerankTopN          int        `json:"rerank_top_n,omitempty" yaml:"rerank_top_n"`
	ForceProcessContext bool       `json:"force_process_context,omitempty" yaml:"force_process_context"`
	SkipIntentCheck     bool       `json:"skip_intent_check,omitempty" yaml:"skip_intent_check"`

	// ScopeToPermissions restricts retrieval to chunks of the permitted
	// nodes and lanes. Gating then runs before retrieval instead of alongside it.
	ScopeToPermissions bool `json:"scope_to_permissions,omitempty" yaml:"scope_to_permissions"`
}

// Validate rejects requests the engine cannot serve.
func (r AskRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if r.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative", ErrInvalidInput)
	}
	if r.RerankTopN < 0 {
		return fmt.Errorf("%w: rerank_top_n must not be negative", ErrInvalidInput)
	}
	return nil
}

// GatingRequest returns the gating inputs of the request.
func (r AskRequest) GatingRequest() GatingRequest {
	return GatingRequest{
		ProcessName:         r.ProcessName,
		ProcessID:           r.ProcessID,
		DefinitionID:        r.DefinitionID,
		CurrentNodeID:       r.CurrentNodeID,
		Roles:               r.Roles,
		ForceProcessContext: r.ForceProcessContext,
	}
}

// Filters returns the retrieval filters the request itself implies.
func (r AskRequest) Filters() Filters {
	return Filters{ProcessName: r.ProcessName, Tags: r.Tags}
}

// AskResponse is the engine's answer context for one request.
type AskResponse struct {
	RequestID       string          `json:"request_id"`
	Intent          Intent          `json:"intent"`
	Confidence      float64         `json:"confidence"`
	UseRAG          bool            `json:"use_rag"`
	FallbackMessage string          `json:"fallback_message,omitempty"`
	EffectiveQuery  string          `json:"effective_query"`
	Gating          *GatingContext  `json:"gating,omitempty"`
	Position        *PositionDetail `json:"position,omitempty"`
	Candidates      []Candidate     `json:"candidates"`
}
