package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// defaultTopK is used when a tool call does not set top_k.
const defaultTopK = 5

// HistoryTurn is one prior conversation message.
type HistoryTurn struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content" jsonschema:"the message text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query               string        `json:"query" jsonschema:"the user question"`
	Roles               []string      `json:"roles,omitempty" jsonschema:"role identifiers of the user, used for whitelist filtering"`
	History             []HistoryTurn `json:"history,omitempty" jsonschema:"prior conversation, oldest first"`
	ProcessName         string        `json:"process_name,omitempty" jsonschema:"restrict retrieval to one process by name"`
	ProcessID           string        `json:"process_id,omitempty" jsonschema:"process element id"`
	DefinitionID        string        `json:"definition_id,omitempty" jsonschema:"definitions id the process belongs to"`
	CurrentNodeID       string        `json:"current_node_id,omitempty" jsonschema:"the step the user is at; enables gating"`
	Tags                []string      `json:"tags,omitempty" jsonschema:"restrict retrieval to chunks with any of these tags"`
	TopK                int           `json:"top_k,omitempty" jsonschema:"number of passages to return (default 5)"`
	Rerank              *bool         `json:"rerank,omitempty" jsonschema:"score passages with the cross-encoder"`
	ForceProcessContext bool          `json:"force_process_context,omitempty" jsonschema:"attach the full process overview"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	RequestID       string                 `json:"request_id"`
	Intent          string                 `json:"intent"`
	Confidence      float64                `json:"confidence"`
	UseRAG          bool                   `json:"use_rag"`
	FallbackMessage string                 `json:"fallback_message,omitempty"`
	EffectiveQuery  string                 `json:"effective_query"`
	GatingMode      string                 `json:"gating_mode,omitempty"`
	Hint            string                 `json:"hint,omitempty"`
	Metadata        map[string]any         `json:"metadata,omitempty"`
	Position        *domain.PositionDetail `json:"position,omitempty"`
	Candidates      []CandidateOutput      `json:"candidates"`
}

// CandidateOutput is one retrieved passage.
type CandidateOutput struct {
	ChunkID     string         `json:"chunk_id"`
	Text        string         `json:"text"`
	Score       float64        `json:"score"`
	FusedScore  float64        `json:"fused_score"`
	Source      string         `json:"source"`
	Ranks       map[string]int `json:"ranks"`
	ProcessName string         `json:"process_name,omitempty"`
	NodeID      string         `json:"node_id,omitempty"`
	LaneID      string         `json:"lane_id,omitempty"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"the search query"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"number of passages to return (default 5)"`
	ProcessName string   `json:"process_name,omitempty" jsonschema:"restrict to one process by name"`
	Tags        []string `json:"tags,omitempty" jsonschema:"restrict to chunks with any of these tags"`
	Rerank      bool     `json:"rerank,omitempty" jsonschema:"score passages with the cross-encoder"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []CandidateOutput `json:"results"`
	Count   int               `json:"count"`
}

// ClassifyInput is the input schema for the classify tool.
type ClassifyInput struct {
	Query   string        `json:"query" jsonschema:"the user question"`
	History []HistoryTurn `json:"history,omitempty" jsonschema:"prior conversation, oldest first"`
}

// ClassifyOutput is the output schema for the classify tool.
type ClassifyOutput struct {
	Intent          string  `json:"intent"`
	Confidence      float64 `json:"confidence"`
	UseRAG          bool    `json:"use_rag"`
	FallbackMessage string  `json:"fallback_message,omitempty"`
}

// GatingInput is the input schema for the gating_context tool.
type GatingInput struct {
	ProcessName         string   `json:"process_name,omitempty" jsonschema:"process display name"`
	ProcessID           string   `json:"process_id,omitempty" jsonschema:"process element id"`
	DefinitionID        string   `json:"definition_id,omitempty" jsonschema:"definitions id the process belongs to"`
	CurrentNodeID       string   `json:"current_node_id,omitempty" jsonschema:"the step the user is at"`
	Roles               []string `json:"roles,omitempty" jsonschema:"role identifiers of the user"`
	ForceProcessContext bool     `json:"force_process_context,omitempty" jsonschema:"return the full process overview"`
}

// GatingOutput is the output schema for the gating_context tool.
type GatingOutput struct {
	Mode        string                 `json:"mode"`
	ProcessName string                 `json:"process_name,omitempty"`
	ProcessID   string                 `json:"process_id,omitempty"`
	Hint        string                 `json:"hint"`
	Metadata    map[string]any         `json:"metadata"`
	Position    *domain.PositionDetail `json:"position,omitempty"`
}

// NextAllowedInput is the input schema for the next_allowed tool.
type NextAllowedInput struct {
	ProcessID     string   `json:"process_id" jsonschema:"process element id"`
	CurrentNodeID string   `json:"current_node_id" jsonschema:"the step to search from"`
	WhitelistIDs  []string `json:"whitelist_ids,omitempty" jsonschema:"whitelists to apply; resolved from roles when empty"`
	Roles         []string `json:"roles,omitempty" jsonschema:"role identifiers used to find whitelists"`
	MaxDepth      int      `json:"max_depth,omitempty" jsonschema:"maximum hops (default 2)"`
}

// NextAllowedOutput is the output schema for the next_allowed tool.
type NextAllowedOutput struct {
	Nodes []domain.ReachableNode `json:"nodes"`
	Count int                    `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Classify a question, build the user's process context and retrieve " +
			"grounding passages. Non-process questions return a fallback message instead of passages.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid lexical and semantic search over the process documentation",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "classify",
		Description: "Decide whether a question is about institutional processes",
	}, s.handleClassify)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "gating_context",
		Description: "Describe where the user is in a process and which next steps their roles permit",
	}, s.handleGatingContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "next_allowed",
		Description: "List permitted steps reachable from the current step, nearest first",
	}, s.handleNextAllowed)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.ports.Ask.Ask(ctx, domain.AskRequest{
		Query:               input.Query,
		Roles:               input.Roles,
		History:             toHistory(input.History),
		ProcessName:         input.ProcessName,
		ProcessID:           input.ProcessID,
		DefinitionID:        input.DefinitionID,
		CurrentNodeID:       input.CurrentNodeID,
		Tags:                input.Tags,
		TopK:                input.TopK,
		Rerank:              input.Rerank,
		ForceProcessContext: input.ForceProcessContext,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	out := AskOutput{
		RequestID:       resp.RequestID,
		Intent:          resp.Intent.String(),
		Confidence:      resp.Confidence,
		UseRAG:          resp.UseRAG,
		FallbackMessage: resp.FallbackMessage,
		EffectiveQuery:  resp.EffectiveQuery,
		Position:        resp.Position,
		Candidates:      toCandidates(resp.Candidates),
	}
	if resp.Gating != nil {
		out.GatingMode = resp.Gating.Mode.String()
		out.Hint = resp.Gating.Hint
		out.Metadata = resp.Gating.Metadata.Map()
	}
	return nil, out, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, SearchOutput{}, errServiceUnavailable
	}

	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	cands, err := s.ports.Retrieval.Retrieve(ctx, input.Query, domain.RetrievalOptions{
		TopK:    topK,
		Filters: domain.Filters{ProcessName: input.ProcessName, Tags: input.Tags},
		Rerank:  input.Rerank,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	results := toCandidates(cands)
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleClassify(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClassifyInput,
) (*mcp.CallToolResult, ClassifyOutput, error) {
	if s.ports.Intent == nil {
		return nil, ClassifyOutput{}, errServiceUnavailable
	}

	c := s.ports.Intent.Classify(ctx, input.Query, toHistory(input.History))
	out := ClassifyOutput{
		Intent:     c.Intent.String(),
		Confidence: c.Confidence,
		UseRAG:     c.Intent.ShouldUseRAG(),
	}
	if !out.UseRAG {
		out.FallbackMessage = c.Intent.FallbackMessage()
	}
	return nil, out, nil
}

func (s *Server) handleGatingContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GatingInput,
) (*mcp.CallToolResult, GatingOutput, error) {
	if s.ports.Gating == nil {
		return nil, GatingOutput{}, errServiceUnavailable
	}

	gc := s.ports.Gating.Build(ctx, domain.GatingRequest{
		ProcessName:         input.ProcessName,
		ProcessID:           input.ProcessID,
		DefinitionID:        input.DefinitionID,
		CurrentNodeID:       input.CurrentNodeID,
		Roles:               input.Roles,
		ForceProcessContext: input.ForceProcessContext,
	})

	return nil, GatingOutput{
		Mode:        gc.Mode.String(),
		ProcessName: gc.ProcessName,
		ProcessID:   gc.ProcessID,
		Hint:        gc.Hint,
		Metadata:    gc.Metadata.Map(),
		Position:    gc.Detail(),
	}, nil
}

func (s *Server) handleNextAllowed(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NextAllowedInput,
) (*mcp.CallToolResult, NextAllowedOutput, error) {
	if s.ports.Whitelist == nil {
		return nil, NextAllowedOutput{}, errServiceUnavailable
	}

	ids := input.WhitelistIDs
	if len(ids) == 0 {
		var err error
		if ids, err = s.whitelistsForRoles(ctx, input.Roles); err != nil {
			return nil, NextAllowedOutput{}, err
		}
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = domain.DefaultGatingDepth
	}

	nodes, err := s.ports.Whitelist.NextAllowed(ctx, input.ProcessID, input.CurrentNodeID, ids, maxDepth)
	if err != nil {
		return nil, NextAllowedOutput{}, err
	}
	if nodes == nil {
		nodes = []domain.ReachableNode{}
	}
	return nil, NextAllowedOutput{Nodes: nodes, Count: len(nodes)}, nil
}

func (s *Server) whitelistsForRoles(ctx context.Context, roles []string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, role := range roles {
		found, err := s.ports.Whitelist.WhitelistsForPrincipal(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("whitelists for role %q: %w", role, err)
		}
		for _, id := range found {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func toHistory(turns []HistoryTurn) []domain.ChatTurn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]domain.ChatTurn, len(turns))
	for i, t := range turns {
		out[i] = domain.ChatTurn{Role: domain.ChatRole(t.Role), Content: t.Content}
	}
	return out
}

func toCandidates(cands []domain.Candidate) []CandidateOutput {
	out := make([]CandidateOutput, len(cands))
	for i := range cands {
		c := &cands[i]
		ranks := make(map[string]int, len(c.Ranks))
		for src, r := range c.Ranks {
			ranks[string(src)] = r
		}
		out[i] = CandidateOutput{
			ChunkID:     c.ChunkID,
			Text:        c.Chunk.Text,
			Score:       c.Score(),
			FusedScore:  c.FusedScore,
			Source:      string(c.Source),
			Ranks:       ranks,
			ProcessName: c.Chunk.ProcessName,
			NodeID:      c.Chunk.NodeID,
			LaneID:      c.Chunk.LaneID,
		}
	}
	return out
}
