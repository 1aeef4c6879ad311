package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: decode body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// splitList parses a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req domain.AskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.ports.Ask.Ask(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []domain.Candidate `json:"results"`
	Count   int                `json:"count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, r, fmt.Errorf("%w: q is required", domain.ErrInvalidInput))
		return
	}

	opts := domain.RetrievalOptions{
		Filters: domain.Filters{
			ProcessName: q.Get("process_name"),
			Tags:        splitList(q.Get("tags")),
		},
	}
	if raw := q.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: top_k must be a non-negative integer", domain.ErrInvalidInput))
			return
		}
		opts.TopK = n
	}
	if raw := q.Get("rerank"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: rerank must be a boolean", domain.ErrInvalidInput))
			return
		}
		opts.Rerank = b
	}

	cands, err := s.ports.Retrieval.Retrieve(r.Context(), query, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cands == nil {
		cands = []domain.Candidate{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: cands, Count: len(cands)})
}

type classifyRequest struct {
	Query   string            `json:"query"`
	History []domain.ChatTurn `json:"history,omitempty"`
}

type classifyResponse struct {
	Intent          domain.Intent `json:"intent"`
	Confidence      float64       `json:"confidence"`
	UseRAG          bool          `json:"use_rag"`
	FallbackMessage string        `json:"fallback_message,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, fmt.Errorf("%w: query is required", domain.ErrInvalidInput))
		return
	}

	c := s.ports.Intent.Classify(r.Context(), req.Query, req.History)
	resp := classifyResponse{
		Intent:     c.Intent,
		Confidence: c.Confidence,
		UseRAG:     c.Intent.ShouldUseRAG(),
	}
	if !resp.UseRAG {
		resp.FallbackMessage = c.Intent.FallbackMessage()
	}
	writeJSON(w, http.StatusOK, resp)
}

type gatingResponse struct {
	Mode        domain.GatingMode      `json:"mode"`
	ProcessName string                 `json:"process_name,omitempty"`
	ProcessID   string                 `json:"process_id,omitempty"`
	Hint        string                 `json:"hint"`
	Metadata    domain.GatingMetadata  `json:"metadata"`
	Position    *domain.PositionDetail `json:"position,omitempty"`
}

func (s *Server) handleGating(w http.ResponseWriter, r *http.Request) {
	var req domain.GatingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	gc := s.ports.Gating.Build(r.Context(), req)
	writeJSON(w, http.StatusOK, gatingResponse{
		Mode:        gc.Mode,
		ProcessName: gc.ProcessName,
		ProcessID:   gc.ProcessID,
		Hint:        gc.Hint,
		Metadata:    gc.Metadata,
		Position:    gc.Detail(),
	})
}

func (s *Server) handleUpsertWhitelist(w http.ResponseWriter, r *http.Request) {
	var wl domain.Whitelist
	if err := decodeJSON(r, &wl); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ports.Whitelist.Upsert(r.Context(), wl); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (s *Server) handleGetWhitelist(w http.ResponseWriter, r *http.Request) {
	wl, err := s.ports.Whitelist.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (s *Server) handleListWhitelists(w http.ResponseWriter, r *http.Request) {
	wls, err := s.ports.Whitelist.ListForDefinition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wls == nil {
		wls = []domain.Whitelist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"whitelists": wls})
}

type nextAllowedRequest struct {
	ProcessID     string   `json:"process_id"`
	CurrentNodeID string   `json:"current_node_id"`
	WhitelistIDs  []string `json:"whitelist_ids"`
	MaxDepth      int      `json:"max_depth,omitempty"`
}

func (s *Server) handleNextAllowed(w http.ResponseWriter, r *http.Request) {
	var req nextAllowedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProcessID == "" || req.CurrentNodeID == "" {
		writeError(w, r, fmt.Errorf("%w: process_id and current_node_id are required", domain.ErrInvalidInput))
		return
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = domain.DefaultGatingDepth
	}

	nodes, err := s.ports.Whitelist.NextAllowed(r.Context(), req.ProcessID, req.CurrentNodeID, req.WhitelistIDs, req.MaxDepth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []domain.ReachableNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

func (s *Server) handleAllowedForPrincipal(w http.ResponseWriter, r *http.Request) {
	roles := splitList(r.URL.Query().Get("roles"))
	grant, err := s.ports.Whitelist.AllowedForPrincipal(r.Context(), chi.URLParam(r, "id"), roles)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if grant.NodeIDs == nil {
		grant.NodeIDs = []string{}
	}
	if grant.LaneIDs == nil {
		grant.LaneIDs = []string{}
	}
	writeJSON(w, http.StatusOK, grant)
}

func (s *Server) handleCreateDefaults(w http.ResponseWriter, r *http.Request) {
	res, err := s.ports.Whitelist.CreateDefaults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := s.ports.Process.Definitions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if defs == nil {
		defs = []domain.Definition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"definitions": defs})
}
