// Package tei provides a cross-encoder reranker adapter for the rerank
// endpoint of Hugging Face text-embeddings-inference.
//
// The default model is BAAI/bge-reranker-v2-m3, which is multilingual and
// handles German process documentation well.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Default configuration values.
const (
	DefaultModel   = "BAAI/bge-reranker-v2-m3"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the reranker.
type Config struct {
	// BaseURL is the inference server URL (required).
	BaseURL string

	// Model is informational; the server decides which model it serves.
	Model string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Reranker scores query/document pairs through a remote cross-encoder.
type Reranker struct {
	client  *http.Client
	baseURL string
	model   string
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewReranker creates a reranker client.
func NewReranker(cfg Config) (*Reranker, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: reranker base URL is required", domain.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Reranker{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}, nil
}

// Score returns one normalised score per document, in input order.
func (r *Reranker) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: docs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrRerankerUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRerankerUnavailable, resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRerankerUnavailable, resp.StatusCode, string(body))
	}

	var results []rerankResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrRerankerUnavailable, err)
	}

	// The server sorts by score; map results back to input positions.
	scores := make([]float64, len(docs))
	seen := make([]bool, len(docs))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(docs) || seen[res.Index] {
			return nil, fmt.Errorf("%w: invalid result index %d", domain.ErrRerankerUnavailable, res.Index)
		}
		scores[res.Index] = res.Score
		seen[res.Index] = true
	}
	if len(results) != len(docs) {
		return nil, fmt.Errorf("%w: got %d scores for %d documents", domain.ErrRerankerUnavailable, len(results), len(docs))
	}
	return scores, nil
}

// Model returns the configured model name.
func (r *Reranker) Model() string {
	return r.model
}

// Ping checks the /health endpoint.
func (r *Reranker) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping: %v", domain.ErrRerankerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping status %d", domain.ErrRerankerUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (r *Reranker) Close() error {
	return nil
}
