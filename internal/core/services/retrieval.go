package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Retrieval defaults.
const (
	defaultTopK       = 5
	defaultRRFK       = 60
	defaultRerankTopN = 20

	// candidateFactor is how many candidates each source returns per result.
	candidateFactor = 5
)

// RankedList is the ordered chunk ids returned by one source.
type RankedList struct {
	Source domain.RetrievalSource
	IDs    []string
}

// RetrievalService fuses lexical and vector retrieval with reciprocal rank
// fusion and optionally reranks the result with a cross-encoder.
type RetrievalService struct {
	lexical   driven.LexicalSearch
	vector    driven.VectorSearch
	embedding driven.EmbeddingService
	chunks    driven.ChunkStore
	reranker  driven.Reranker
	metrics   driven.MetricsRecorder
	settings  domain.RetrievalSettings
}

// NewRetrievalService creates a hybrid retrieval service.
// The vector, embedding and reranker parameters are optional (can be nil).
func NewRetrievalService(
	lexical driven.LexicalSearch,
	vector driven.VectorSearch,
	embedding driven.EmbeddingService,
	chunks driven.ChunkStore,
	settings domain.RetrievalSettings,
) *RetrievalService {
	return &RetrievalService{
		lexical:   lexical,
		vector:    vector,
		embedding: embedding,
		chunks:    chunks,
		metrics:   nopMetrics{},
		settings:  settings,
	}
}

// SetReranker sets the cross-encoder used when reranking is requested.
func (s *RetrievalService) SetReranker(r driven.Reranker) {
	s.reranker = r
}

// SetMetrics sets the metrics recorder.
func (s *RetrievalService) SetMetrics(m driven.MetricsRecorder) {
	s.metrics = metricsOrNop(m)
}

// Retrieve returns the top candidates for a query. It fails only when
// neither source can answer.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrievalOptions,
) ([]domain.Candidate, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	k := firstPositive(opts.TopK, s.settings.TopK, defaultTopK)
	limit := k * candidateFactor
	logger.Debug("Query: %q, k=%d, per-source limit=%d, filters=%+v", query, k, limit, opts.Filters)

	var (
		g              errgroup.Group
		lexIDs, vecIDs []string
		lexErr, vecErr error
	)
	g.Go(func() error {
		lexIDs, lexErr = s.searchLexical(ctx, query, limit, opts.Filters)
		return nil
	})
	g.Go(func() error {
		vecIDs, vecErr = s.searchVector(ctx, query, limit, opts.Filters)
		return nil
	})
	_ = g.Wait()

	if lexErr != nil && vecErr != nil {
		logger.Warn("Retrieval: both sources failed")
		return nil, fmt.Errorf("%w: lexical: %v; vector: %v", domain.ErrRetrievalUnavailable, lexErr, vecErr)
	}

	var lists []RankedList
	if lexErr != nil {
		logger.Warn("Retrieval: lexical search failed, using vector results only: %v", lexErr)
	} else {
		lists = append(lists, RankedList{Source: domain.SourceLexical, IDs: lexIDs})
	}
	if vecErr != nil {
		logger.Warn("Retrieval: vector search failed, using lexical results only: %v", vecErr)
	} else {
		lists = append(lists, RankedList{Source: domain.SourceVector, IDs: vecIDs})
	}

	fused := Fuse(firstPositive(s.settings.RRFK, defaultRRFK), lists...)
	logger.Debug("Fused: %d lexical + %d vector -> %d candidates", len(lexIDs), len(vecIDs), len(fused))

	if !opts.Rerank {
		return s.resolve(ctx, head(fused, k)), nil
	}
	if s.reranker == nil {
		logger.Warn("Rerank requested but no reranker available, keeping fusion order")
		s.metrics.RerankFallback()
		return placeholderScores(s.resolve(ctx, head(fused, k))), nil
	}

	n := firstPositive(opts.RerankTopN, s.settings.RerankTopN, defaultRerankTopN)
	if n < k {
		n = k
	}
	pool := s.resolve(ctx, head(fused, n))
	return head(s.rerank(ctx, query, pool), k), nil
}

func (s *RetrievalService) searchLexical(
	ctx context.Context, query string, limit int, filters domain.Filters,
) ([]string, error) {
	if s.lexical == nil {
		return nil, domain.ErrSearchUnavailable
	}
	start := time.Now()
	hits, err := s.lexical.Search(ctx, query, limit, filters)
	s.metrics.RetrievalDuration(domain.SourceLexical, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids, nil
}

func (s *RetrievalService) searchVector(
	ctx context.Context, query string, limit int, filters domain.Filters,
) ([]string, error) {
	if s.vector == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	start := time.Now()
	vec, err := s.embedding.Embed(ctx, query)
	if err != nil {
		s.metrics.RetrievalDuration(domain.SourceVector, time.Since(start), err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vector.Search(ctx, vec, limit, filters)
	s.metrics.RetrievalDuration(domain.SourceVector, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids, nil
}

// Fuse merges ranked lists with reciprocal rank fusion. A chunk at 1-indexed
// rank r in a list contributes 1/(k+r); contributions are summed across
// lists. Ties keep first-seen order. Repeats within one list count once.
func Fuse(k int, lists ...RankedList) []domain.Candidate {
	index := make(map[string]int)
	var out []domain.Candidate

	for _, list := range lists {
		seen := make(map[string]bool, len(list.IDs))
		for i, id := range list.IDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			rank := i + 1

			pos, ok := index[id]
			if !ok {
				pos = len(out)
				index[id] = pos
				out = append(out, domain.Candidate{
					ChunkID: id,
					Ranks:   make(map[domain.RetrievalSource]int, len(lists)),
					Source:  domain.ScoreSourceFusion,
				})
			}
			out[pos].Ranks[list.Source] = rank
			out[pos].FusedScore += 1.0 / float64(k+rank)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FusedScore > out[j].FusedScore
	})
	if out == nil {
		out = []domain.Candidate{}
	}
	return out
}

// resolve attaches chunk payloads. A failed batch falls back to single
// lookups; ids that still fail are skipped.
func (s *RetrievalService) resolve(ctx context.Context, cands []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(cands))
	if len(cands) == 0 || s.chunks == nil {
		if s.chunks == nil && len(cands) > 0 {
			logger.Warn("Retrieval: no chunk store, dropping %d candidates", len(cands))
		}
		return out
	}

	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ChunkID
	}

	byID := make(map[string]domain.Chunk, len(ids))
	batch, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		logger.Warn("Retrieval: batch resolve failed, resolving one by one: %v", err)
	}
	for _, c := range batch {
		byID[c.ID] = c
	}

	for _, c := range cands {
		chunk, ok := byID[c.ChunkID]
		if !ok {
			got, err := s.chunks.GetChunk(ctx, c.ChunkID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					logger.Warn("Retrieval: resolve %s failed: %v", c.ChunkID, err)
				}
				continue
			}
			chunk = *got
		}
		c.Chunk = chunk
		out = append(out, c)
	}
	return out
}

// rerank reorders candidates by cross-encoder score. On failure the fusion
// order is kept with descending placeholder scores.
func (s *RetrievalService) rerank(ctx context.Context, query string, cands []domain.Candidate) []domain.Candidate {
	if len(cands) == 0 {
		return cands
	}
	docs := make([]string, len(cands))
	for i, c := range cands {
		docs[i] = c.Chunk.Text
	}

	scores, err := s.reranker.Score(ctx, query, docs)
	if err == nil && len(scores) != len(cands) {
		err = fmt.Errorf("%w: got %d scores for %d documents", domain.ErrRerankerUnavailable, len(scores), len(cands))
	}
	if err != nil {
		logger.Warn("Rerank failed, keeping fusion order: %v", err)
		s.metrics.RerankFallback()
		return placeholderScores(cands)
	}

	for i := range cands {
		score := scores[i]
		cands[i].RerankScore = &score
		cands[i].Source = domain.ScoreSourceCrossEncoder
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return *cands[i].RerankScore > *cands[j].RerankScore
	})
	return cands
}

// placeholderScores assigns 1/(i+1) in the current order.
func placeholderScores(cands []domain.Candidate) []domain.Candidate {
	for i := range cands {
		score := 1.0 / float64(i+1)
		cands[i].RerankScore = &score
		cands[i].Source = domain.ScoreSourceFusion
	}
	return cands
}

func head(c []domain.Candidate, n int) []domain.Candidate {
	if len(c) > n {
		return c[:n]
	}
	return c
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
