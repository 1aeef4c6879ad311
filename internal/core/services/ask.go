package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// AskService runs one request through classification, reformulation,
// gating and retrieval.
type AskService struct {
	intent       driving.IntentClassifier
	reformulator *Reformulator
	gating       driving.GatingService
	retrieval    driving.RetrievalService
	settings     domain.RetrievalSettings
}

// NewAskService creates the request orchestrator. reformulator may be nil.
func NewAskService(
	intent driving.IntentClassifier,
	reformulator *Reformulator,
	gating driving.GatingService,
	retrieval driving.RetrievalService,
	settings domain.RetrievalSettings,
) *AskService {
	return &AskService{
		intent:       intent,
		reformulator: reformulator,
		gating:       gating,
		retrieval:    retrieval,
		settings:     settings,
	}
}

// Ask answers one request. Only validation and retrieval failures are
// returned; classification and gating degrade silently.
func (s *AskService) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp := &domain.AskResponse{
		RequestID:      uuid.NewString(),
		EffectiveQuery: strings.TrimSpace(req.Query),
		Candidates:     []domain.Candidate{},
	}
	log := logger.With("request_id", resp.RequestID)

	c := domain.NewClassification(domain.IntentProcessRelated, 1)
	if !req.SkipIntentCheck {
		c = s.intent.Classify(ctx, req.Query, req.History)
	}
	resp.Intent = c.Intent
	resp.Confidence = c.Confidence
	resp.UseRAG = c.Intent.ShouldUseRAG()
	log.Debug().Str("intent", c.Intent.String()).Float64("confidence", c.Confidence).Msg("classified")

	if !resp.UseRAG {
		resp.FallbackMessage = c.Intent.FallbackMessage()
		return resp, nil
	}

	if s.reformulator != nil && ShouldReformulate(req.Query, req.History) {
		q, err := s.reformulator.Reformulate(ctx, resp.EffectiveQuery, req.History)
		if err != nil {
			log.Warn().Err(err).Msg("reformulation failed, using original query")
		}
		resp.EffectiveQuery = q
	}

	opts := s.retrievalOptions(req)

	var err error
	if req.ScopeToPermissions && ResolveGatingMode(req.CurrentNodeID, false) == domain.GatingModeEnabled {
		resp.Gating = s.gating.Build(ctx, req.GatingRequest())
		opts.Filters = ScopeFilters(opts.Filters, resp.Gating.Position)
		resp.Candidates, err = s.retrieval.Retrieve(ctx, resp.EffectiveQuery, opts)
	} else {
		resp.Gating, resp.Candidates, err = s.gateAndRetrieve(ctx, req, resp.EffectiveQuery, opts)
	}
	if err != nil {
		log.Warn().Err(err).Msg("retrieval failed")
		return nil, fmt.Errorf("ask: %w", err)
	}

	resp.Position = resp.Gating.Detail()
	log.Info().
		Str("mode", resp.Gating.Mode.String()).
		Int("candidates", len(resp.Candidates)).
		Msg("answered")
	return resp, nil
}

// gateAndRetrieve runs gating alongside retrieval. Gating cannot fail, so
// the group error is always the retrieval error.
func (s *AskService) gateAndRetrieve(
	ctx context.Context, req domain.AskRequest, query string, opts domain.RetrievalOptions,
) (*domain.GatingContext, []domain.Candidate, error) {
	var (
		gc    *domain.GatingContext
		cands []domain.Candidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gc = s.gating.Build(gctx, req.GatingRequest())
		return nil
	})
	g.Go(func() error {
		var err error
		cands, err = s.retrieval.Retrieve(gctx, query, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return gc, nil, err
	}
	return gc, cands, nil
}

func (s *AskService) retrievalOptions(req domain.AskRequest) domain.RetrievalOptions {
	rerank := s.settings.Rerank
	if req.Rerank != nil {
		rerank = *req.Rerank
	}
	return domain.RetrievalOptions{
		TopK:       firstPositive(req.TopK, s.settings.TopK, defaultTopK),
		Filters:    req.Filters(),
		Rerank:     rerank,
		RerankTopN: firstPositive(req.RerankTopN, s.settings.RerankTopN, defaultRerankTopN),
	}
}

// ScopeFilters narrows filters to the permitted steps of a position. The
// node set already covers lane members, so lanes are only used when no
// node is listed. Without permissions the filters are returned unchanged.
func ScopeFilters(f domain.Filters, pos *domain.LocalPosition) domain.Filters {
	if pos == nil {
		return f
	}
	switch {
	case len(pos.AllowedNodes) > 0:
		f.NodeIDs = append([]string(nil), pos.AllowedNodes...)
	case len(pos.AllowedLanes) > 0:
		f.LaneIDs = append([]string(nil), pos.AllowedLanes...)
	}
	return f
}
