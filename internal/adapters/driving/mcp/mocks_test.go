package mcp

import (
	"context"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
)

type mockAskService struct {
	resp    *domain.AskResponse
	err     error
	lastReq domain.AskRequest
}

func (m *mockAskService) Ask(_ context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

type mockRetrievalService struct {
	cands    []domain.Candidate
	err      error
	lastOpts domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string, opts domain.RetrievalOptions) ([]domain.Candidate, error) {
	m.lastOpts = opts
	return m.cands, m.err
}

type mockIntentClassifier struct {
	result      domain.Classification
	lastHistory []domain.ChatTurn
}

func (m *mockIntentClassifier) Classify(_ context.Context, _ string, history []domain.ChatTurn) domain.Classification {
	m.lastHistory = history
	return m.result
}

type mockGatingService struct {
	gc      *domain.GatingContext
	lastReq domain.GatingRequest
}

func (m *mockGatingService) Build(_ context.Context, req domain.GatingRequest) *domain.GatingContext {
	m.lastReq = req
	return m.gc
}

// mockWhitelistService answers the read side of driving.WhitelistService.
type mockWhitelistService struct {
	whitelists map[string]domain.Whitelist
	byRole     map[string][]string
	reachable  []domain.ReachableNode
	err        error

	lastIDs   []string
	lastDepth int
}

func (m *mockWhitelistService) Upsert(_ context.Context, _ domain.Whitelist) error {
	return m.err
}

func (m *mockWhitelistService) Get(_ context.Context, id string) (*domain.Whitelist, error) {
	if m.err != nil {
		return nil, m.err
	}
	wl, ok := m.whitelists[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &wl, nil
}

func (m *mockWhitelistService) ListForDefinition(_ context.Context, _ string) ([]domain.Whitelist, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Whitelist
	for _, wl := range m.whitelists {
		out = append(out, wl)
	}
	return out, nil
}

func (m *mockWhitelistService) WhitelistsForPrincipal(_ context.Context, role string) ([]string, error) {
	return m.byRole[role], m.err
}

func (m *mockWhitelistService) AllowedNodesUnion(_ context.Context, _ []string, _ string) (domain.AllowedSet, error) {
	return domain.AllowedSet{}, m.err
}

func (m *mockWhitelistService) NextAllowed(_ context.Context, _, _ string, ids []string, maxDepth int) ([]domain.ReachableNode, error) {
	m.lastIDs = ids
	m.lastDepth = maxDepth
	return m.reachable, m.err
}

func (m *mockWhitelistService) AllowedForPrincipal(_ context.Context, _ string, _ []string) (domain.PrincipalGrant, error) {
	return domain.PrincipalGrant{}, m.err
}

func (m *mockWhitelistService) CreateDefaults(_ context.Context, _ string) (domain.DefaultWhitelistResult, error) {
	return domain.DefaultWhitelistResult{}, m.err
}

type mockProcessService struct {
	defs []domain.Definition
	err  error
}

func (m *mockProcessService) Definitions(_ context.Context) ([]domain.Definition, error) {
	return m.defs, m.err
}

func (m *mockProcessService) Import(_ context.Context, _ driving.ProcessFixture) (*driving.ImportResult, error) {
	return nil, m.err
}
