package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/procrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
)

// --- Mock implementations ---

type mockAskService struct {
	resp *domain.AskResponse
	err  error
	last domain.AskRequest
}

func (m *mockAskService) Ask(_ context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

type mockBatchService struct {
	mu   sync.Mutex
	reqs []domain.AskRequest
	err  error
}

// Run answers "Hallo" with a fallback and fails queries containing "boom".
func (m *mockBatchService) Run(
	_ context.Context, reqs []domain.AskRequest, onResult func(driving.BatchResult),
) ([]driving.BatchResult, error) {
	m.mu.Lock()
	m.reqs = reqs
	m.mu.Unlock()

	results := make([]driving.BatchResult, len(reqs))
	for i, r := range reqs {
		res := driving.BatchResult{Index: i}
		switch {
		case strings.Contains(r.Query, "boom"):
			res.Err = errors.New("retrieval exploded")
		case r.Query == "Hallo":
			res.Response = &domain.AskResponse{Intent: domain.IntentGreeting, Confidence: 0.95,
				FallbackMessage: domain.IntentGreeting.FallbackMessage()}
		default:
			res.Response = &domain.AskResponse{Intent: domain.IntentProcessRelated, Confidence: 0.9, UseRAG: true}
		}
		results[i] = res
		if onResult != nil {
			onResult(res)
		}
	}
	return results, m.err
}

type mockRetrievalService struct {
	results   []domain.Candidate
	err       error
	lastQuery string
	lastOpts  domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, query string, opts domain.RetrievalOptions,
) ([]domain.Candidate, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

type mockIntentClassifier struct {
	result      domain.Classification
	lastQuery   string
	lastHistory []domain.ChatTurn
}

func (m *mockIntentClassifier) Classify(_ context.Context, query string, history []domain.ChatTurn) domain.Classification {
	m.lastQuery = query
	m.lastHistory = history
	return m.result
}

type mockGatingService struct {
	gc   *domain.GatingContext
	last domain.GatingRequest
}

func (m *mockGatingService) Build(_ context.Context, req domain.GatingRequest) *domain.GatingContext {
	m.last = req
	return m.gc
}

type mockWhitelistService struct {
	items     map[string]domain.Whitelist
	byRole    map[string][]string
	reachable []domain.ReachableNode
	grant     domain.PrincipalGrant
	defaults  domain.DefaultWhitelistResult
	lastIDs   []string
	lastDepth int
	lastRoles []string
}

func newMockWhitelistService() *mockWhitelistService {
	return &mockWhitelistService{
		items:  make(map[string]domain.Whitelist),
		byRole: make(map[string][]string),
	}
}

func (m *mockWhitelistService) Upsert(_ context.Context, wl domain.Whitelist) error {
	if wl.ID == "" {
		return domain.ErrInvalidInput
	}
	m.items[wl.ID] = wl
	return nil
}

func (m *mockWhitelistService) Get(_ context.Context, id string) (*domain.Whitelist, error) {
	wl, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &wl, nil
}

func (m *mockWhitelistService) ListForDefinition(_ context.Context, _ string) ([]domain.Whitelist, error) {
	var out []domain.Whitelist
	for _, wl := range m.items {
		out = append(out, wl)
	}
	return out, nil
}

func (m *mockWhitelistService) WhitelistsForPrincipal(_ context.Context, role string) ([]string, error) {
	return m.byRole[role], nil
}

func (m *mockWhitelistService) AllowedNodesUnion(_ context.Context, _ []string, _ string) (domain.AllowedSet, error) {
	return domain.NewAllowedSet(), nil
}

func (m *mockWhitelistService) NextAllowed(
	_ context.Context, _, _ string, whitelistIDs []string, maxDepth int,
) ([]domain.ReachableNode, error) {
	m.lastIDs = whitelistIDs
	m.lastDepth = maxDepth
	if len(whitelistIDs) == 0 {
		return nil, nil
	}
	return m.reachable, nil
}

func (m *mockWhitelistService) AllowedForPrincipal(_ context.Context, _ string, roles []string) (domain.PrincipalGrant, error) {
	m.lastRoles = roles
	return m.grant, nil
}

func (m *mockWhitelistService) CreateDefaults(_ context.Context, definitionID string) (domain.DefaultWhitelistResult, error) {
	if definitionID == "missing" {
		return domain.DefaultWhitelistResult{}, domain.ErrNotFound
	}
	return m.defaults, nil
}

type mockProcessService struct {
	defs []domain.Definition
	last driving.ProcessFixture
	err  error
}

func (m *mockProcessService) Definitions(_ context.Context) ([]domain.Definition, error) {
	return m.defs, nil
}

func (m *mockProcessService) Import(_ context.Context, fx driving.ProcessFixture) (*driving.ImportResult, error) {
	m.last = fx
	if m.err != nil {
		return nil, m.err
	}
	res := &driving.ImportResult{
		DefinitionID: fx.Definition.ID,
		Processes:    len(fx.Processes),
		Chunks:       len(fx.Chunks) + len(fx.Documents),
		Documents:    len(fx.Documents),
	}
	for _, p := range fx.Processes {
		res.Nodes += len(p.Nodes)
		res.Flows += len(p.Flows)
		res.Lanes += len(p.Lanes)
	}
	if fx.DefaultWhitelists {
		res.Whitelists = &domain.DefaultWhitelistResult{Whitelists: res.Lanes, Lanes: res.Lanes}
	}
	return res, nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error

	embedding struct {
		provider domain.AIProvider
		model    string
		apiKey   string
	}
	llm struct {
		provider domain.AIProvider
		model    string
		apiKey   string
	}
	reranker struct {
		baseURL string
		model   string
	}
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedding.provider, m.embedding.model, m.embedding.apiKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llm.provider, m.llm.model, m.llm.apiKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetReranker(baseURL, model string) error {
	m.reranker.baseURL, m.reranker.model = baseURL, model
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error        { return m.pingErr }
func (m *mockSettingsService) ValidateRerankerConfig() error   { return m.pingErr }

// testServices gives tests access to the injected mocks.
type testServices struct {
	ask       *mockAskService
	batch     *mockBatchService
	retrieval *mockRetrievalService
	intent    *mockIntentClassifier
	gating    *mockGatingService
	whitelist *mockWhitelistService
	process   *mockProcessService
	settings  *mockSettingsService
	config    *memory.ConfigStore
}

// setupTestServices injects fresh mocks and returns a cleanup func that
// clears them again.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ask: &mockAskService{resp: &domain.AskResponse{
			RequestID:  "req-1",
			Intent:     domain.IntentProcessRelated,
			Confidence: 0.9,
			UseRAG:     true,
		}},
		batch:     &mockBatchService{},
		retrieval: &mockRetrievalService{},
		intent:    &mockIntentClassifier{result: domain.NewClassification(domain.IntentProcessRelated, 0.9)},
		gating:    &mockGatingService{gc: &domain.GatingContext{Mode: domain.GatingModeNone}},
		whitelist: newMockWhitelistService(),
		process:   &mockProcessService{},
		settings:  newMockSettingsService(),
		config:    memory.NewConfigStore(),
	}

	SetServices(Services{
		Ask:       ts.ask,
		Batch:     ts.batch,
		Retrieval: ts.retrieval,
		Intent:    ts.intent,
		Gating:    ts.gating,
		Whitelist: ts.whitelist,
		Process:   ts.process,
		Settings:  ts.settings,
		Config:    ts.config,
	})
	return ts, func() { SetServices(Services{}) }
}

// executeCommand runs the root command with args and returns everything
// written to stdout and stderr. Flags are reset afterwards because the
// command tree is shared across tests.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
