package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// --- Mock implementations ---

var errMock = errors.New("mock failure")

// mockLLM implements driven.LLMService for testing. Replies are chosen by
// the first key contained in the prompt; reply is used otherwise.
type mockLLM struct {
	mu      sync.Mutex
	reply   string
	replies map[string]string
	err     error
	prompts []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	for key, r := range m.replies {
		if strings.Contains(prompt, key) {
			return r, nil
		}
	}
	return m.reply, nil
}

func (m *mockLLM) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return m.reply, m.err
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// mockCache implements driven.ClassificationCache for testing.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]domain.Classification
	getErr  error
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domain.Classification)}
}

func (m *mockCache) Get(_ context.Context, key string) (domain.Classification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Classification{}, false, m.getErr
	}
	c, ok := m.entries[key]
	return c, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, c domain.Classification, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = c
	m.sets++
	return nil
}

func (m *mockCache) Close() error { return nil }

// mockMetrics implements driven.MetricsRecorder and records every call.
type mockMetrics struct {
	mu        sync.Mutex
	stages    []string
	fallbacks int
	degraded  []string
	outcomes  map[string]int
	durations map[domain.RetrievalSource]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		outcomes:  make(map[string]int),
		durations: make(map[domain.RetrievalSource]int),
	}
}

func (m *mockMetrics) RetrievalDuration(source domain.RetrievalSource, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[source]++
}

func (m *mockMetrics) IntentClassified(_ domain.Intent, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *mockMetrics) RerankFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *mockMetrics) GatingDegraded(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = append(m.degraded, step)
}

func (m *mockMetrics) BatchQuery(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

// mockLexical implements driven.LexicalSearch for testing.
type mockLexical struct {
	ids     []string
	err     error
	filters domain.Filters
	limit   int
}

func (m *mockLexical) Search(_ context.Context, _ string, limit int, filters domain.Filters) ([]driven.SearchHit, error) {
	m.filters = filters
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	hits := make([]driven.SearchHit, 0, len(m.ids))
	for i, id := range m.ids {
		if i >= limit {
			break
		}
		hits = append(hits, driven.SearchHit{ChunkID: id, Score: float64(len(m.ids) - i)})
	}
	return hits, nil
}

// mockVector implements driven.VectorSearch for testing.
type mockVector struct {
	ids []string
	err error
}

func (m *mockVector) Search(_ context.Context, _ []float32, limit int, _ domain.Filters) ([]driven.VectorHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	hits := make([]driven.VectorHit, 0, len(m.ids))
	for i, id := range m.ids {
		if i >= limit {
			break
		}
		hits = append(hits, driven.VectorHit{ChunkID: id, Similarity: 1 - float64(i)/100})
	}
	return hits, nil
}

// mockEmbedding implements driven.EmbeddingService for testing.
type mockEmbedding struct {
	vector   []float32
	err      error
	batchErr error
	batches  int
}

func (m *mockEmbedding) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *mockEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int { return len(m.vector) }

func (m *mockEmbedding) ModelName() string { return "mock-embed" }

func (m *mockEmbedding) Ping(_ context.Context) error { return nil }

func (m *mockEmbedding) Close() error { return nil }

// mockChunks implements driven.ChunkStore and driven.ChunkWriter for testing.
type mockChunks struct {
	chunks   map[string]domain.Chunk
	batchErr error
	failing  map[string]bool
	saved    []domain.Chunk
}

func newMockChunks(ids ...string) *mockChunks {
	m := &mockChunks{chunks: make(map[string]domain.Chunk), failing: make(map[string]bool)}
	for _, id := range ids {
		m.chunks[id] = domain.Chunk{ID: id, Text: "text of " + id}
	}
	return m
}

func (m *mockChunks) GetChunks(_ context.Context, ids []string) ([]domain.Chunk, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	var out []domain.Chunk
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok && !m.failing[id] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockChunks) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	if m.failing[id] {
		return nil, errMock
	}
	c, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *mockChunks) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	m.saved = append(m.saved, chunks...)
	return nil
}

// mockReranker implements driven.Reranker for testing.
type mockReranker struct {
	scores func(docs []string) []float64
	err    error
	docs   []string
}

func (m *mockReranker) Score(_ context.Context, _ string, docs []string) ([]float64, error) {
	m.docs = docs
	if m.err != nil {
		return nil, m.err
	}
	return m.scores(docs), nil
}

func (m *mockReranker) Ping(_ context.Context) error { return nil }

func (m *mockReranker) Close() error { return nil }

// countingGraphs wraps a graph store and counts path queries.
type countingGraphs struct {
	driven.ProcessGraphStore
	mu    sync.Mutex
	paths int
	fail  map[string]bool
}

func (c *countingGraphs) Paths(ctx context.Context, processID, fromNodeID string, maxHops int) ([]domain.Reach, error) {
	c.mu.Lock()
	c.paths++
	c.mu.Unlock()
	return c.ProcessGraphStore.Paths(ctx, processID, fromNodeID, maxHops)
}

func (c *countingGraphs) LocalView(ctx context.Context, processID, nodeID string, maxDepth int) (*domain.LocalView, error) {
	if c.fail["local_view"] {
		return nil, errMock
	}
	return c.ProcessGraphStore.LocalView(ctx, processID, nodeID, maxDepth)
}

func (c *countingGraphs) Overview(ctx context.Context, processID string) (*domain.ProcessOverview, error) {
	if c.fail["overview"] {
		return nil, errMock
	}
	return c.ProcessGraphStore.Overview(ctx, processID)
}

func (c *countingGraphs) Definitions(ctx context.Context) ([]domain.Definition, error) {
	if c.fail["definitions"] {
		return nil, errMock
	}
	return c.ProcessGraphStore.Definitions(ctx)
}

// Ensure mocks implement interfaces
var (
	_ driven.LLMService          = (*mockLLM)(nil)
	_ driven.PromptStore         = (*mockPromptStore)(nil)
	_ driven.ClassificationCache = (*mockCache)(nil)
	_ driven.MetricsRecorder     = (*mockMetrics)(nil)
	_ driven.LexicalSearch       = (*mockLexical)(nil)
	_ driven.VectorSearch        = (*mockVector)(nil)
	_ driven.EmbeddingService    = (*mockEmbedding)(nil)
	_ driven.ChunkStore          = (*mockChunks)(nil)
	_ driven.ChunkWriter         = (*mockChunks)(nil)
	_ driven.Reranker            = (*mockReranker)(nil)
	_ driven.ProcessGraphStore   = (*countingGraphs)(nil)
)
