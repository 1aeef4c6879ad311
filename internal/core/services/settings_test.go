package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/procrag/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Intent, settings.Intent)
	assert.Equal(t, defaults.Gating, settings.Gating)
	assert.Equal(t, defaults.Batch, settings.Batch)
	assert.Equal(t, defaults.Cache.TTL, settings.Cache.TTL)
	assert.Equal(t, ":8080", settings.Server.Addr)
	assert.False(t, settings.Reranker.IsConfigured())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("retrieval.top_k", 10)
	_ = store.Set("retrieval.rrf_k", 30)
	_ = store.Set("retrieval.rerank", true)
	_ = store.Set("intent.timeout_ms", 1500)
	_ = store.Set("intent.judge_threshold", 0.75)
	_ = store.Set("intent.judge", false)
	_ = store.Set("gating.max_depth", 3)
	_ = store.Set("batch.rate_per_second", 2)
	_ = store.Set("cache.ttl", "10m")
	_ = store.Set("reranker.base_url", "http://localhost:8081")

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 10, settings.Retrieval.TopK)
	assert.Equal(t, 30, settings.Retrieval.RRFK)
	assert.True(t, settings.Retrieval.Rerank)
	assert.Equal(t, 1500*time.Millisecond, settings.Intent.Timeout)
	assert.InDelta(t, 0.75, settings.Intent.JudgeThreshold, 1e-9)
	assert.False(t, settings.Intent.Judge)
	assert.Equal(t, 3, settings.Gating.MaxDepth)
	assert.InDelta(t, 2.0, settings.Batch.RatePerSecond, 1e-9)
	assert.Equal(t, 10*time.Minute, settings.Cache.TTL)
	assert.Equal(t, "http://localhost:8081", settings.Reranker.BaseURL)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("retrieval.top_k", -3)
	_ = store.Set("intent.judge_threshold", 1.7)
	_ = store.Set("cache.ttl", "soon")
	_ = store.Set("embedding.provider", "invalid_provider")

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Retrieval.TopK, settings.Retrieval.TopK)
	assert.InDelta(t, defaults.Intent.JudgeThreshold, settings.Intent.JudgeThreshold, 1e-9)
	assert.Equal(t, defaults.Cache.TTL, settings.Cache.TTL)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings := domain.DefaultAppSettings()
	settings.Retrieval.TopK = 8
	settings.Retrieval.Rerank = true
	settings.Intent.Timeout = 2 * time.Second
	settings.Intent.JudgeThreshold = 0.8
	settings.Batch.Concurrency = 2
	settings.Reranker.BaseURL = "http://rerank:8080"
	settings.Cache.TTL = 30 * time.Minute
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderAnthropic, Model: "claude-3-5-haiku-latest", APIKey: "sk-ant-test"}

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.Retrieval, got.Retrieval)
	assert.Equal(t, settings.Intent, got.Intent)
	assert.Equal(t, settings.Batch, got.Batch)
	assert.Equal(t, settings.Reranker, got.Reranker)
	assert.Equal(t, settings.Cache, got.Cache)
	assert.Equal(t, settings.LLM, got.LLM)
}

func TestSettingsService_Save_KeepsStoredAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.api_key", "sk-existing")
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "sk-existing", store.GetString("llm.api_key"))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantModel string
		wantURL   string
	}{
		{"ollama explicit model", domain.AIProviderOllama, "bge-m3", "", "bge-m3", "http://localhost:11434"},
		{"openai default model", domain.AIProviderOpenAI, "", "sk-test", "text-embedding-3-small", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)

			require.NoError(t, service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey))

			settings, _ := service.Get()
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	err := service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "sk-ant")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support embeddings")

	err = service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key required")

	err = service.SetEmbeddingProvider(domain.AIProvider("bogus"), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid embedding provider")
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.base_url", "http://gpu-box:11434")
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))

	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434", settings.LLM.BaseURL)

	err := service.SetLLMProvider(domain.AIProviderOpenAI, "", "")
	assert.Error(t, err)
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
	}{
		{"defaults", nil, false},
		{"rerank without endpoint", map[string]any{"retrieval.rerank": true}, true},
		{"rerank with endpoint", map[string]any{"retrieval.rerank": true, "reranker.base_url": "http://r"}, false},
		{"openai llm without key", map[string]any{"llm.provider": "openai"}, true},
		{"ollama embedding", map[string]any{"embedding.provider": "ollama"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			for k, v := range tt.values {
				_ = store.Set(k, v)
			}
			err := NewSettingsService(store, nil).Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// mockAIValidator records what was validated.
type mockAIValidator struct {
	embedding *domain.EmbeddingSettings
	llm       *domain.LLMSettings
	reranker  *domain.RerankerSettings
	err       error
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.err
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.err
}

func (m *mockAIValidator) ValidateReranker(cfg *domain.RerankerSettings) error {
	m.reranker = cfg
	return m.err
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.provider", "ollama")
	v := &mockAIValidator{err: errors.New("connection refused")}
	service := NewSettingsService(store, v)

	err := service.ValidateLLMConfig()
	require.Error(t, err)
	require.NotNil(t, v.llm)
	assert.Equal(t, domain.AIProviderOllama, v.llm.Provider)

	assert.Error(t, service.ValidateEmbeddingConfig())
	assert.NotNil(t, v.embedding)
}

func TestSettingsService_SetReranker(t *testing.T) {
	store := memory.NewConfigStore()
	v := &mockAIValidator{}
	service := NewSettingsService(store, v)

	require.NoError(t, service.SetReranker(" http://tei:8080 ", "bge-reranker-v2-m3"))
	require.NoError(t, service.ValidateRerankerConfig())

	require.NotNil(t, v.reranker)
	assert.Equal(t, "http://tei:8080", v.reranker.BaseURL)
	assert.Equal(t, "bge-reranker-v2-m3", v.reranker.Model)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "http://tei:8080", settings.Reranker.BaseURL)
}

func TestSettingsService_SetReranker_RequiresURL(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	err := service.SetReranker("  ", "m")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_ValidateProviders_NoValidator(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.NoError(t, service.ValidateLLMConfig())
	assert.NoError(t, service.ValidateEmbeddingConfig())
	assert.NoError(t, service.ValidateRerankerConfig())
}
