package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyTopK           = "retrieval.top_k"
	keyRRFK           = "retrieval.rrf_k"
	keyRerank         = "retrieval.rerank"
	keyRerankTopN     = "retrieval.rerank_top_n"
	keyIntentTimeout  = "intent.timeout_ms"
	keyJudgeThreshold = "intent.judge_threshold"
	keyJudge          = "intent.judge"
	keyGatingDepth    = "gating.max_depth"
	keyBatchWorkers   = "batch.concurrency"
	keyBatchRate      = "batch.rate_per_second"
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyRerankerURL    = "reranker.base_url"
	keyRerankerModel  = "reranker.model"
	keyRedisURL       = "cache.redis_url"
	keyCacheTTL       = "cache.ttl"
	keyServerAddr     = "server.addr"
	keyDataDir        = "storage.data_dir"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to the defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Retrieval: domain.RetrievalSettings{
			TopK:       s.getInt(keyTopK, d.Retrieval.TopK),
			RRFK:       s.getInt(keyRRFK, d.Retrieval.RRFK),
			Rerank:     s.getBool(keyRerank, d.Retrieval.Rerank),
			RerankTopN: s.getInt(keyRerankTopN, d.Retrieval.RerankTopN),
		},
		Intent: domain.IntentSettings{
			Timeout:        s.getMillis(keyIntentTimeout, d.Intent.Timeout),
			JudgeThreshold: s.getFloat(keyJudgeThreshold, d.Intent.JudgeThreshold),
			Judge:          s.getBool(keyJudge, d.Intent.Judge),
		},
		Gating: domain.GatingSettings{
			MaxDepth: s.getInt(keyGatingDepth, d.Gating.MaxDepth),
		},
		Batch: domain.BatchSettings{
			Concurrency:   s.getInt(keyBatchWorkers, d.Batch.Concurrency),
			RatePerSecond: s.getFloat(keyBatchRate, d.Batch.RatePerSecond),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Reranker: domain.RerankerSettings{
			BaseURL: s.configStore.GetString(keyRerankerURL),
			Model:   s.getString(keyRerankerModel, d.Reranker.Model),
		},
		Cache: domain.CacheSettings{
			RedisURL: s.configStore.GetString(keyRedisURL),
			TTL:      s.getDuration(keyCacheTTL, d.Cache.TTL),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
		DataDir: s.configStore.GetString(keyDataDir),
	}

	if settings.Intent.JudgeThreshold < 0 || settings.Intent.JudgeThreshold > 1 {
		settings.Intent.JudgeThreshold = d.Intent.JudgeThreshold
	}
	if settings.Batch.RatePerSecond < 0 {
		settings.Batch.RatePerSecond = d.Batch.RatePerSecond
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyTopK, settings.Retrieval.TopK},
		{keyRRFK, settings.Retrieval.RRFK},
		{keyRerank, settings.Retrieval.Rerank},
		{keyRerankTopN, settings.Retrieval.RerankTopN},
		{keyIntentTimeout, int(settings.Intent.Timeout / time.Millisecond)},
		{keyJudgeThreshold, settings.Intent.JudgeThreshold},
		{keyJudge, settings.Intent.Judge},
		{keyGatingDepth, settings.Gating.MaxDepth},
		{keyBatchWorkers, settings.Batch.Concurrency},
		{keyBatchRate, settings.Batch.RatePerSecond},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyRerankerURL, settings.Reranker.BaseURL},
		{keyRerankerModel, settings.Reranker.Model},
		{keyRedisURL, settings.Cache.RedisURL},
		{keyCacheTTL, settings.Cache.TTL.String()},
		{keyServerAddr, settings.Server.Addr},
		{keyDataDir, settings.DataDir},
	}
	// API keys are only written when set so an empty form never wipes them.
	if settings.Embedding.APIKey != "" {
		values = append(values, struct {
			key string
			val any
		}{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, struct {
			key string
			val any
		}{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetReranker configures the cross-encoder endpoint. An empty model keeps the
// adapter default.
func (s *SettingsService) SetReranker(baseURL, model string) error {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return fmt.Errorf("%w: reranker base URL is required", domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Reranker.BaseURL = baseURL
	settings.Reranker.Model = strings.TrimSpace(model)
	return s.Save(settings)
}

// Validate checks the current settings for combinations that cannot work.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Retrieval.Rerank && !settings.Reranker.IsConfigured() {
		return fmt.Errorf("%w: reranking is enabled but reranker.base_url is not set", domain.ErrInvalidInput)
	}
	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not fully configured",
			domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %s is not fully configured", domain.ErrInvalidInput, settings.LLM.Provider)
	}
	if settings.Gating.MaxDepth < 1 {
		return fmt.Errorf("%w: gating.max_depth must be at least 1", domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// ValidateRerankerConfig validates the current reranker endpoint.
func (s *SettingsService) ValidateRerankerConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateReranker(&settings.Reranker)
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a local provider's URL and clears it for cloud providers.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	ms := s.configStore.GetInt(key)
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
