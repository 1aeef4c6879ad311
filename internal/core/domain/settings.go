package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RerankerSettings holds cross-encoder service configuration.
type RerankerSettings struct {
	// BaseURL is the rerank endpoint host. Empty disables reranking.
	BaseURL string

	// Model is the cross-encoder model name.
	Model string
}

// IsConfigured returns true if a reranker endpoint is set.
func (r RerankerSettings) IsConfigured() bool {
	return r.BaseURL != ""
}

// RetrievalSettings tunes hybrid retrieval.
type RetrievalSettings struct {
	// TopK is the default number of results.
	TopK int

	// RRFK is the reciprocal rank fusion constant.
	RRFK int

	// Rerank enables the cross-encoder by default.
	Rerank bool

	// RerankTopN is how many fused candidates the cross-encoder scores.
	RerankTopN int
}

// IntentSettings tunes the query classifier.
type IntentSettings struct {
	// Timeout bounds a single model or judge call.
	Timeout time.Duration

	// JudgeThreshold is the confidence below which non-process results are verified.
	JudgeThreshold float64

	// Judge enables the verification gate.
	Judge bool
}

// GatingSettings tunes the context builder.
type GatingSettings struct {
	// MaxDepth is the hop radius of the local view.
	MaxDepth int
}

// BatchSettings bounds batch query replay.
type BatchSettings struct {
	// Concurrency is the number of queries in flight.
	Concurrency int

	// RatePerSecond limits query admission. Zero means unlimited.
	RatePerSecond float64
}

// CacheSettings configures the optional classification cache.
type CacheSettings struct {
	// RedisURL is the redis connection URL. Empty disables caching.
	RedisURL string

	// TTL is how long a cached classification lives.
	TTL time.Duration
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Retrieval RetrievalSettings
	Intent    IntentSettings
	Gating    GatingSettings
	Batch     BatchSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Reranker  RerankerSettings
	Cache     CacheSettings
	Server    ServerSettings

	// DataDir is where the sqlite database lives. Empty uses the default.
	DataDir string
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM, Reranker) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: RetrievalSettings{
			TopK:       5,
			RRFK:       60,
			Rerank:     false,
			RerankTopN: 20,
		},
		Intent: IntentSettings{
			Timeout:        5 * time.Second,
			JudgeThreshold: 0.90,
			Judge:          true,
		},
		Gating: GatingSettings{
			MaxDepth: DefaultGatingDepth,
		},
		Batch: BatchSettings{
			Concurrency:   4,
			RatePerSecond: 0,
		},
		Cache: CacheSettings{
			TTL: time.Hour,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "bge-m3",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"bge-m3":            1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
