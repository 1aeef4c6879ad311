// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/procrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/procrag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/procrag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/procrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/procrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/procrag/internal/adapters/driven/rerank/tei"
	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// configHint is appended to construction and connectivity errors.
const configHint = "Run 'procrag config set' to fix"

// Services holds the AI adapters built from settings. Any field may be nil
// when the service is not configured or could not be reached.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
	Reranker  driven.Reranker
	Warnings  []string // Non-fatal issues that disabled a service.
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
	if s.Reranker != nil {
		s.Reranker.Close()
	}
}

// Init builds every configured AI service and pings it. A service that
// fails is left nil and reported in Warnings, so the pipeline degrades to
// rules-only classification, lexical retrieval and fusion order.
func Init(ctx context.Context, settings *domain.AppSettings) *Services {
	out := &Services{}
	if settings == nil {
		return out
	}

	if svc, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	} else if svc != nil {
		out.Embedding = svc
	}

	if svc, err := CreateAndValidateLLMService(ctx, &settings.LLM); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	} else if svc != nil {
		out.LLM = svc
	}

	if svc, err := CreateAndValidateReranker(ctx, &settings.Reranker); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	} else if svc != nil {
		out.Reranker = svc
	}

	return out
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil, nil when the provider is not configured.
func CreateAndValidateEmbeddingService(
	ctx context.Context, settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, configHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, configHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil, nil when the provider is not configured.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, configHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, configHint)
	}
	return svc, nil
}

// CreateAndValidateReranker creates the cross-encoder client and validates connectivity.
// Returns nil, nil when no endpoint is configured.
func CreateAndValidateReranker(ctx context.Context, settings *domain.RerankerSettings) (driven.Reranker, error) {
	svc, err := CreateReranker(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrRerankerUnavailable, err, configHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("service unreachable (%w). %s", err, configHint)
	}
	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(context.Background(), svc.Ping)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(context.Background(), svc.Ping)
}

// ValidateRerankerConfig validates a reranker configuration the way startup
// does, so a failure here means reranking would fall back to fusion order.
func ValidateRerankerConfig(settings *domain.RerankerSettings) error {
	svc, err := CreateAndValidateReranker(context.Background(), settings)
	if err != nil || svc == nil {
		return err
	}
	return svc.Close()
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)
	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateReranker creates the cross-encoder client.
// Returns nil if no endpoint is configured.
func CreateReranker(settings *domain.RerankerSettings) (driven.Reranker, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	return tei.NewReranker(tei.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding leaves Dimensions at the model default.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
