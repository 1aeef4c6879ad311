package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

func TestNewConfigValidator(t *testing.T) {
	validator := NewConfigValidator()

	require.NotNil(t, validator)
}

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = (*ConfigValidator)(nil)
}

func TestConfigValidator_ValidateEmbedding_NilConfig(t *testing.T) {
	validator := NewConfigValidator()

	err := validator.ValidateEmbedding(nil)

	// nil config returns nil (graceful handling - nothing to validate)
	assert.NoError(t, err)
}

func TestConfigValidator_ValidateEmbedding_UnconfiguredProvider(t *testing.T) {
	validator := NewConfigValidator()
	config := &domain.EmbeddingSettings{
		Provider: "",
		Model:    "test-model",
	}

	err := validator.ValidateEmbedding(config)

	// Unconfigured provider returns nil (nothing to validate)
	assert.NoError(t, err)
}

func TestConfigValidator_ValidateLLM_NilConfig(t *testing.T) {
	validator := NewConfigValidator()

	err := validator.ValidateLLM(nil)

	// nil config returns nil (graceful handling - nothing to validate)
	assert.NoError(t, err)
}

func TestConfigValidator_ValidateLLM_UnconfiguredProvider(t *testing.T) {
	validator := NewConfigValidator()
	config := &domain.LLMSettings{
		Provider: "",
		Model:    "test-model",
	}

	err := validator.ValidateLLM(config)

	// Unconfigured provider returns nil (nothing to validate)
	assert.NoError(t, err)
}

func TestConfigValidator_ValidateReranker(t *testing.T) {
	validator := NewConfigValidator()

	t.Run("not configured", func(t *testing.T) {
		assert.NoError(t, validator.ValidateReranker(nil))
		assert.NoError(t, validator.ValidateReranker(&domain.RerankerSettings{Model: "bge-reranker"}))
	})

	t.Run("healthy endpoint", func(t *testing.T) {
		srv := newOllamaServer(t, true)

		assert.NoError(t, validator.ValidateReranker(&domain.RerankerSettings{BaseURL: srv.URL}))
	})

	t.Run("unhealthy endpoint", func(t *testing.T) {
		srv := newOllamaServer(t, false)

		err := validator.ValidateReranker(&domain.RerankerSettings{BaseURL: srv.URL})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRerankerUnavailable)
		assert.Contains(t, err.Error(), configHint)
	})
}
