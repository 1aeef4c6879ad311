package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

func TestConfigPath(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand(t, "config", "path")
	require.NoError(t, err)

	assert.Contains(t, out, ":memory:")
}

func TestConfigSet_InfersTypes(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	for _, args := range [][]string{
		{"retrieval.top_k", "8"},
		{"intent.judge", "false"},
		{"intent.judge_threshold", "0.4"},
		{"llm.api_key", "123456789"},
		{"cache.ttl", "30m"},
	} {
		out, err := executeCommand(t, "config", "set", args[0], args[1])
		require.NoError(t, err)
		assert.Contains(t, out, args[0]+" updated")
	}

	v, _ := ts.config.Get("retrieval.top_k")
	assert.Equal(t, 8, v)
	v, _ = ts.config.Get("intent.judge")
	assert.Equal(t, false, v)
	v, _ = ts.config.Get("intent.judge_threshold")
	assert.InDelta(t, 0.4, v, 1e-9)
	v, _ = ts.config.Get("llm.api_key")
	assert.Equal(t, "123456789", v)
	assert.Equal(t, "30m", ts.config.GetString("cache.ttl"))
}

func TestConfigGet(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, ts.config.Set("llm.model", "llama3.2"))
	require.NoError(t, ts.config.Set("llm.api_key", "sk-abcdefghijkl"))

	out, err := executeCommand(t, "config", "get", "llm.model")
	require.NoError(t, err)
	assert.Contains(t, out, "llama3.2")

	out, err = executeCommand(t, "config", "get", "llm.api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "sk-a...ijkl")
	assert.NotContains(t, out, "sk-abcdefghijkl")

	_, err = executeCommand(t, "config", "get", "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigShow(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-1234567890"}
	ts.settings.settings.Cache.RedisURL = "redis://localhost:6379/0"

	out, err := executeCommand(t, "config")
	require.NoError(t, err)

	for _, want := range []string{"[Retrieval]", "[Intent]", "[Gating]", "[Batch]", "[Embedding]", "[LLM]", "[Reranker]", "[Cache]", "[Server]"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "OpenAI (cloud)")
	assert.Contains(t, out, "sk-1...7890")
	assert.Contains(t, out, "redis://localhost:6379/0")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigShow_ValidationWarning(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.validateErr = errors.New("llm not configured")

	out, err := executeCommand(t, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "Warning: llm not configured")
}

func TestConfigLLM_WithFlags(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand(t, "config", "llm", "--provider", "OpenAI", "--api-key", "sk-test")
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, ts.settings.llm.provider)
	assert.Equal(t, "gpt-4o-mini", ts.settings.llm.model)
	assert.Equal(t, "sk-test", ts.settings.llm.apiKey)
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Contains(t, out, "LLM provider configured: OpenAI (cloud) (gpt-4o-mini)")
}

func TestConfigLLM_ReadsKeyFromStdinWhenMissing(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "config", "llm", "--provider", "anthropic")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestConfigEmbedding_LocalNeedsNoKey(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "config", "embedding", "--provider", "ollama", "--model", "nomic-embed-text", "--skip-validate")
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOllama, ts.settings.embedding.provider)
	assert.Equal(t, "nomic-embed-text", ts.settings.embedding.model)
	assert.Empty(t, ts.settings.embedding.apiKey)
}

func TestConfigEmbedding_RejectsUnsupportedProvider(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "config", "embedding", "--provider", "anthropic", "--api-key", "k")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigEmbedding_ValidationFailure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.pingErr = domain.ErrEmbeddingUnavailable

	out, err := executeCommand(t, "config", "embedding", "--provider", "ollama")

	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, out, "FAILED")
}

func TestConfigReranker(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand(t, "config", "reranker", "--url", "http://tei:8080", "--model", "bge-reranker-v2-m3")
	require.NoError(t, err)

	assert.Equal(t, "http://tei:8080", ts.settings.reranker.baseURL)
	assert.Equal(t, "bge-reranker-v2-m3", ts.settings.reranker.model)
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Contains(t, out, "Reranker configured: http://tei:8080")
}

func TestConfigReranker_ValidationFailure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.pingErr = domain.ErrRerankerUnavailable

	out, err := executeCommand(t, "config", "reranker", "--url", "http://tei:8080")

	require.ErrorIs(t, err, domain.ErrRerankerUnavailable)
	assert.Contains(t, out, "FAILED")
}

func TestConfigProvider_RequiresProviderFlag(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "config", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "provider" not set`)
}

func TestParseConfigValue(t *testing.T) {
	assert.Equal(t, 3, parseConfigValue("gating.max_depth", "3"))
	assert.Equal(t, true, parseConfigValue("retrieval.rerank", "true"))
	assert.Equal(t, 1, parseConfigValue("retrieval.rerank", "1"), "only literal true/false are booleans")
	assert.Equal(t, 1.5, parseConfigValue("batch.rate_per_second", "1.5"))
	assert.Equal(t, "8080", parseConfigValue("server.addr", "8080"))
	assert.Equal(t, "http://x", parseConfigValue("reranker.base_url", "http://x"))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...mnop", maskAPIKey("abcdefghijklmnop"))
}
