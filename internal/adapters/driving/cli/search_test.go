package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Long(t *testing.T) {
	assert.Contains(t, searchCmd.Long, "hybrid search")
	assert.Contains(t, searchCmd.Long, "BM25")
	assert.Contains(t, searchCmd.Long, "reciprocal rank fusion")
}

func TestSearchCmd_HasTopKFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_PassesOptions(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "search", "-n", "3", "--process", "Dienstreise", "--tag", "a,b", "--rerank", "Reisekosten")
	require.NoError(t, err)

	assert.Equal(t, "Reisekosten", ts.retrieval.lastQuery)
	assert.Equal(t, domain.RetrievalOptions{
		TopK:    3,
		Filters: domain.Filters{ProcessName: "Dienstreise", Tags: []string{"a", "b"}},
		Rerank:  true,
	}, ts.retrieval.lastOpts)
}

func TestSearchCmd_NoResults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand(t, "search", "nichts")
	require.NoError(t, err)

	assert.Contains(t, out, "No passages found.")
}

func TestSearchCmd_PrintsRerankScore(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	score := 0.87
	ts.retrieval.results = []domain.Candidate{{
		ChunkID:     "c7",
		FusedScore:  0.03,
		RerankScore: &score,
		Source:      domain.ScoreSourceCrossEncoder,
		Chunk:       domain.Chunk{ID: "c7", Text: "Belege bis 6 Monate nach Reiseende einreichen."},
	}}

	out, err := executeCommand(t, "search", "Belege")
	require.NoError(t, err)

	assert.Contains(t, out, "[1] c7")
	assert.Contains(t, out, "0.8700 cross-encoder")
	assert.Contains(t, out, "Belege bis 6 Monate")
}

func TestSearchCmd_JSONEmptyIsArray(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand(t, "search", "--json", "nichts")
	require.NoError(t, err)

	var got []domain.Candidate
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchCmd_WrapsServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.err = domain.ErrRetrievalUnavailable

	_, err := executeCommand(t, "search", "x")

	require.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	assert.Contains(t, err.Error(), "search failed")
}
