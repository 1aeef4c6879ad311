package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

func newTestPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+promptExt), []byte(content), 0600))
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".procrag", "prompts"), store.Dir())
}

func TestPromptStore_SeedsDefaultFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)

	prompt, err := store.Load(driven.PromptIntentClassify)
	require.NoError(t, err)
	assert.Contains(t, prompt, "PROCESS_RELATED")

	for _, f := range []string{"intent_classify.txt", "intent_judge.txt", "query_reformulate.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected %s", f)
	}
}

func TestPromptStore_CustomFileWins(t *testing.T) {
	store, dir := newTestPromptStore(t)
	writePrompt(t, dir, driven.PromptIntentJudge, "\n  Urteil: %s %s %.2f \n")

	prompt, err := store.Load(driven.PromptIntentJudge)

	require.NoError(t, err)
	assert.Equal(t, "Urteil: %s %s %.2f", prompt)
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)
	writePrompt(t, dir, driven.PromptQueryReformulate, "mine")

	_, _ = store.Load(driven.PromptIntentClassify)

	data, err := os.ReadFile(filepath.Join(dir, driven.PromptQueryReformulate+promptExt))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestPromptStore_FallsBackToDefault(t *testing.T) {
	store, dir := newTestPromptStore(t)
	_, _ = store.Load(driven.PromptIntentClassify)

	t.Run("deleted file", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, driven.PromptIntentClassify+promptExt)))
		store.Reload()

		prompt, err := store.Load(driven.PromptIntentClassify)
		require.NoError(t, err)
		assert.Equal(t, driven.DefaultPrompts[driven.PromptIntentClassify], prompt)
	})

	t.Run("blank file", func(t *testing.T) {
		writePrompt(t, dir, driven.PromptIntentJudge, "   \n")
		store.Reload()

		prompt, err := store.Load(driven.PromptIntentJudge)
		require.NoError(t, err)
		assert.Equal(t, driven.DefaultPrompts[driven.PromptIntentJudge], prompt)
	})
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, _ := newTestPromptStore(t)

	_, err := store.Load("nonexistent_prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_CachesUntilReload(t *testing.T) {
	store, dir := newTestPromptStore(t)
	first, err := store.Load(driven.PromptIntentClassify)
	require.NoError(t, err)

	writePrompt(t, dir, driven.PromptIntentClassify, "neu: %s")
	cached, err := store.Load(driven.PromptIntentClassify)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptIntentClassify)
	require.NoError(t, err)
	assert.Equal(t, "neu: %s", fresh)
}

func TestPromptStore_InitFailureServesDefaults(t *testing.T) {
	store, err := NewPromptStore("/dev/null/prompts")
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptQueryReformulate)

	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts[driven.PromptQueryReformulate], prompt)
	assert.Error(t, store.Watch(context.Background()))
}

func TestPromptStore_WatchReloadsOnChange(t *testing.T) {
	store, dir := newTestPromptStore(t)
	store.debounce = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.Load(driven.PromptIntentClassify)
	require.NoError(t, err)
	require.NoError(t, store.Watch(ctx))

	writePrompt(t, dir, driven.PromptIntentClassify, "geändert: %s")

	assert.Eventually(t, func() bool {
		p, err := store.Load(driven.PromptIntentClassify)
		return err == nil && p == "geändert: %s"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestPromptStore_ConcurrentAccess(t *testing.T) {
	store, _ := newTestPromptStore(t)

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = store.Load(driven.PromptIntentJudge)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
