package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Reformulation limits.
const (
	reformulateTurns      = 2
	reformulateMsgChars   = 150
	reformulateShortWords = 5
	reformulateMinChars   = 3
	reformulatePrefix     = "eigenständige frage:"
)

var continuationWords = map[string]bool{"und": true, "oder": true, "aber": true, "also": true}

var contextWords = map[string]bool{
	"sie": true, "er": true, "es": true, "das": true, "diese": true, "dieser": true, "dieses": true,
	"welche": true, "welcher": true, "ihn": true, "ihm": true, "ihr": true, "dafür": true, "davon": true,
	"dabei": true, "dazu": true, "damit": true, "darauf": true, "darüber": true,
}

// ShouldReformulate reports whether a query likely depends on the
// conversation: it is short, starts with a conjunction or uses a pronoun.
// Without history there is nothing to resolve against.
func ShouldReformulate(query string, history []domain.ChatTurn) bool {
	if len(history) == 0 {
		return false
	}
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(words) <= reformulateShortWords {
		return true
	}
	if continuationWords[words[0]] {
		return true
	}
	for _, w := range words {
		if contextWords[w] {
			return true
		}
	}
	return false
}

// Reformulator rewrites follow-up questions into standalone queries.
type Reformulator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	timeout time.Duration
}

// NewReformulator creates a reformulator. With a nil llm every query is
// returned unchanged.
func NewReformulator(llm driven.LLMService, timeout time.Duration) *Reformulator {
	return &Reformulator{llm: llm, timeout: timeout}
}

// SetPromptStore sets the store for the reformulation prompt.
func (r *Reformulator) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// Reformulate returns a standalone version of query. The original query is
// returned with the error when the rewrite fails or is rejected.
func (r *Reformulator) Reformulate(ctx context.Context, query string, history []domain.ChatTurn) (string, error) {
	if len(history) == 0 {
		return query, nil
	}
	if r.llm == nil {
		return query, domain.ErrLLMUnavailable
	}

	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	prompt := fmt.Sprintf(loadPrompt(r.prompts, driven.PromptQueryReformulate), formatHistory(history), query)
	reply, err := r.llm.Generate(callCtx, prompt, driven.ClassificationOptions())
	if err != nil {
		logger.Warn("Query reformulation failed: %v", err)
		return query, fmt.Errorf("reformulate: %w", err)
	}

	out := cleanReformulation(reply)
	if utf8.RuneCountInString(out) <= reformulateMinChars || strings.EqualFold(out, query) {
		logger.Debug("Reformulation unchanged or invalid, using original")
		return query, nil
	}
	logger.Info("Query reformulated: %q -> %q", query, out)
	return out, nil
}

func formatHistory(history []domain.ChatTurn) string {
	if n := reformulateTurns * 2; len(history) > n {
		history = history[len(history)-n:]
	}
	lines := make([]string, len(history))
	for i, t := range history {
		speaker := "Assistent"
		if t.Role == domain.ChatRoleUser {
			speaker = "Nutzer"
		}
		lines[i] = speaker + ": " + truncateRunes(t.Content, reformulateMsgChars)
	}
	return strings.Join(lines, "\n")
}

func cleanReformulation(reply string) string {
	out := strings.TrimSpace(reply)
	out = strings.Trim(out, `"`)
	out = strings.Trim(out, "'")
	if strings.HasPrefix(strings.ToLower(out), reformulatePrefix) {
		out = string([]rune(out)[utf8.RuneCountInString(reformulatePrefix):])
	}
	return strings.TrimSpace(out)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
