package services

import (
	"context"
	"time"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// loadPrompt loads a prompt from the store, falling back to the built-in
// template if the store is missing or fails.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		if prompt, err := store.Load(name); err == nil && prompt != "" {
			return prompt
		}
	}
	return driven.DefaultPrompts[name]
}

// withTimeout bounds ctx by d. A non-positive d leaves ctx unchanged.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// nopMetrics discards every observation.
type nopMetrics struct{}

func (nopMetrics) RetrievalDuration(domain.RetrievalSource, time.Duration, error) {}
func (nopMetrics) IntentClassified(domain.Intent, string) {}
func (nopMetrics) RerankFallback() {}
func (nopMetrics) GatingDegraded(string) {}
func (nopMetrics) BatchQuery(string) {}

func metricsOrNop(m driven.MetricsRecorder) driven.MetricsRecorder {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
