package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
)

// stubAsk implements driving.AskService. Queries "fail" error and "hallo"
// falls back; everything else is answered after delay.
type stubAsk struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *stubAsk) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch req.Query {
	case "fail":
		return nil, domain.ErrRetrievalUnavailable
	case "hallo":
		return &domain.AskResponse{EffectiveQuery: req.Query, Intent: domain.IntentGreeting}, nil
	}
	return &domain.AskResponse{EffectiveQuery: req.Query, Intent: domain.IntentProcessRelated, UseRAG: true}, nil
}

var _ driving.AskService = (*stubAsk)(nil)

func queries(qs ...string) []domain.AskRequest {
	out := make([]domain.AskRequest, len(qs))
	for i, q := range qs {
		out[i] = domain.AskRequest{Query: q}
	}
	return out
}

func TestBatchService_Run(t *testing.T) {
	metrics := newMockMetrics()
	svc := NewBatchService(&stubAsk{delay: time.Millisecond}, domain.BatchSettings{Concurrency: 3})
	svc.SetMetrics(metrics)

	var seen []int
	results, err := svc.Run(context.Background(), queries("a", "fail", "hallo", "b"), func(r driving.BatchResult) {
		seen = append(seen, r.Index)
	})

	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, "a", results[0].Response.EffectiveQuery)
	assert.Nil(t, results[1].Response)
	assert.ErrorIs(t, results[1].Err, domain.ErrRetrievalUnavailable)
	assert.False(t, results[2].Response.UseRAG)
	assert.Equal(t, "b", results[3].Response.EffectiveQuery)

	assert.ElementsMatch(t, []int{0, 1, 2, 3}, seen)
	assert.Equal(t, map[string]int{"ok": 2, "error": 1, "fallback": 1}, metrics.outcomes)
}

func TestBatchService_Run_BoundsConcurrency(t *testing.T) {
	ask := &stubAsk{delay: 5 * time.Millisecond}
	svc := NewBatchService(ask, domain.BatchSettings{Concurrency: 2})

	results, err := svc.Run(context.Background(), queries("a", "b", "c", "d", "e", "f"), nil)

	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, ask.peak.Load(), int32(2))
}

func TestBatchService_Run_DefaultConcurrency(t *testing.T) {
	ask := &stubAsk{}
	svc := NewBatchService(ask, domain.BatchSettings{})

	_, err := svc.Run(context.Background(), queries("a", "b", "c"), nil)

	require.NoError(t, err)
	assert.Equal(t, int32(1), ask.peak.Load())
}

func TestBatchService_Run_RateLimited(t *testing.T) {
	svc := NewBatchService(&stubAsk{}, domain.BatchSettings{Concurrency: 4, RatePerSecond: 50})

	start := time.Now()
	results, err := svc.Run(context.Background(), queries("a", "b", "c"), nil)

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestBatchService_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewBatchService(&stubAsk{}, domain.BatchSettings{Concurrency: 2})

	results, err := svc.Run(ctx, queries("a", "b"), nil)

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	assert.Nil(t, results[0].Response)
	assert.Nil(t, results[1].Response)
}

func TestBatchService_Run_Empty(t *testing.T) {
	svc := NewBatchService(&stubAsk{}, domain.BatchSettings{Concurrency: 2})

	results, err := svc.Run(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}
