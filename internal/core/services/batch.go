package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Ensure BatchService implements the interface.
var _ driving.BatchService = (*BatchService)(nil)

// Batch outcomes reported to metrics.
const (
	batchOK       = "ok"
	batchFallback = "fallback"
	batchError    = "error"
)

// BatchService replays many requests with a bounded number in flight.
type BatchService struct {
	ask         driving.AskService
	concurrency int
	limiter     *rate.Limiter
	metrics     driven.MetricsRecorder
}

// NewBatchService creates a batch runner. A zero rate disables rate limiting.
func NewBatchService(ask driving.AskService, settings domain.BatchSettings) *BatchService {
	s := &BatchService{
		ask:         ask,
		concurrency: settings.Concurrency,
		metrics:     nopMetrics{},
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	if settings.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(settings.RatePerSecond), 1)
	}
	return s
}

// SetMetrics sets the metrics recorder.
func (s *BatchService) SetMetrics(m driven.MetricsRecorder) {
	s.metrics = metricsOrNop(m)
}

// Run answers every request. Results are indexed like reqs; onResult, if
// set, is called once per request in completion order and never
// concurrently. A failing request does not stop the batch; only context
// cancellation does.
func (s *BatchService) Run(
	ctx context.Context, reqs []domain.AskRequest, onResult func(driving.BatchResult),
) ([]driving.BatchResult, error) {
	results := make([]driving.BatchResult, len(reqs))
	logger.Info("Batch: %d requests, concurrency %d", len(reqs), s.concurrency)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	var stopErr error
	for i := range reqs {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				stopErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}

		g.Go(func() error {
			resp, err := s.ask.Ask(ctx, reqs[i])
			res := driving.BatchResult{Index: i, Response: resp, Err: err}
			s.metrics.BatchQuery(outcome(res))
			if err != nil {
				logger.Warn("Batch: request %d failed: %v", i, err)
			}

			mu.Lock()
			results[i] = res
			if onResult != nil {
				onResult(res)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, stopErr
}

func outcome(r driving.BatchResult) string {
	switch {
	case r.Err != nil:
		return batchError
	case r.Response != nil && !r.Response.UseRAG:
		return batchFallback
	default:
		return batchOK
	}
}
