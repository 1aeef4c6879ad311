package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Ensure IntentService implements the interface.
var _ driving.IntentClassifier = (*IntentService)(nil)

// Contextual boost thresholds.
const (
	boostMaxConfidence   = 0.85
	boostMinAnswerLength = 200
)

// IntentService routes queries by intent. Lexical rules decide most queries;
// the rest go to a model. Every failure resolves to PROCESS_RELATED so a real
// question is never blocked.
type IntentService struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	cache    driven.ClassificationCache
	cacheTTL time.Duration
	metrics  driven.MetricsRecorder
	settings domain.IntentSettings
}

// NewIntentService creates a classifier. llm may be nil, in which case
// queries the rules cannot decide default to PROCESS_RELATED.
func NewIntentService(llm driven.LLMService, settings domain.IntentSettings) *IntentService {
	return &IntentService{
		llm:      llm,
		settings: settings,
		metrics:  nopMetrics{},
	}
}

// SetPromptStore sets the store for the classify and judge prompts.
func (s *IntentService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetCache enables caching of model classifications.
func (s *IntentService) SetCache(cache driven.ClassificationCache, ttl time.Duration) {
	s.cache = cache
	s.cacheTTL = ttl
}

// SetMetrics sets the metrics recorder.
func (s *IntentService) SetMetrics(m driven.MetricsRecorder) {
	s.metrics = metricsOrNop(m)
}

// Classify returns the intent and confidence of a query.
func (s *IntentService) Classify(ctx context.Context, query string, history []domain.ChatTurn) domain.Classification {
	c, stage := s.classifyContextual(ctx, query, history)

	if s.needsJudge(c) {
		c = s.judge(ctx, query, c)
		stage = stageJudge
	}

	logger.Debug("Intent: %s (%.2f) via %s", c.Intent, c.Confidence, stage)
	s.metrics.IntentClassified(c.Intent, stage)
	return c
}

// classifyContextual wraps the base classifier with follow-up detection and
// the contextual boost.
func (s *IntentService) classifyContextual(
	ctx context.Context, query string, history []domain.ChatTurn,
) (domain.Classification, string) {
	if IsFollowUp(query, history) {
		return domain.NewClassification(domain.IntentProcessRelated, confidenceFollowUp), stageFollowUp
	}

	c, stage := s.classifyBase(ctx, query)

	if len(history) >= 2 &&
		c.Intent != domain.IntentProcessRelated &&
		c.Confidence < boostMaxConfidence &&
		utf8.RuneCountInString(domain.LastAssistant(history)) > boostMinAnswerLength {
		logger.Debug("Intent boost: %s (%.2f) follows a long answer", c.Intent, c.Confidence)
		return domain.NewClassification(domain.IntentProcessRelated, confidenceBoost), stageBoost
	}
	return c, stage
}

func (s *IntentService) classifyBase(ctx context.Context, query string) (domain.Classification, string) {
	if c, stage := ClassifyRules(query); stage != "" {
		return c, stage
	}
	return s.classifyWithModel(ctx, query)
}

// classifyWithModel asks the model for a category name.
func (s *IntentService) classifyWithModel(ctx context.Context, query string) (domain.Classification, string) {
	fallback := domain.NewClassification(domain.IntentProcessRelated, confidenceModelFailed)
	if s.llm == nil {
		return fallback, stageDefault
	}

	key := cacheKey(query)
	if s.cache != nil {
		if c, ok, err := s.cache.Get(ctx, key); err != nil {
			logger.Warn("Intent cache read failed: %v", err)
		} else if ok {
			return c, stageCache
		}
	}

	callCtx, cancel := withTimeout(ctx, s.settings.Timeout)
	defer cancel()

	prompt := fmt.Sprintf(loadPrompt(s.prompts, driven.PromptIntentClassify), query)
	reply, err := s.llm.Generate(callCtx, prompt, driven.ClassificationOptions())
	if err != nil {
		logger.Warn("Intent model call failed: %v", err)
		return fallback, stageDefault
	}

	intent, ok := parseModelIntent(reply)
	if !ok {
		logger.Warn("Intent model reply not understood: %q", reply)
		return fallback, stageDefault
	}

	c := domain.NewClassification(intent, confidenceModel)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, c, s.cacheTTL); err != nil {
			logger.Warn("Intent cache write failed: %v", err)
		}
	}
	return c, stageModel
}

func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
