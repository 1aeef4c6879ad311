package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
	"github.com/custodia-labs/procrag/internal/logger"
)

// Judge outcomes.
const (
	judgeConfirmBoost   = 0.1
	judgeConfirmCeiling = 0.95
	judgeOverride       = 0.8
	judgeUnparsable     = 0.6
	judgeFailed         = 0.5
)

// needsJudge reports whether a result goes through the verification gate.
func (s *IntentService) needsJudge(c domain.Classification) bool {
	return s.settings.Judge &&
		c.Intent != domain.IntentProcessRelated &&
		c.Confidence < s.settings.JudgeThreshold
}

// judge asks the model to confirm or override a non-process result.
// Without a model the result resolves to PROCESS_RELATED like a failed call.
func (s *IntentService) judge(ctx context.Context, query string, c domain.Classification) domain.Classification {
	if s.llm == nil {
		logger.Debug("Intent judge unavailable, treating %s as process related", c.Intent)
		return domain.NewClassification(domain.IntentProcessRelated, judgeFailed)
	}
	callCtx, cancel := withTimeout(ctx, s.settings.Timeout)
	defer cancel()

	prompt := fmt.Sprintf(loadPrompt(s.prompts, driven.PromptIntentJudge), query, c.Intent, c.Confidence)
	reply, err := s.llm.Generate(callCtx, prompt, driven.ClassificationOptions())
	if err != nil {
		logger.Warn("Intent judge failed: %v", err)
		return domain.NewClassification(domain.IntentProcessRelated, judgeFailed)
	}

	verdict := strings.ToUpper(reply)
	switch {
	case strings.Contains(verdict, "OVERRIDE"):
		logger.Debug("Intent judge overrode %s for %q", c.Intent, query)
		return domain.NewClassification(domain.IntentProcessRelated, judgeOverride)
	case strings.Contains(verdict, "CONFIRM"):
		return domain.NewClassification(c.Intent, math.Min(c.Confidence+judgeConfirmBoost, judgeConfirmCeiling))
	default:
		logger.Warn("Intent judge reply not understood: %q", reply)
		return domain.NewClassification(domain.IntentProcessRelated, judgeUnparsable)
	}
}
