package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/logger"
	"github.com/hirewise/server/internal/metrics"
)

// Model call settings shared by the services.
const (
	summaryTemperature   float32 = 0.3
	summaryMaxTokens             = 1200
	resumeTemperature    float32 = 0.3
	resumeMaxTokens              = 2000
	assistantTemperature float32 = 0.2
	assistantMaxTokens           = 800

	logPreviewLimit = 200
)

// modelCaller wraps a LanguageModel with metrics and logging.
type modelCaller struct {
	llm     repositories.LanguageModel
	model   string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (m *modelCaller) complete(ctx context.Context, operation string, req repositories.CompletionRequest) (*repositories.Completion, error) {
	if req.Model == "" {
		req.Model = m.model
	}

	start := time.Now()
	resp, err := m.llm.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		m.metrics.RecordLLMCall(operation, 0, 0, err, elapsed)
		m.logger.Error("Language model call failed",
			zap.String("operation", operation),
			zap.Error(err))
		return nil, err
	}

	m.metrics.RecordLLMCall(operation, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil, elapsed)
	m.logger.Debug("Language model call completed",
		zap.String("operation", operation),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("preview", logger.TruncateForLog(resp.Content, logPreviewLimit)))
	return resp, nil
}
