package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/metrics"
)

// AssistantService answers onboarding questions using stored guidelines
type AssistantService struct {
	guidelines repositories.GuidelinesRepository
	caller     *modelCaller
	logger     *zap.Logger
}

// NewAssistantService creates a new onboarding assistant service
func NewAssistantService(guidelines repositories.GuidelinesRepository, llm repositories.LanguageModel, chatModel string, m *metrics.Metrics, logger *zap.Logger) *AssistantService {
	return &AssistantService{
		guidelines: guidelines,
		caller:     &modelCaller{llm: llm, model: chatModel, metrics: m, logger: logger},
		logger:     logger,
	}
}

// Chat answers a question. When guidelines is nil the stored guidelines are
// used; an explicit empty string disables them.
func (s *AssistantService) Chat(ctx context.Context, question string, guidelines *string) (string, entities.Usage, error) {
	if strings.TrimSpace(question) == "" {
		return "", entities.Usage{}, invalid("Missing question")
	}

	guide := ""
	if guidelines != nil {
		guide = *guidelines
	} else {
		stored, err := s.Guidelines(ctx)
		if err != nil {
			return "", entities.Usage{}, err
		}
		guide = stored.Text
	}

	resp, err := s.caller.complete(ctx, "chat", repositories.CompletionRequest{
		Messages: []repositories.ChatMessage{
			{Role: repositories.SystemRole, Content: assistantPrompt(guide)},
			{Role: repositories.UserRole, Content: question},
		},
		Temperature: assistantTemperature,
		MaxTokens:   assistantMaxTokens,
	})
	if err != nil {
		return "", entities.Usage{}, err
	}

	return strings.TrimSpace(resp.Content), resp.Usage, nil
}

// Guidelines returns the stored guidelines, or empty guidelines when none
// were saved yet.
func (s *AssistantService) Guidelines(ctx context.Context) (*entities.Guidelines, error) {
	g, err := s.guidelines.Get(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		return &entities.Guidelines{}, nil
	}
	return g, err
}

// SaveGuidelines replaces the stored guidelines text
func (s *AssistantService) SaveGuidelines(ctx context.Context, text string) error {
	err := s.guidelines.Save(ctx, &entities.Guidelines{Text: text, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	s.logger.Info("Onboarding guidelines updated", zap.Int("length", len(text)))
	return nil
}
