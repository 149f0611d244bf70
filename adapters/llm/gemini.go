package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

const (
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiTimeout = 60 * time.Second
)

// GeminiConfig holds Gemini client settings
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiLLM implements the LanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client  *genai.Client
	logger  *zap.Logger
	model   string
	timeout time.Duration
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", repositories.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultGeminiTimeout
	}

	return &GeminiLLM{
		client:  client,
		logger:  logger,
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete implements repositories.LanguageModel. Request models are
// vendor-specific, so the configured Gemini model is always used.
func (g *GeminiLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (*repositories.Completion, error) {
	system, contents := toGeminiContents(req.Messages)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("Failed to generate content", zap.Error(err))
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := response.Text()
	if text == "" {
		return nil, errors.New("gemini returned no content")
	}

	out := &repositories.Completion{Content: text}
	if usage := response.UsageMetadata; usage != nil {
		out.Usage = entities.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}

	g.logger.Debug("Gemini completion finished",
		zap.String("model", g.model),
		zap.Int("total_tokens", out.Usage.TotalTokens))

	return out, nil
}

// toGeminiContents splits system messages from the conversation. Gemini
// has no assistant role; those turns are sent as model turns.
func toGeminiContents(messages []repositories.ChatMessage) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case repositories.SystemRole:
			system = append(system, msg.Content)
		case repositories.AssistantRole:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n\n"), contents
}
