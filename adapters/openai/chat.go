package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

// DefaultChatModel is used when a request does not name a model.
const DefaultChatModel = "gpt-4o-mini"

// ChatModel implements repositories.LanguageModel with the chat completions API.
type ChatModel struct {
	client *openai.Client
	model  string
	apiKey string
	logger *zap.Logger
}

func NewChatModel(apiKey, baseURL, model string, logger *zap.Logger) *ChatModel {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatModel{
		client: openai.NewClientWithConfig(config),
		model:  model,
		apiKey: apiKey,
		logger: logger,
	}
}

func (m *ChatModel) Complete(ctx context.Context, req repositories.CompletionRequest) (*repositories.Completion, error) {
	if m.apiKey == "" {
		return nil, repositories.ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = m.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content})
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.Code == "invalid_api_key") {
			return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidAPIKey, err)
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	m.logger.Debug("Chat completion finished",
		zap.String("model", model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return &repositories.Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: entities.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
