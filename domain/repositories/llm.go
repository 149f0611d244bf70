package repositories

import (
	"context"
	"errors"

	"github.com/hirewise/server/domain/entities"
)

// LanguageModel abstracts any chat/LLM provider
type LanguageModel interface {
	// Complete sends a chat conversation and returns the model's reply
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is a single chat-completion call
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// Completion is the model reply
type Completion struct {
	Content string
	Usage   entities.Usage
}

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the type of message sender
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)

// Provider errors shared by LanguageModel and realtime implementations
var (
	ErrMissingAPIKey = errors.New("provider API key is not configured")
	ErrInvalidAPIKey = errors.New("provider rejected the API key")
)
