package llm

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

// MockLLM is a canned LanguageModel for local development without API keys.
// It recognizes the summarization and resume prompts by their system
// message and answers with matching JSON.
type MockLLM struct {
	logger *zap.Logger

	mu       sync.Mutex
	requests []repositories.CompletionRequest
}

// NewMockLLM creates a new mock language model
func NewMockLLM(logger *zap.Logger) *MockLLM {
	return &MockLLM{logger: logger}
}

func (m *MockLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (*repositories.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	system := ""
	if len(req.Messages) > 0 && req.Messages[0].Role == repositories.SystemRole {
		system = req.Messages[0].Content
	}

	var content string
	switch {
	case strings.Contains(system, "overall_recommendation"):
		content = `{"summary":"The candidate walked through a production incident and explained the fix clearly.","key_strengths":["Clear communication","Debugging under pressure"],"concerns":["Limited detail on testing"],"skills_mentioned":["Go","PostgreSQL"],"notable_quotes":["We rolled back first and asked questions later."],"overall_recommendation":"Leaning Hire"}`
	case strings.Contains(system, "analyze the resume"):
		content = "```json\n" + `{"summary":"Backend engineer with five years of experience.","skills":["Go","Kubernetes","SQL"],"strengths":["Production ownership","Mentoring"],"weaknesses":["No frontend work","Few public projects"]}` + "\n```"
	default:
		content = "Thanks for the question. Please check the onboarding guidelines for the details that apply to your team."
	}

	m.logger.Debug("Mock completion", zap.Int("messages", len(req.Messages)))

	return &repositories.Completion{
		Content: content,
		Usage:   entities.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}, nil
}

// Requests returns every request received so far.
func (m *MockLLM) Requests() []repositories.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repositories.CompletionRequest(nil), m.requests...)
}
