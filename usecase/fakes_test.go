package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/metrics"
)

func testMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

type scriptedLLM struct {
	mu       sync.Mutex
	content  string
	err      error
	requests []repositories.CompletionRequest
}

func (l *scriptedLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (*repositories.Completion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	if l.err != nil {
		return nil, l.err
	}
	return &repositories.Completion{
		Content: l.content,
		Usage:   entities.Usage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20},
	}, nil
}

func (l *scriptedLLM) last() repositories.CompletionRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requests[len(l.requests)-1]
}

type fakeSessions struct {
	session *entities.RealtimeSession
	err     error
}

func (f *fakeSessions) CreateSession(ctx context.Context) (*entities.RealtimeSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.session
	return &s, nil
}

type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) GenerateResultToken(sessionID string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "token-" + sessionID, time.Now().Add(time.Hour), nil
}

type fakePublisher struct {
	mu        sync.Mutex
	lines     []any
	completed []any
	err       error
}

func (p *fakePublisher) PublishTranscriptLine(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, event)
	return p.err
}

func (p *fakePublisher) PublishInterviewCompleted(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, event)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type fakeExtractor struct {
	doc *entities.ExtractedDocument
	err error
}

func (f *fakeExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (*entities.ExtractedDocument, error) {
	return f.doc, f.err
}

var errVendor = errors.New("vendor unavailable")
