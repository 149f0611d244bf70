package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain"
	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/metrics"
)

const defaultCandidateRole = "Candidate"

// ResultTokenIssuer signs tokens that bind a client to one realtime session
type ResultTokenIssuer interface {
	GenerateResultToken(sessionID string) (string, time.Time, error)
}

// InterviewService mints realtime sessions and stores interview results
type InterviewService struct {
	sessions   repositories.RealtimeSessions
	interviews repositories.InterviewRepository
	tokens     ResultTokenIssuer
	events     repositories.EventPublisher
	caller     *modelCaller
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewInterviewService creates a new interview service. chatModel may be
// empty to use the model adapter's default.
func NewInterviewService(
	sessions repositories.RealtimeSessions,
	interviews repositories.InterviewRepository,
	tokens ResultTokenIssuer,
	llm repositories.LanguageModel,
	chatModel string,
	events repositories.EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *InterviewService {
	return &InterviewService{
		sessions:   sessions,
		interviews: interviews,
		tokens:     tokens,
		events:     events,
		caller:     &modelCaller{llm: llm, model: chatModel, metrics: m, logger: logger},
		metrics:    m,
		logger:     logger,
	}
}

// MintSession creates a vendor realtime session and attaches our own session
// ID and a result token for it.
func (s *InterviewService) MintSession(ctx context.Context) (*entities.RealtimeSession, error) {
	rs, err := s.sessions.CreateSession(ctx)
	s.metrics.RecordRealtimeSession(err)
	if err != nil {
		return nil, err
	}

	rs.ID = uuid.New().String()
	token, _, err := s.tokens.GenerateResultToken(rs.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue result token: %w", err)
	}
	rs.ResultToken = token

	s.logger.Info("Realtime session minted",
		zap.String("session_id", rs.ID),
		zap.String("model", rs.Model))
	return rs, nil
}

// Summarize asks the model for a structured review of the transcript. A reply
// that is not JSON is returned as the summary text with Error set.
func (s *InterviewService) Summarize(ctx context.Context, transcript []entities.TranscriptItem, role string) (*entities.InterviewSummary, entities.Usage, error) {
	if len(transcript) == 0 {
		return nil, entities.Usage{}, invalid("Transcript is required")
	}
	if strings.TrimSpace(role) == "" {
		role = defaultCandidateRole
	}

	payload, err := json.Marshal(transcript)
	if err != nil {
		return nil, entities.Usage{}, fmt.Errorf("failed to encode transcript: %w", err)
	}

	resp, err := s.caller.complete(ctx, "summarize_interview", repositories.CompletionRequest{
		Messages: []repositories.ChatMessage{
			{Role: repositories.SystemRole, Content: summaryPrompt(role)},
			{Role: repositories.UserRole, Content: string(payload)},
		},
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return nil, entities.Usage{}, err
	}

	return parseSummary(resp.Content, s.logger), resp.Usage, nil
}

func parseSummary(content string, logger *zap.Logger) *entities.InterviewSummary {
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}

	var summary entities.InterviewSummary
	if err := json.Unmarshal([]byte(extractJSON(content)), &summary); err != nil {
		return &entities.InterviewSummary{
			Summary: content,
			Error:   "Parser failed: non-JSON output",
		}
	}
	if summary.OverallRecommendation != "" && !summary.OverallRecommendation.Valid() {
		logger.Warn("Model returned unknown recommendation",
			zap.String("recommendation", string(summary.OverallRecommendation)))
	}
	return &summary
}

// SaveResultRequest is the final state of an interview sent by the client
type SaveResultRequest struct {
	CandidateName string                    `json:"candidate_name"`
	Role          string                    `json:"role"`
	Transcript    []entities.TranscriptItem `json:"transcript"`
	// Summarize requests a model summary before storing.
	Summarize bool `json:"summarize"`
}

// SaveResult stores the transcript of a session, creating the interview on
// first save. Empty lines are dropped.
func (s *InterviewService) SaveResult(ctx context.Context, sessionID string, req SaveResultRequest) (*entities.Interview, error) {
	if sessionID == "" {
		return nil, invalid("Session ID is required")
	}

	items := compactTranscript(req.Transcript)

	interview, err := s.interviews.GetBySessionID(ctx, sessionID)
	isNew := errors.Is(err, repositories.ErrNotFound)
	switch {
	case isNew:
		interview = entities.NewInterview(sessionID)
	case err != nil:
		return nil, err
	}

	if req.CandidateName != "" {
		interview.CandidateName = req.CandidateName
	}
	if req.Role != "" {
		interview.Role = req.Role
	}
	interview.SetTranscript(items)

	var summary *entities.InterviewSummary
	if req.Summarize && len(items) > 0 {
		summary, _, err = s.Summarize(ctx, items, interview.Role)
		if err != nil {
			return nil, err
		}
	}
	interview.Complete(summary)

	if isNew {
		err = s.interviews.Create(ctx, interview)
	} else {
		err = s.interviews.Update(ctx, interview)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInterviewSaved()
	s.logger.Info("Interview result saved",
		zap.String("interview_id", interview.ID.Hex()),
		zap.String("session_id", sessionID),
		zap.Int("lines", len(interview.Transcript)))

	event := domain.InterviewCompletedEvent{
		InterviewID: interview.ID.Hex(),
		SessionID:   sessionID,
		Lines:       len(interview.Transcript),
	}
	if summary != nil {
		event.Recommendation = summary.OverallRecommendation
	}
	if err := s.events.PublishInterviewCompleted(ctx, sessionID, event); err != nil {
		s.logger.Warn("Failed to publish interview completed event", zap.Error(err))
	}

	return interview, nil
}

// RecordLine relays one live transcript line to downstream consumers.
func (s *InterviewService) RecordLine(ctx context.Context, sessionID string, line entities.TranscriptItem) error {
	s.metrics.RecordTranscriptLine(string(line.Speaker))
	return s.events.PublishTranscriptLine(ctx, sessionID, domain.TranscriptEvent{
		SessionID: sessionID,
		Line:      line,
	})
}

// Latest returns the most recent stored interview
func (s *InterviewService) Latest(ctx context.Context) (*entities.Interview, error) {
	return s.interviews.GetLatest(ctx)
}

// Get returns a stored interview by ID
func (s *InterviewService) Get(ctx context.Context, id string) (*entities.Interview, error) {
	return s.interviews.GetByID(ctx, id)
}

// ExpireInterviews marks interviews past retention as expired
func (s *InterviewService) ExpireInterviews(ctx context.Context) (int64, error) {
	n, err := s.interviews.ExpireInterviews(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	s.metrics.RecordInterviewsExpired(n)
	return n, nil
}

func compactTranscript(items []entities.TranscriptItem) []entities.TranscriptItem {
	out := make([]entities.TranscriptItem, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		item.Text = text
		if item.Timestamp.IsZero() {
			item.Timestamp = time.Now()
		}
		out = append(out, item)
	}
	return out
}
