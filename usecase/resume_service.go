package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/metrics"
)

const (
	// MaxResumeSize is the upload limit for resume documents
	MaxResumeSize  = 10 * 1024 * 1024
	pdfContentType = "application/pdf"
)

// ResumeService extracts and analyzes candidate resumes
type ResumeService struct {
	extractor repositories.TextExtractor
	caller    *modelCaller
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewResumeService creates a new resume service
func NewResumeService(extractor repositories.TextExtractor, llm repositories.LanguageModel, chatModel string, m *metrics.Metrics, logger *zap.Logger) *ResumeService {
	return &ResumeService{
		extractor: extractor,
		caller:    &modelCaller{llm: llm, model: chatModel, metrics: m, logger: logger},
		metrics:   m,
		logger:    logger,
	}
}

// ExtractText pulls the text out of an uploaded PDF
func (s *ResumeService) ExtractText(ctx context.Context, contentType string, size int64, r io.ReaderAt) (*entities.ExtractedDocument, error) {
	if !strings.EqualFold(strings.TrimSpace(strings.Split(contentType, ";")[0]), pdfContentType) {
		return nil, invalid("Please upload a PDF file")
	}
	if size > MaxResumeSize {
		return nil, invalid("File size must be less than 10MB")
	}

	doc, err := s.extractor.Extract(ctx, r, size)
	s.metrics.RecordDocumentExtract(err)
	if err != nil {
		s.logger.Error("Failed to extract resume text", zap.Error(err), zap.Int64("size", size))
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	s.logger.Info("Resume text extracted", zap.Int("pages", doc.Pages), zap.Int("chars", len(doc.Text)))
	return doc, nil
}

// Analyze asks the model for a structured resume review. A reply that is not
// JSON is returned as RawAnalysis with Error set.
func (s *ResumeService) Analyze(ctx context.Context, text string) (*entities.ResumeAnalysis, entities.Usage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, entities.Usage{}, invalid("No text provided for analysis")
	}

	resp, err := s.caller.complete(ctx, "analyze_resume", repositories.CompletionRequest{
		Messages: []repositories.ChatMessage{
			{Role: repositories.SystemRole, Content: resumeSystemPrompt},
			{Role: repositories.UserRole, Content: resumePrompt(text)},
		},
		Temperature: resumeTemperature,
		MaxTokens:   resumeMaxTokens,
	})
	if err != nil {
		return nil, entities.Usage{}, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, resp.Usage, ErrEmptyCompletion
	}

	var analysis entities.ResumeAnalysis
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &analysis); err != nil {
		return &entities.ResumeAnalysis{
			Summary:     "Analysis completed",
			RawAnalysis: resp.Content,
			Error:       "Failed to parse structured response",
		}, resp.Usage, nil
	}
	return &analysis, resp.Usage, nil
}
