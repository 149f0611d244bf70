package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hirewise/server/domain/entities"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// UsageResponse is returned by GET on POST-only endpoints
type UsageResponse struct {
	Message string `json:"message"`
}

// TranscriptLine is a transcript item as sent by clients. ts may be Unix
// milliseconds or an RFC 3339 string.
type TranscriptLine struct {
	Speaker string          `json:"speaker"`
	Text    string          `json:"text"`
	TS      json.RawMessage `json:"ts,omitempty"`
}

func toTranscriptItems(lines []TranscriptLine) ([]entities.TranscriptItem, error) {
	items := make([]entities.TranscriptItem, 0, len(lines))
	for i, l := range lines {
		ts, err := parseTimestamp(l.TS)
		if err != nil {
			return nil, fmt.Errorf("transcript[%d].ts: %w", i, err)
		}
		items = append(items, entities.TranscriptItem{
			Speaker:   entities.Speaker(l.Speaker),
			Text:      l.Text,
			Timestamp: ts,
		})
	}
	return items, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if s[0] == '"' {
		var t time.Time
		err := json.Unmarshal(raw, &t)
		return t, err
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(ms)), nil
}

// ChatRequest is the onboarding assistant question
type ChatRequest struct {
	Question   string  `json:"question"`
	Guidelines *string `json:"guidelines"`
}

// ChatResponse carries the assistant reply
type ChatResponse struct {
	Reply string         `json:"reply"`
	Usage entities.Usage `json:"usage"`
}

// SummarizeRequest asks for an interview summary
type SummarizeRequest struct {
	Transcript []TranscriptLine `json:"transcript"`
	Role       string           `json:"role"`
}

// AnalyzeResumeRequest asks for a resume analysis
type AnalyzeResumeRequest struct {
	Text string `json:"text"`
}

// AnalysisResponse wraps a structured model reply
type AnalysisResponse struct {
	Analysis interface{}    `json:"analysis"`
	Usage    entities.Usage `json:"usage"`
}

// SaveInterviewRequest is the final interview state sent by a client
type SaveInterviewRequest struct {
	CandidateName string           `json:"candidate_name"`
	Role          string           `json:"role"`
	Transcript    []TranscriptLine `json:"transcript"`
	Summarize     bool             `json:"summarize"`
}

// ImportRequest carries a dump of browser storage from earlier clients
type ImportRequest struct {
	SessionID string            `json:"session_id"`
	Storage   map[string]string `json:"storage"`
}

// InterviewResponse is a stored interview with its question/answer pairs
type InterviewResponse struct {
	*entities.Interview
	QAPairs []entities.QAPair `json:"qa_pairs"`
}

func newInterviewResponse(i *entities.Interview) InterviewResponse {
	pairs := entities.PairQuestions(i.Grouped)
	if pairs == nil {
		pairs = []entities.QAPair{}
	}
	return InterviewResponse{Interview: i, QAPairs: pairs}
}

// GuidelinesRequest replaces the onboarding guidelines
type GuidelinesRequest struct {
	Text string `json:"text"`
}
