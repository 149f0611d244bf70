package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

// Browser storage keys written by earlier clients before results moved to the
// server.
const (
	LegacyConversationKey = "latest_interview_conversation_v1"
	LegacyTranscriptKey   = "latest_interview_transcript_v1"
	LegacyGuidelinesKey   = "onboarding_guidelines_v1"
)

// legacyLine is a transcript or grouped line as stored by browser clients,
// with ts in Unix milliseconds.
type legacyLine struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	TS      float64 `json:"ts"`
}

// ImportResult describes what a legacy import stored
type ImportResult struct {
	Interview          *entities.Interview `json:"interview,omitempty"`
	GuidelinesImported bool                `json:"guidelines_imported"`
}

// ImportLegacy stores a dump of browser storage. Values are the raw strings
// kept under the legacy keys. The raw transcript wins over the grouped
// conversation when both are present. Imports only create interviews: a
// session that already has one is rejected with ErrSessionExists.
func (s *InterviewService) ImportLegacy(ctx context.Context, sessionID string, storage map[string]string, guidelines *AssistantService) (*ImportResult, error) {
	result := &ImportResult{}

	items, err := legacyItems(storage)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if sessionID == "" {
			return nil, invalid("Session ID is required")
		}
		_, err := s.interviews.GetBySessionID(ctx, sessionID)
		switch {
		case err == nil:
			return nil, ErrSessionExists
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
	}

	if raw, ok := storage[LegacyGuidelinesKey]; ok && guidelines != nil {
		if err := guidelines.SaveGuidelines(ctx, raw); err != nil {
			return nil, err
		}
		result.GuidelinesImported = true
	}

	if len(items) == 0 {
		if !result.GuidelinesImported {
			return nil, invalid("No legacy interview data found")
		}
		return result, nil
	}

	interview, err := s.SaveResult(ctx, sessionID, SaveResultRequest{Transcript: items})
	if err != nil {
		return nil, err
	}
	result.Interview = interview

	s.logger.Info("Legacy interview imported",
		zap.String("session_id", sessionID),
		zap.Int("lines", len(items)))
	return result, nil
}

func legacyItems(storage map[string]string) ([]entities.TranscriptItem, error) {
	for _, key := range []string{LegacyTranscriptKey, LegacyConversationKey} {
		raw, ok := storage[key]
		if !ok || raw == "" {
			continue
		}

		var lines []legacyLine
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			return nil, invalid(fmt.Sprintf("Invalid JSON under %s", key))
		}
		if len(lines) == 0 {
			continue
		}

		items := make([]entities.TranscriptItem, 0, len(lines))
		for _, l := range lines {
			item := entities.TranscriptItem{Speaker: entities.Speaker(l.Speaker), Text: l.Text}
			if l.TS > 0 {
				item.Timestamp = time.UnixMilli(int64(l.TS))
			}
			items = append(items, item)
		}
		return items, nil
	}
	return nil, nil
}
