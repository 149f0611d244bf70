package domain

import "github.com/hirewise/server/domain/entities"

// Live transcript message types exchanged over the interview websocket
const (
	MessageTypeTranscriptLine = "transcript_line"
	MessageTypeStateChange    = "state_change"
	MessageTypeSessionEnded   = "session_ended"
	MessageTypeError          = "error"
)

// TranscriptLineMessage carries one completed utterance
type TranscriptLineMessage struct {
	Type      string                  `json:"type"`
	SessionID string                  `json:"session_id"`
	Line      entities.TranscriptItem `json:"line"`
}

// StateChangeMessage reports a connection state change of the interview client
type StateChangeMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// SessionEndedMessage is sent when the interview result has been stored
type SessionEndedMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	InterviewID string `json:"interview_id"`
}

// TranscriptEvent is the payload published for every transcript line
type TranscriptEvent struct {
	SessionID string                  `json:"session_id"`
	Line      entities.TranscriptItem `json:"line"`
}

// InterviewCompletedEvent is the payload published when a result is saved
type InterviewCompletedEvent struct {
	InterviewID    string                 `json:"interview_id"`
	SessionID      string                 `json:"session_id"`
	Lines          int                    `json:"lines"`
	Recommendation entities.Recommendation `json:"recommendation,omitempty"`
}
