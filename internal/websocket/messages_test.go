package websocket

import (
	"encoding/json"
	"testing"

	"github.com/hirewise/server/domain"
)

func TestMessageValidator_TranscriptLine(t *testing.T) {
	validator := NewMessageValidator("session-1")

	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{
			name:    "valid line",
			message: `{"type":"transcript_line","line":{"speaker":"Candidate","text":" I built it ","ts":"2024-05-01T10:00:00Z"}}`,
			wantErr: false,
		},
		{
			name:    "line without timestamp",
			message: `{"type":"transcript_line","line":{"speaker":"Interviewer","text":"Why?"}}`,
			wantErr: false,
		},
		{
			name:    "empty text",
			message: `{"type":"transcript_line","line":{"speaker":"Candidate","text":"   "}}`,
			wantErr: true,
		},
		{
			name:    "missing speaker",
			message: `{"type":"transcript_line","line":{"text":"hello"}}`,
			wantErr: true,
		},
		{
			name:    "bad line shape",
			message: `{"type":"transcript_line","line":"hello"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			line, ok := msg.(*domain.TranscriptLineMessage)
			if !ok {
				t.Fatalf("expected *TranscriptLineMessage, got %T", msg)
			}
			if line.SessionID != "session-1" {
				t.Errorf("expected session to be forced, got %q", line.SessionID)
			}
			if line.Line.Timestamp.IsZero() {
				t.Error("expected timestamp to be filled")
			}
			if line.Line.Text != "I built it" && line.Line.Text != "Why?" {
				t.Errorf("unexpected text %q", line.Line.Text)
			}
		})
	}
}

func TestMessageValidator_SessionIsForced(t *testing.T) {
	validator := NewMessageValidator("mine")

	msg, err := validator.ValidateMessage([]byte(`{"type":"state_change","session_id":"someone-else","state":"connected"}`))
	if err != nil {
		t.Fatalf("ValidateMessage: %v", err)
	}
	if got := msg.(*domain.StateChangeMessage).SessionID; got != "mine" {
		t.Errorf("expected session mine, got %s", got)
	}

	if _, err := validator.ValidateMessage([]byte(`{"type":"state_change"}`)); err == nil {
		t.Error("expected error for missing state")
	}
}

func TestMessageValidator_Other(t *testing.T) {
	validator := NewMessageValidator("s")

	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{"ping", `{"type":"ping","data":"x"}`, false},
		{"unknown type", `{"type":"audio_chunk"}`, true},
		{"invalid json", `{not json`, true},
		{"session ended is server only", `{"type":"session_ended"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage("invalid_message", "speaker is required")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["type"] != domain.MessageTypeError {
		t.Errorf("expected type error, got %v", decoded["type"])
	}
	if decoded["error_code"] != "invalid_message" {
		t.Errorf("unexpected code %v", decoded["error_code"])
	}
}

func TestCreatePongMessage(t *testing.T) {
	msg := CreatePongMessage("abc")
	if msg.Type != MessageTypePong || msg.Data != "abc" || msg.Timestamp == "" {
		t.Errorf("unexpected pong %+v", msg)
	}
}
