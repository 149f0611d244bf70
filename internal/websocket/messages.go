package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hirewise/server/domain"
	"github.com/hirewise/server/domain/entities"
)

// Application-level keepalive types, in addition to the domain message types
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// baseMessage is used to peek at the type of an incoming message
type baseMessage struct {
	Type string `json:"type"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Code      string `json:"error_code"`
	Message   string `json:"message"`
}

// MessageValidator validates messages sent by publishing clients. The session
// ID of every message is forced to the session of the connection.
type MessageValidator struct {
	sessionID string
}

// NewMessageValidator creates a validator bound to one session
func NewMessageValidator(sessionID string) *MessageValidator {
	return &MessageValidator{sessionID: sessionID}
}

// ValidateMessage validates an incoming message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base baseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case domain.MessageTypeTranscriptLine:
		var msg domain.TranscriptLineMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid transcript line message: %w", err)
		}
		if err := v.validateLine(&msg.Line); err != nil {
			return nil, err
		}
		msg.SessionID = v.sessionID
		return &msg, nil

	case domain.MessageTypeStateChange:
		var msg domain.StateChangeMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid state change message: %w", err)
		}
		if msg.State == "" {
			return nil, fmt.Errorf("state is required")
		}
		msg.SessionID = v.sessionID
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func (v *MessageValidator) validateLine(line *entities.TranscriptItem) error {
	line.Text = strings.TrimSpace(line.Text)
	if line.Text == "" {
		return entities.ErrEmptyTranscriptText
	}
	if line.Speaker == "" {
		return fmt.Errorf("speaker is required")
	}
	if line.Timestamp.IsZero() {
		line.Timestamp = time.Now()
	}
	return nil
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:      domain.MessageTypeError,
		Timestamp: time.Now().Format(time.RFC3339),
		Code:      code,
		Message:   message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		Type:      MessageTypePong,
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      data,
	}
}
