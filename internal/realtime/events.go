package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound event type names and prefixes used by the vendor data channel.
const (
	typeInputTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	prefixInputTranscription        = "input_audio_transcription."
	prefixResponse                  = "response."
	typeItemCreated                 = "conversation.item.created"
)

// Event is one decoded data-channel message. The set of implementations is
// closed; callers classify events with a type switch.
type Event interface {
	EventType() string
	isEvent()
}

// UserTranscriptionEvent carries a finished transcription of candidate speech.
type UserTranscriptionEvent struct {
	Type string
	Text string
}

// ResponseDeltaEvent is a streamed fragment of the interviewer's reply.
// Delta is empty when the payload was missing or not a string.
type ResponseDeltaEvent struct {
	Type  string
	Delta string
}

// ResponseDoneEvent marks the end of an interviewer turn.
type ResponseDoneEvent struct {
	Type string
}

// ResponseOtherEvent is any other response.* event. It carries no text.
type ResponseOtherEvent struct {
	Type string
}

// ItemCreatedEvent reports a new conversation item.
type ItemCreatedEvent struct {
	Type string
	Role string
	Text string
}

// UnknownEvent is anything not matched above, including messages without a type.
type UnknownEvent struct {
	Type string
}

func (e UserTranscriptionEvent) EventType() string { return e.Type }
func (e ResponseDeltaEvent) EventType() string     { return e.Type }
func (e ResponseDoneEvent) EventType() string      { return e.Type }
func (e ResponseOtherEvent) EventType() string     { return e.Type }
func (e ItemCreatedEvent) EventType() string       { return e.Type }
func (e UnknownEvent) EventType() string           { return e.Type }

func (UserTranscriptionEvent) isEvent() {}
func (ResponseDeltaEvent) isEvent()     {}
func (ResponseDoneEvent) isEvent()      {}
func (ResponseOtherEvent) isEvent()     {}
func (ItemCreatedEvent) isEvent()       {}
func (UnknownEvent) isEvent()           {}

type wireEvent struct {
	Type       json.RawMessage `json:"type"`
	Text       json.RawMessage `json:"text"`
	Delta      json.RawMessage `json:"delta"`
	Transcript json.RawMessage `json:"transcript"`
	Content    json.RawMessage `json:"content"`
	Item       json.RawMessage `json:"item"`
}

type wireItem struct {
	Role    json.RawMessage   `json:"role"`
	Content []json.RawMessage `json:"content"`
}

type wirePart struct {
	Role       json.RawMessage `json:"role"`
	Text       json.RawMessage `json:"text"`
	Transcript json.RawMessage `json:"transcript"`
}

// Decode parses one data-channel message. Only a payload that is not a JSON
// object returns an error; every object decodes to some Event.
func Decode(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	typ := jsonString(w.Type)
	switch {
	case typ == "":
		return UnknownEvent{}, nil

	case typ == typeInputTranscriptionCompleted || strings.HasPrefix(typ, prefixInputTranscription):
		return UserTranscriptionEvent{
			Type: typ,
			Text: firstNonEmpty(w.Text, w.Delta, w.Transcript, w.Content),
		}, nil

	case strings.HasPrefix(typ, prefixResponse):
		switch {
		case strings.HasSuffix(typ, ".delta"):
			return ResponseDeltaEvent{Type: typ, Delta: jsonString(w.Delta)}, nil
		case strings.HasSuffix(typ, ".done") || strings.HasSuffix(typ, "completed"):
			return ResponseDoneEvent{Type: typ}, nil
		default:
			return ResponseOtherEvent{Type: typ}, nil
		}

	case typ == typeItemCreated:
		role, text := decodeItem(w.Item)
		return ItemCreatedEvent{Type: typ, Role: role, Text: text}, nil
	}

	return UnknownEvent{Type: typ}, nil
}

// decodeItem returns the item role (falling back to the first content part's
// role) and the space-joined text of every part's text and transcript fields.
func decodeItem(raw json.RawMessage) (string, string) {
	var item wireItem
	if len(raw) == 0 || json.Unmarshal(raw, &item) != nil {
		return "", ""
	}

	role := jsonString(item.Role)
	parts := make([]string, 0, len(item.Content))
	for i, rawPart := range item.Content {
		var part wirePart
		if json.Unmarshal(rawPart, &part) != nil {
			continue
		}
		if i == 0 && role == "" {
			role = jsonString(part.Role)
		}
		if s, ok := asString(part.Text); ok {
			parts = append(parts, s)
		}
		if s, ok := asString(part.Transcript); ok {
			parts = append(parts, s)
		}
	}
	return role, joinParts(parts)
}

func joinParts(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

func firstNonEmpty(fields ...json.RawMessage) string {
	for _, f := range fields {
		if s := jsonString(f); s != "" {
			return s
		}
	}
	return ""
}

// jsonString returns the string value of raw, or "" if raw is not a string.
func jsonString(raw json.RawMessage) string {
	s, _ := asString(raw)
	return s
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
