package realtime

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
)

// Normalizer turns the vendor event stream into transcript lines. It owns
// the streaming buffer for the interviewer's in-flight turn and is not safe
// for concurrent use; the adapter drives it from a single goroutine.
type Normalizer struct {
	buffer    strings.Builder
	streaming bool
	emit      func(entities.TranscriptItem)
	now       func() time.Time
	logger    *zap.Logger
}

// NewNormalizer creates a normalizer that calls emit once per completed line.
func NewNormalizer(emit func(entities.TranscriptItem), logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		emit:   emit,
		now:    time.Now,
		logger: logger,
	}
}

// Handle processes one raw data-channel message. Malformed payloads are
// logged and dropped.
func (n *Normalizer) Handle(data []byte) {
	event, err := Decode(data)
	if err != nil {
		n.logger.Debug("Dropping malformed realtime event", zap.Error(err))
		return
	}
	n.HandleEvent(event)
}

// HandleEvent processes one decoded event.
func (n *Normalizer) HandleEvent(event Event) {
	switch e := event.(type) {
	case UserTranscriptionEvent:
		n.push(entities.SpeakerCandidate, e.Text)

	case ResponseDeltaEvent:
		if e.Delta != "" {
			n.streaming = true
			n.buffer.WriteString(e.Delta)
		}

	case ResponseDoneEvent:
		n.push(entities.SpeakerInterviewer, n.buffer.String())
		n.Reset()

	case ResponseOtherEvent:
		// intermediate response events repeat text already streamed as deltas

	case ItemCreatedEvent:
		// assistant items are already covered by the response deltas
		if e.Role == "user" {
			n.push(entities.SpeakerCandidate, e.Text)
		}

	case UnknownEvent:
		n.logger.Debug("Ignoring realtime event", zap.String("type", e.Type))
	}
}

// PushCandidate emits a finalized line from the fallback recognizer. It does
// not touch the streaming buffer.
func (n *Normalizer) PushCandidate(text string) {
	n.push(entities.SpeakerCandidate, text)
}

// Streaming reports whether an interviewer turn is being accumulated.
func (n *Normalizer) Streaming() bool {
	return n.streaming
}

// Reset discards any partial interviewer text.
func (n *Normalizer) Reset() {
	n.buffer.Reset()
	n.streaming = false
}

func (n *Normalizer) push(speaker entities.Speaker, text string) {
	text = strings.TrimSpace(text)
	if text == "" || n.emit == nil {
		return
	}
	n.emit(entities.TranscriptItem{Speaker: speaker, Text: text, Timestamp: n.now()})
}
