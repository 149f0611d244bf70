package entities

import (
	"errors"
	"strings"
	"time"
)

// Speaker identifies who produced a transcript line.
type Speaker string

const (
	SpeakerInterviewer Speaker = "Interviewer"
	SpeakerCandidate   Speaker = "Candidate"
)

// IsInterviewer reports whether the speaker is the AI side of the call.
// Some clients tag vendor lines as "assistant".
func (s Speaker) IsInterviewer() bool {
	switch s {
	case SpeakerInterviewer, "assistant", "ai", "system":
		return true
	}
	return false
}

// IsCandidate reports whether the speaker is the human side of the call.
func (s Speaker) IsCandidate() bool {
	switch s {
	case SpeakerCandidate, "user", "human":
		return true
	}
	return false
}

// ErrEmptyTranscriptText is returned when a line without text is appended.
var ErrEmptyTranscriptText = errors.New("transcript text is empty")

// TranscriptItem is one completed utterance. Items are never mutated after
// they are appended.
type TranscriptItem struct {
	Speaker   Speaker   `json:"speaker" bson:"speaker"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"ts" bson:"ts"`
}

// GroupedLine collapses consecutive items of the same speaker.
type GroupedLine struct {
	Speaker   Speaker   `json:"speaker" bson:"speaker"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"ts" bson:"ts"`
}

// Transcript is an append-only sequence of items in arrival order.
type Transcript struct {
	items []TranscriptItem
}

// NewTranscript builds a transcript from previously stored items.
func NewTranscript(items []TranscriptItem) *Transcript {
	t := &Transcript{items: make([]TranscriptItem, 0, len(items))}
	t.items = append(t.items, items...)
	return t
}

// Append adds a line. A zero timestamp is replaced with the current time.
func (t *Transcript) Append(item TranscriptItem) error {
	if strings.TrimSpace(item.Text) == "" {
		return ErrEmptyTranscriptText
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	t.items = append(t.items, item)
	return nil
}

// Items returns a copy of the transcript items.
func (t *Transcript) Items() []TranscriptItem {
	out := make([]TranscriptItem, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of items.
func (t *Transcript) Len() int {
	return len(t.items)
}

// Grouped returns the grouped projection of the transcript.
func (t *Transcript) Grouped() []GroupedLine {
	return Group(t.items)
}

// Group collapses consecutive items that share a speaker into one line,
// joining their text with a single space. No separator is added when the
// accumulated text already ends with a newline. The line timestamp is the
// timestamp of its latest item.
func Group(items []TranscriptItem) []GroupedLine {
	out := make([]GroupedLine, 0, len(items))
	for _, item := range items {
		if n := len(out); n > 0 && out[n-1].Speaker == item.Speaker {
			last := &out[n-1]
			if !strings.HasSuffix(last.Text, "\n") {
				last.Text += " "
			}
			last.Text += item.Text
			if !item.Timestamp.IsZero() {
				last.Timestamp = item.Timestamp
			}
			continue
		}
		ts := item.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		out = append(out, GroupedLine{Speaker: item.Speaker, Text: item.Text, Timestamp: ts})
	}
	return out
}
