package entities

import (
	"testing"
	"time"
)

func TestGroup(t *testing.T) {
	t0 := time.Unix(100, 0)
	t1 := time.Unix(200, 0)
	t2 := time.Unix(300, 0)

	tests := []struct {
		name  string
		items []TranscriptItem
		want  []GroupedLine
	}{
		{
			name: "consecutive speakers collapse",
			items: []TranscriptItem{
				{Speaker: "A", Text: "x", Timestamp: t0},
				{Speaker: "A", Text: "y", Timestamp: t1},
				{Speaker: "B", Text: "z", Timestamp: t2},
			},
			want: []GroupedLine{
				{Speaker: "A", Text: "x y", Timestamp: t1},
				{Speaker: "B", Text: "z", Timestamp: t2},
			},
		},
		{
			name: "alternating speakers stay separate",
			items: []TranscriptItem{
				{Speaker: SpeakerInterviewer, Text: "q1", Timestamp: t0},
				{Speaker: SpeakerCandidate, Text: "a1", Timestamp: t1},
				{Speaker: SpeakerInterviewer, Text: "q2", Timestamp: t2},
			},
			want: []GroupedLine{
				{Speaker: SpeakerInterviewer, Text: "q1", Timestamp: t0},
				{Speaker: SpeakerCandidate, Text: "a1", Timestamp: t1},
				{Speaker: SpeakerInterviewer, Text: "q2", Timestamp: t2},
			},
		},
		{
			name: "trailing newline suppresses separator",
			items: []TranscriptItem{
				{Speaker: "A", Text: "line\n", Timestamp: t0},
				{Speaker: "A", Text: "next", Timestamp: t1},
			},
			want: []GroupedLine{
				{Speaker: "A", Text: "line\nnext", Timestamp: t1},
			},
		},
		{
			name:  "empty input",
			items: nil,
			want:  []GroupedLine{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Group(tt.items)
			if len(got) != len(tt.want) {
				t.Fatalf("Group() returned %d lines, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Speaker != tt.want[i].Speaker || got[i].Text != tt.want[i].Text {
					t.Errorf("line %d = %+v, want %+v", i, got[i], tt.want[i])
				}
				if !got[i].Timestamp.Equal(tt.want[i].Timestamp) {
					t.Errorf("line %d timestamp = %v, want %v", i, got[i].Timestamp, tt.want[i].Timestamp)
				}
			}
		})
	}
}

func TestGroupDoesNotMutateInput(t *testing.T) {
	items := []TranscriptItem{
		{Speaker: "A", Text: "x"},
		{Speaker: "A", Text: "y"},
	}
	Group(items)
	if items[0].Text != "x" || items[1].Text != "y" {
		t.Errorf("input mutated: %+v", items)
	}
}

func TestTranscriptAppend(t *testing.T) {
	tr := NewTranscript(nil)

	if err := tr.Append(TranscriptItem{Speaker: SpeakerCandidate, Text: "   "}); err != ErrEmptyTranscriptText {
		t.Errorf("Expected ErrEmptyTranscriptText, got %v", err)
	}

	if err := tr.Append(TranscriptItem{Speaker: SpeakerCandidate, Text: "I used React"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	items := tr.Items()
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Timestamp.IsZero() {
		t.Error("Expected timestamp to be filled in")
	}

	items[0].Text = "changed"
	if tr.Items()[0].Text != "I used React" {
		t.Error("Items() must return a copy")
	}
}

func TestSpeakerIsInterviewer(t *testing.T) {
	if !SpeakerInterviewer.IsInterviewer() || !Speaker("assistant").IsInterviewer() {
		t.Error("expected interviewer speakers")
	}
	if SpeakerCandidate.IsInterviewer() {
		t.Error("candidate is not the interviewer")
	}
}
