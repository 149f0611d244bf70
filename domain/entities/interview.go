package entities

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InterviewStatus represents the lifecycle status of a stored interview
type InterviewStatus string

const (
	InterviewStatusActive    InterviewStatus = "active"
	InterviewStatusCompleted InterviewStatus = "completed"
	InterviewStatusExpired   InterviewStatus = "expired"
)

// DefaultInterviewRetention is how long an interview result stays reviewable
const DefaultInterviewRetention = 30 * 24 * time.Hour

// Interview is the session result of one realtime interview. It replaces the
// browser-side transcript handoff between the interviewer and review pages.
type Interview struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID     string             `json:"session_id" bson:"session_id"`
	CandidateName string             `json:"candidate_name,omitempty" bson:"candidate_name,omitempty"`
	Role          string             `json:"role,omitempty" bson:"role,omitempty"`
	Status        InterviewStatus    `json:"status" bson:"status"`
	Transcript    []TranscriptItem   `json:"transcript" bson:"transcript"`
	Grouped       []GroupedLine      `json:"grouped" bson:"grouped"`
	Summary       *InterviewSummary  `json:"summary,omitempty" bson:"summary,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
	ExpiresAt     time.Time          `json:"expires_at" bson:"expires_at"`
}

// NewInterview creates an active interview bound to a realtime session
func NewInterview(sessionID string) *Interview {
	now := time.Now()
	return &Interview{
		ID:         primitive.NewObjectID(),
		SessionID:  sessionID,
		Status:     InterviewStatusActive,
		Transcript: make([]TranscriptItem, 0),
		Grouped:    make([]GroupedLine, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(DefaultInterviewRetention),
	}
}

// SetTranscript replaces the transcript and recomputes the grouped projection
func (i *Interview) SetTranscript(items []TranscriptItem) {
	i.Transcript = NewTranscript(items).Items()
	i.Grouped = Group(i.Transcript)
	i.touch()
}

// Complete marks the interview as finished. A nil summary keeps the one
// stored by an earlier save.
func (i *Interview) Complete(summary *InterviewSummary) {
	if summary != nil {
		i.Summary = summary
	}
	i.Status = InterviewStatusCompleted
	i.touch()
}

// Expire marks the interview as expired
func (i *Interview) Expire() {
	i.Status = InterviewStatusExpired
}

// IsExpired checks if the interview is past its retention window
func (i *Interview) IsExpired() bool {
	return time.Now().After(i.ExpiresAt) || i.Status == InterviewStatusExpired
}

func (i *Interview) touch() {
	i.UpdatedAt = time.Now()
}

// Validate validates the interview data
func (i *Interview) Validate() error {
	if i.SessionID == "" {
		return errors.New("session_id is required")
	}

	switch i.Status {
	case InterviewStatusActive, InterviewStatusCompleted, InterviewStatusExpired:
	default:
		return errors.New("invalid interview status")
	}

	for _, item := range i.Transcript {
		if item.Text == "" {
			return ErrEmptyTranscriptText
		}
	}

	return nil
}
