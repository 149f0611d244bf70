package realtime

import "encoding/json"

const (
	turnTakingInstructions = `You are an AI interviewer. Always ask exactly ONE concise question, then stop speaking and wait in silence for the candidate to answer. Do not chain multiple questions together. Only speak again after the candidate has spoken. If there is no candidate speech for ~20 seconds, give a short gentle nudge like "Whenever you are ready, please share your answer," then wait again. Keep a calm pace and natural pauses.`

	greetingInstructions = "Start with a brief greeting, then ask the first concise question about how the candidate solved a tough technical problem. After asking, pause and wait for their response."
)

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// SessionUpdate is the outbound session.update message.
type SessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

type SessionConfig struct {
	Instructions  string        `json:"instructions"`
	TurnDetection TurnDetection `json:"turn_detection"`
}

// ResponseCreate is the outbound response.create message.
type ResponseCreate struct {
	Type     string         `json:"type"`
	Response ResponseConfig `json:"response"`
}

type ResponseConfig struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions"`
}

// NewSessionUpdate returns the single-question turn-taking configuration.
func NewSessionUpdate() SessionUpdate {
	return SessionUpdate{
		Type: "session.update",
		Session: SessionConfig{
			Instructions: turnTakingInstructions,
			TurnDetection: TurnDetection{
				Type:              "server_vad",
				Threshold:         0.5,
				PrefixPaddingMs:   300,
				SilenceDurationMs: 800,
			},
		},
	}
}

// NewResponseCreate returns the trigger for the greeting and first question.
func NewResponseCreate() ResponseCreate {
	return ResponseCreate{
		Type: "response.create",
		Response: ResponseConfig{
			Modalities:   []string{"text", "audio"},
			Instructions: greetingInstructions,
		},
	}
}

// controlMessages returns the encoded messages sent when the data channel opens.
func controlMessages() ([][]byte, error) {
	update, err := json.Marshal(NewSessionUpdate())
	if err != nil {
		return nil, err
	}
	create, err := json.Marshal(NewResponseCreate())
	if err != nil {
		return nil, err
	}
	return [][]byte{update, create}, nil
}
