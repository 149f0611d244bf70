package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts audio data to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
	// InitTranscribeStreaming initializes a streaming transcription session
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate     int    `json:"sample_rate"`
	Encoding       string `json:"encoding"`
	Language       string `json:"language"`
	InterimResults bool   `json:"interim_results"`
	// Continuous keeps the stream open across utterances
	Continuous bool `json:"continuous"`
}

// RecognitionResult is one hypothesis produced by a streaming recognizer
type RecognitionResult struct {
	Text    string
	IsFinal bool
}

type SpeechToTextStreaming interface {
	Stream(data []byte) error
	// Results delivers hypotheses as they arrive and is closed when the
	// stream ends
	Results() <-chan RecognitionResult
	End() (string, error)
}
