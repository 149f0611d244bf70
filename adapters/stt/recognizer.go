package stt

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/repositories"
)

const (
	// 100ms of 16kHz mono LINEAR16
	defaultChunkSize     = 3200
	defaultChunkInterval = 100 * time.Millisecond
	// Google closes streaming requests after roughly five minutes
	defaultMaxRunDuration = 290 * time.Second
)

// DefaultRecognizerConfig mirrors a continuous browser recognizer.
var DefaultRecognizerConfig = repositories.AudioConfig{
	SampleRate:     16000,
	Encoding:       "LINEAR16",
	Language:       "en-US",
	InterimResults: true,
	Continuous:     true,
}

// Recognizer feeds a shared audio stream to a SpeechToText engine, one
// bounded run at a time. Consecutive runs continue where the previous run
// stopped reading.
type Recognizer struct {
	stt    repositories.SpeechToText
	config repositories.AudioConfig
	logger *zap.Logger

	chunkSize      int
	chunkInterval  time.Duration
	maxRunDuration time.Duration

	mu        sync.Mutex
	audio     io.Reader
	exhausted bool
}

// ErrAudioExhausted is returned by Start once the audio stream has ended.
var ErrAudioExhausted = errors.New("stt: recognizer audio exhausted")

// NewRecognizer creates a recognizer reading raw audio from audio.
func NewRecognizer(engine repositories.SpeechToText, audio io.Reader, config repositories.AudioConfig, logger *zap.Logger) *Recognizer {
	return &Recognizer{
		stt:            engine,
		config:         config,
		logger:         logger,
		chunkSize:      defaultChunkSize,
		chunkInterval:  defaultChunkInterval,
		maxRunDuration: defaultMaxRunDuration,
		audio:          audio,
	}
}

// Start begins one recognition run. The returned channel is closed when the
// run ends: audio exhausted, the engine stopped, the run hit its maximum
// duration or ctx was cancelled.
func (r *Recognizer) Start(ctx context.Context) (<-chan repositories.RecognitionResult, error) {
	r.mu.Lock()
	exhausted := r.exhausted
	r.mu.Unlock()
	if exhausted {
		return nil, ErrAudioExhausted
	}

	runCtx, cancel := context.WithTimeout(ctx, r.maxRunDuration)

	stream, err := r.stt.InitTranscribeStreaming(runCtx, r.config)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan repositories.RecognitionResult, 16)

	go r.feed(runCtx, stream)
	go func() {
		defer cancel()
		defer close(out)
		for res := range stream.Results() {
			select {
			case out <- res:
			case <-runCtx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (r *Recognizer) feed(ctx context.Context, stream repositories.SpeechToTextStreaming) {
	defer func() {
		if _, err := stream.End(); err != nil {
			r.logger.Debug("Recognition run ended", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(r.chunkInterval)
	defer ticker.Stop()

	buf := make([]byte, r.chunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := r.read(buf)
		if n > 0 {
			if sendErr := stream.Stream(buf[:n]); sendErr != nil {
				r.logger.Debug("Failed to stream audio to recognizer", zap.Error(sendErr))
				return
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.mu.Lock()
			r.exhausted = true
			r.mu.Unlock()
			return
		}
		if err != nil {
			r.logger.Warn("Failed to read recognizer audio", zap.Error(err))
			return
		}
	}
}

func (r *Recognizer) read(buf []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return io.ReadFull(r.audio, buf)
}
