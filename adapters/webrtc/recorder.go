package webrtc

import (
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
	"go.uber.org/zap"
)

// OggRecorder writes the interviewer's audio to an Ogg/Opus file.
type OggRecorder struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	writer *oggwriter.OggWriter
	wg     sync.WaitGroup
}

// NewOggRecorder creates a recorder writing to path. The file is created
// when the first remote audio track arrives.
func NewOggRecorder(path string, logger *zap.Logger) *OggRecorder {
	return &OggRecorder{path: path, logger: logger}
}

// Consume implements RemoteAudioSink
func (r *OggRecorder) Consume(track *webrtc.TrackRemote) {
	r.mu.Lock()
	if r.writer == nil {
		w, err := oggwriter.New(r.path, opusSampleRate, 2)
		if err != nil {
			r.mu.Unlock()
			r.logger.Error("Failed to create recording", zap.String("path", r.path), zap.Error(err))
			discard(track)
			return
		}
		r.writer = w
	}
	w := r.writer
	r.wg.Add(1)
	r.mu.Unlock()

	defer r.wg.Done()
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if err := w.WriteRTP(packet); err != nil {
			r.logger.Debug("Failed to write recorded packet", zap.Error(err))
			return
		}
	}
}

// Close waits for track readers to finish and finalizes the file.
func (r *OggRecorder) Close() error {
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	return err
}
