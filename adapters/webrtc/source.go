package webrtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
	"go.uber.org/zap"

	"github.com/hirewise/server/internal/realtime"
)

const (
	opusSampleRate  = 48000
	oggPageDuration = 20 * time.Millisecond
)

// OggFileSource stands in for a microphone by streaming an Ogg/Opus file.
type OggFileSource struct {
	path   string
	loop   bool
	logger *zap.Logger
}

// NewOggFileSource creates a source for path. With loop set the file is
// replayed from the start when it ends.
func NewOggFileSource(path string, loop bool, logger *zap.Logger) *OggFileSource {
	return &OggFileSource{path: path, loop: loop, logger: logger}
}

// Acquire implements realtime.MediaSource
func (s *OggFileSource) Acquire(ctx context.Context) (realtime.LocalAudio, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio input: %w", err)
	}

	reader, _, err := oggreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("audio input is not ogg: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"hirewise-candidate",
	)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create audio track: %w", err)
	}

	return &AudioTrack{
		track:  track,
		file:   file,
		reader: reader,
		loop:   s.loop,
		stop:   make(chan struct{}),
		logger: s.logger,
	}, nil
}

// AudioTrack is a local Opus track fed from an Ogg file. Samples are written
// once the peer connection is connected.
type AudioTrack struct {
	track  *webrtc.TrackLocalStaticSample
	file   *os.File
	reader *oggreader.OggReader
	loop   bool
	logger *zap.Logger

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

func (t *AudioTrack) startStreaming() {
	t.startOnce.Do(func() {
		t.wg.Add(1)
		go t.pump()
	})
}

func (t *AudioTrack) pump() {
	defer t.wg.Done()

	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}

		page, header, err := t.reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if !t.loop || t.rewind() != nil {
				t.logger.Info("Audio input finished")
				return
			}
			lastGranule = 0
			continue
		}
		if err != nil {
			t.logger.Warn("Failed to read audio page", zap.Error(err))
			return
		}

		duration := sampleDuration(header.GranulePosition, lastGranule)
		lastGranule = header.GranulePosition

		if err := t.track.WriteSample(media.Sample{Data: page, Duration: duration}); err != nil {
			t.logger.Debug("Failed to write audio sample", zap.Error(err))
		}
	}
}

func (t *AudioTrack) rewind() error {
	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	t.reader.ResetReader(func(int64) io.Reader { return t.file })
	// OpusHead was consumed by NewWith on the first pass
	_, _, err := t.reader.ParseNextPage()
	return err
}

// Close stops streaming and releases the file.
func (t *AudioTrack) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stop)
		t.wg.Wait()
		err = t.file.Close()
	})
	return err
}

// sampleDuration converts the granule advance of an Ogg page into playback
// time at the Opus clock rate.
func sampleDuration(granule, last uint64) time.Duration {
	if granule <= last {
		return oggPageDuration
	}
	samples := granule - last
	return time.Duration(samples) * time.Second / opusSampleRate
}
