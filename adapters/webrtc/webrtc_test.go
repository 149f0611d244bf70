package webrtc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/hirewise/server/internal/realtime"
)

var (
	_ realtime.PeerFactory = &PeerFactory{}
	_ realtime.Peer        = &Peer{}
	_ realtime.MediaSource = &OggFileSource{}
	_ RemoteAudioSink      = &OggRecorder{}
)

func TestMapState(t *testing.T) {
	tests := []struct {
		in   webrtc.PeerConnectionState
		want realtime.PeerState
	}{
		{webrtc.PeerConnectionStateNew, realtime.PeerStateNew},
		{webrtc.PeerConnectionStateConnecting, realtime.PeerStateConnecting},
		{webrtc.PeerConnectionStateConnected, realtime.PeerStateConnected},
		{webrtc.PeerConnectionStateDisconnected, realtime.PeerStateDisconnected},
		{webrtc.PeerConnectionStateFailed, realtime.PeerStateFailed},
		{webrtc.PeerConnectionStateClosed, realtime.PeerStateClosed},
	}

	for _, tt := range tests {
		if got := mapState(tt.in); got != tt.want {
			t.Errorf("mapState(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSampleDuration(t *testing.T) {
	if got := sampleDuration(960, 0); got != 20*time.Millisecond {
		t.Errorf("sampleDuration(960, 0) = %v, want 20ms", got)
	}
	if got := sampleDuration(2880, 960); got != 40*time.Millisecond {
		t.Errorf("sampleDuration(2880, 960) = %v, want 40ms", got)
	}
	if got := sampleDuration(0, 960); got != oggPageDuration {
		t.Errorf("sampleDuration with no progress = %v, want %v", got, oggPageDuration)
	}
}

func TestOggFileSourceErrors(t *testing.T) {
	logger := zap.NewNop()

	missing := NewOggFileSource(filepath.Join(t.TempDir(), "missing.ogg"), false, logger)
	if _, err := missing.Acquire(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "not-ogg.ogg")
	if err := os.WriteFile(path, []byte("definitely not an ogg stream"), 0o600); err != nil {
		t.Fatal(err)
	}
	notOgg := NewOggFileSource(path, false, logger)
	if _, err := notOgg.Acquire(context.Background()); err == nil {
		t.Error("expected error for non-ogg file")
	}
}

type otherAudio struct{}

func (otherAudio) Close() error { return nil }

func TestPeerRejectsForeignAudio(t *testing.T) {
	factory := NewPeerFactory(nil, zap.NewNop())
	peer, err := factory.NewPeer(realtime.PeerConfig{
		ICEServers:       []string{realtime.DefaultICEServer},
		DataChannelLabel: realtime.DefaultDataChannelLabel,
	})
	if err != nil {
		t.Fatalf("NewPeer() error = %v", err)
	}
	defer peer.Close()

	if err := peer.AddAudio(otherAudio{}); !errors.Is(err, ErrUnsupportedAudio) {
		t.Errorf("AddAudio() error = %v, want ErrUnsupportedAudio", err)
	}
}

func TestOggRecorderCloseWithoutTracks(t *testing.T) {
	rec := NewOggRecorder(filepath.Join(t.TempDir(), "out.ogg"), zap.NewNop())
	if err := rec.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
