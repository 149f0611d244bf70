package webrtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/hirewise/server/internal/realtime"
)

// ErrUnsupportedAudio is returned when AddAudio gets a LocalAudio that was
// not produced by this package.
var ErrUnsupportedAudio = errors.New("webrtc: unsupported local audio")

// RemoteAudioSink consumes the interviewer's audio track.
type RemoteAudioSink interface {
	Consume(track *webrtc.TrackRemote)
}

// PeerFactory creates pion peer connections.
type PeerFactory struct {
	sink   RemoteAudioSink
	logger *zap.Logger
}

// NewPeerFactory creates a factory. sink may be nil, in which case remote
// audio is read and discarded.
func NewPeerFactory(sink RemoteAudioSink, logger *zap.Logger) *PeerFactory {
	return &PeerFactory{sink: sink, logger: logger}
}

// NewPeer implements realtime.PeerFactory
func (f *PeerFactory) NewPeer(cfg realtime.PeerConfig) (realtime.Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: cfg.ICEServers}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	dc, err := pc.CreateDataChannel(cfg.DataChannelLabel, nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to create data channel: %w", err)
	}

	p := &Peer{
		pc:     pc,
		dc:     dc,
		logger: f.logger,
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		f.logger.Info("Remote track received",
			zap.String("kind", track.Kind().String()),
			zap.String("codec", track.Codec().MimeType))
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		if f.sink != nil {
			f.sink.Consume(track)
			return
		}
		discard(track)
	})

	pc.OnConnectionStateChange(p.handleState)

	return p, nil
}

// Peer is a pion peer connection with one audio track and one data channel.
type Peer struct {
	pc     *webrtc.PeerConnection
	dc     *webrtc.DataChannel
	logger *zap.Logger

	mu      sync.Mutex
	audio   *AudioTrack
	onState func(realtime.PeerState)
}

func (p *Peer) AddAudio(audio realtime.LocalAudio) error {
	track, ok := audio.(*AudioTrack)
	if !ok {
		return ErrUnsupportedAudio
	}

	sender, err := p.pc.AddTrack(track.track)
	if err != nil {
		return fmt.Errorf("failed to add audio track: %w", err)
	}
	go drainRTCP(sender)

	p.mu.Lock()
	p.audio = track
	p.mu.Unlock()
	return nil
}

func (p *Peer) OnConnectionStateChange(fn func(realtime.PeerState)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

func (p *Peer) OnDataChannelOpen(fn func()) {
	p.dc.OnOpen(fn)
}

func (p *Peer) OnDataChannelMessage(fn func([]byte)) {
	p.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)
		fn(data)
	})
}

// CreateOffer creates the local offer and waits for ICE gathering so the
// returned SDP carries every candidate.
func (p *Peer) CreateOffer(ctx context.Context) (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return p.pc.LocalDescription().SDP, nil
}

func (p *Peer) SetAnswer(sdp string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

// Send writes a text message on the data channel.
func (p *Peer) Send(data []byte) error {
	return p.dc.SendText(string(data))
}

func (p *Peer) Close() error {
	return p.pc.Close()
}

func (p *Peer) handleState(state webrtc.PeerConnectionState) {
	p.logger.Debug("Peer connection state", zap.String("state", state.String()))

	p.mu.Lock()
	fn, audio := p.onState, p.audio
	p.mu.Unlock()

	if state == webrtc.PeerConnectionStateConnected && audio != nil {
		audio.startStreaming()
	}
	if fn != nil {
		fn(mapState(state))
	}
}

func mapState(state webrtc.PeerConnectionState) realtime.PeerState {
	switch state {
	case webrtc.PeerConnectionStateConnecting:
		return realtime.PeerStateConnecting
	case webrtc.PeerConnectionStateConnected:
		return realtime.PeerStateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return realtime.PeerStateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return realtime.PeerStateFailed
	case webrtc.PeerConnectionStateClosed:
		return realtime.PeerStateClosed
	default:
		return realtime.PeerStateNew
	}
}

// drainRTCP reads incoming RTCP so interceptors keep working.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func discard(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}
