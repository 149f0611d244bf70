package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

const (
	DefaultModel            = "gpt-4o-realtime-preview-2024-12-17"
	DefaultDataChannelLabel = "oai-events"
	DefaultICEServer        = "stun:stun.l.google.com:19302"

	defaultRecognizerRestartDelay = 250 * time.Millisecond
	eventQueueSize                = 256
)

var errMalformedAnswer = errors.New("answer is not an SDP document")

// LocalAudio is an acquired local audio input. The concrete type is owned by
// the Peer implementation that attaches it.
type LocalAudio interface {
	Close() error
}

// MediaSource acquires the local audio input (the microphone).
type MediaSource interface {
	Acquire(ctx context.Context) (LocalAudio, error)
}

// PeerConfig configures a new peer connection.
type PeerConfig struct {
	ICEServers       []string
	DataChannelLabel string
}

// Peer is a peer connection with one outbound audio track, one inbound audio
// track and one ordered data channel. Callbacks must be registered before
// CreateOffer.
type Peer interface {
	AddAudio(audio LocalAudio) error
	OnConnectionStateChange(fn func(PeerState))
	OnDataChannelOpen(fn func())
	OnDataChannelMessage(fn func([]byte))
	// CreateOffer returns the local SDP once candidate gathering completes.
	CreateOffer(ctx context.Context) (string, error)
	SetAnswer(sdp string) error
	Send(data []byte) error
	Close() error
}

// PeerFactory creates peer connections.
type PeerFactory interface {
	NewPeer(cfg PeerConfig) (Peer, error)
}

// Recognizer is the local speech recognition fallback. Each Start begins one
// recognition run whose results channel is closed when the run ends.
type Recognizer interface {
	Start(ctx context.Context) (<-chan repositories.RecognitionResult, error)
}

// Config holds adapter settings.
type Config struct {
	// Model is used when the token service does not name one.
	Model                  string
	ICEServers             []string
	DataChannelLabel       string
	RecognizerRestartDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if len(c.ICEServers) == 0 {
		c.ICEServers = []string{DefaultICEServer}
	}
	if c.DataChannelLabel == "" {
		c.DataChannelLabel = DefaultDataChannelLabel
	}
	if c.RecognizerRestartDelay <= 0 {
		c.RecognizerRestartDelay = defaultRecognizerRestartDelay
	}
	return c
}

// Adapter bridges a realtime voice session into a transcript. At most one
// session is active per adapter. Transcript listeners run on the adapter's
// event goroutine in arrival order and must not call Stop synchronously.
type Adapter struct {
	cfg        Config
	media      MediaSource
	tokens     repositories.RealtimeSessions
	peers      PeerFactory
	signaler   repositories.Signaler
	recognizer Recognizer
	logger     *zap.Logger

	mu             sync.Mutex
	state          State
	current        *session
	lastSession    *entities.RealtimeSession
	transcript     *entities.Transcript
	lineListeners  []func(entities.TranscriptItem)
	stateListeners []func(State)
}

// NewAdapter creates an idle adapter. recognizer may be nil.
func NewAdapter(
	cfg Config,
	media MediaSource,
	tokens repositories.RealtimeSessions,
	peers PeerFactory,
	signaler repositories.Signaler,
	recognizer Recognizer,
	logger *zap.Logger,
) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		cfg:        cfg.withDefaults(),
		media:      media,
		tokens:     tokens,
		peers:      peers,
		signaler:   signaler,
		recognizer: recognizer,
		logger:     logger,
		state:      StateIdle,
		transcript: entities.NewTranscript(nil),
	}
}

// OnTranscriptLine registers a callback invoked once per completed utterance.
func (a *Adapter) OnTranscriptLine(fn func(entities.TranscriptItem)) {
	a.mu.Lock()
	a.lineListeners = append(a.lineListeners, fn)
	a.mu.Unlock()
}

// OnStateChange registers a callback invoked after every state transition.
func (a *Adapter) OnStateChange(fn func(State)) {
	a.mu.Lock()
	a.stateListeners = append(a.stateListeners, fn)
	a.mu.Unlock()
}

// State returns the current connection state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Session returns the credential of the most recent session, or nil.
func (a *Adapter) Session() *entities.RealtimeSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSession
}

// Transcript returns a copy of all lines received so far.
func (a *Adapter) Transcript() []entities.TranscriptItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript.Items()
}

// Grouped returns the transcript with consecutive same-speaker lines merged.
func (a *Adapter) Grouped() []entities.GroupedLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript.Grouped()
}

// Start opens a realtime session. It returns ErrAlreadyConnected while a
// session is connecting or connected, and one of MediaAccessError,
// SessionCreationError or SignalingError when the session cannot be opened.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state.Active() {
		a.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s := newSession(cancel, a.logger)
	s.normalizer = NewNormalizer(a.appendLine, a.logger)
	a.current = s
	a.setStateLocked(StateConnecting)
	a.mu.Unlock()
	a.notifyState(StateConnecting)

	go a.run(runCtx, s)

	connectCtx, cancelConnect := context.WithCancel(ctx)
	defer cancelConnect()
	stop := context.AfterFunc(runCtx, cancelConnect)
	defer stop()

	if err := a.connect(connectCtx, s); err != nil {
		stopped := runCtx.Err() != nil && ctx.Err() == nil
		a.teardown(s)
		if stopped {
			return fmt.Errorf("realtime: start aborted by stop: %w", context.Canceled)
		}
		a.logger.Error("Failed to start realtime session", zap.Error(err))
		return err
	}

	a.logger.Info("Realtime session negotiated", zap.String("session_id", s.realtime.ID))
	return nil
}

func (a *Adapter) connect(ctx context.Context, s *session) error {
	audio, err := a.media.Acquire(ctx)
	if err != nil {
		return &MediaAccessError{Err: err}
	}
	if !s.attachAudio(audio) {
		return &MediaAccessError{Err: context.Canceled}
	}

	rs, err := a.tokens.CreateSession(ctx)
	if err != nil {
		return &SessionCreationError{Err: err}
	}
	if rs == nil || rs.ClientSecret == "" {
		return &SessionCreationError{Err: errors.New("response has no client secret")}
	}
	s.realtime = rs
	a.mu.Lock()
	a.lastSession = rs
	a.mu.Unlock()

	peer, err := a.peers.NewPeer(PeerConfig{
		ICEServers:       a.cfg.ICEServers,
		DataChannelLabel: a.cfg.DataChannelLabel,
	})
	if err != nil {
		return &SignalingError{Err: fmt.Errorf("create peer: %w", err)}
	}
	if !s.attachPeer(peer) {
		_ = peer.Close()
		return &SignalingError{Err: context.Canceled}
	}

	peer.OnConnectionStateChange(s.postPeerState)
	peer.OnDataChannelOpen(s.postOpen)
	peer.OnDataChannelMessage(s.postMessage)

	if err := peer.AddAudio(audio); err != nil {
		return &SignalingError{Err: fmt.Errorf("attach audio: %w", err)}
	}

	offer, err := peer.CreateOffer(ctx)
	if err != nil {
		return &SignalingError{Err: fmt.Errorf("create offer: %w", err)}
	}

	model := rs.Model
	if model == "" {
		model = a.cfg.Model
	}
	answer, err := a.signaler.ExchangeSDP(ctx, model, rs.ClientSecret, offer)
	if err != nil {
		return &SignalingError{Err: err}
	}
	if !strings.HasPrefix(strings.TrimSpace(answer), "v=") {
		return &SignalingError{Err: errMalformedAnswer}
	}
	if err := peer.SetAnswer(answer); err != nil {
		return &SignalingError{Err: fmt.Errorf("set answer: %w", err)}
	}

	s.markNegotiated()
	return nil
}

// Stop tears down the active session. It is safe to call at any time and
// any number of times.
func (a *Adapter) Stop() {
	a.mu.Lock()
	s := a.current
	a.mu.Unlock()
	if s == nil {
		return
	}
	a.teardown(s)
	<-s.done
}

// teardown releases the session resources and moves to Disconnected if s is
// still the current session. It does not wait for the event goroutine.
func (a *Adapter) teardown(s *session) {
	s.close()

	a.mu.Lock()
	if a.current != s {
		a.mu.Unlock()
		return
	}
	a.current = nil
	changed := a.setStateLocked(StateDisconnected)
	a.mu.Unlock()

	if changed {
		a.notifyState(StateDisconnected)
	}
}

// run owns the normalizer and serializes every inbound event of s.
func (a *Adapter) run(ctx context.Context, s *session) {
	defer close(s.done)

	var (
		opened     = s.opened
		negotiated = s.negotiated
		results    <-chan repositories.RecognitionResult
		restart    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			s.normalizer.Reset()
			return

		case <-opened:
			opened = nil
			a.sendControl(s)

		case msg := <-s.messages:
			s.normalizer.Handle(msg)

		case st := <-s.peerStates:
			a.handlePeerState(s, st)

		case <-negotiated:
			negotiated = nil
			results = a.startRecognizer(ctx)

		case res, ok := <-results:
			if !ok {
				results = nil
				if a.isCurrent(s) {
					restart = time.After(a.cfg.RecognizerRestartDelay)
				}
				continue
			}
			if res.IsFinal {
				s.normalizer.PushCandidate(res.Text)
			}

		case <-restart:
			restart = nil
			if a.isCurrent(s) {
				a.logger.Debug("Restarting speech recognizer")
				results = a.startRecognizer(ctx)
			}
		}
	}
}

func (a *Adapter) sendControl(s *session) {
	msgs, err := controlMessages()
	if err != nil {
		a.logger.Debug("Failed to encode control messages", zap.Error(err))
		return
	}
	peer := s.currentPeer()
	if peer == nil {
		return
	}
	for _, msg := range msgs {
		if err := peer.Send(msg); err != nil {
			a.logger.Debug("Failed to send control message", zap.Error(err))
		}
	}
}

func (a *Adapter) handlePeerState(s *session, st PeerState) {
	a.logger.Debug("Peer connection state changed", zap.Stringer("state", st))

	switch st {
	case PeerStateConnected:
		a.mu.Lock()
		changed := a.current == s && a.setStateLocked(StateConnected)
		a.mu.Unlock()
		if changed {
			a.notifyState(StateConnected)
		}
	case PeerStateDisconnected:
		// ICE may recover; keep the peer and wait for connected again
		a.mu.Lock()
		changed := a.current == s && a.setStateLocked(StateConnecting)
		a.mu.Unlock()
		if changed {
			a.notifyState(StateConnecting)
		}
	case PeerStateFailed, PeerStateClosed:
		a.teardown(s)
	}
}

func (a *Adapter) startRecognizer(ctx context.Context) <-chan repositories.RecognitionResult {
	if a.recognizer == nil {
		return nil
	}
	results, err := a.recognizer.Start(ctx)
	if err != nil {
		a.logger.Debug("Speech recognizer unavailable", zap.Error(err))
		return nil
	}
	return results
}

func (a *Adapter) isCurrent(s *session) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current == s && a.state.Active()
}

func (a *Adapter) appendLine(item entities.TranscriptItem) {
	a.mu.Lock()
	if err := a.transcript.Append(item); err != nil {
		a.mu.Unlock()
		return
	}
	listeners := append([]func(entities.TranscriptItem){}, a.lineListeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(item)
	}
}

func (a *Adapter) setStateLocked(to State) bool {
	if !canTransition(a.state, to) {
		return false
	}
	a.state = to
	return true
}

func (a *Adapter) notifyState(st State) {
	a.mu.Lock()
	listeners := append([]func(State){}, a.stateListeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// session is the handle of one Start..Stop lifetime.
type session struct {
	cancel     context.CancelFunc
	normalizer *Normalizer
	realtime   *entities.RealtimeSession
	logger     *zap.Logger

	messages   chan []byte
	peerStates chan PeerState
	opened     chan struct{}
	negotiated chan struct{}
	done       chan struct{}

	openOnce       sync.Once
	negotiatedOnce sync.Once
	closeOnce      sync.Once

	mu     sync.Mutex
	closed bool
	peer   Peer
	audio  LocalAudio
}

func newSession(cancel context.CancelFunc, logger *zap.Logger) *session {
	return &session{
		cancel:     cancel,
		logger:     logger,
		messages:   make(chan []byte, eventQueueSize),
		peerStates: make(chan PeerState, 8),
		opened:     make(chan struct{}),
		negotiated: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *session) attachAudio(audio LocalAudio) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = audio.Close()
		return false
	}
	s.audio = audio
	return true
}

func (s *session) attachPeer(peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.peer = peer
	return true
}

func (s *session) currentPeer() Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

func (s *session) postMessage(data []byte) {
	select {
	case s.messages <- data:
	case <-s.done:
	}
}

func (s *session) postPeerState(st PeerState) {
	select {
	case s.peerStates <- st:
	case <-s.done:
	}
}

func (s *session) postOpen() {
	s.openOnce.Do(func() { close(s.opened) })
}

func (s *session) markNegotiated() {
	s.negotiatedOnce.Do(func() { close(s.negotiated) })
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		s.closed = true
		peer, audio := s.peer, s.audio
		s.mu.Unlock()

		if peer != nil {
			if err := peer.Close(); err != nil {
				s.logger.Debug("Failed to close peer", zap.Error(err))
			}
		}
		if audio != nil {
			if err := audio.Close(); err != nil {
				s.logger.Debug("Failed to release audio input", zap.Error(err))
			}
		}
	})
}
