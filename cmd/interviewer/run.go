package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hirewise/server/adapters/openai"
	"github.com/hirewise/server/adapters/stt"
	"github.com/hirewise/server/adapters/webrtc"
	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/client"
	"github.com/hirewise/server/internal/realtime"
)

const (
	PromptStop     = "Stop the interview"
	PromptContinue = "Keep going"
	PromptYes      = "Yes"
	PromptNo       = "No"
)

// RunConfig holds the settings of the run command
type RunConfig struct {
	Server        string   `mapstructure:"server"`
	Audio         string   `mapstructure:"audio"`
	Loop          bool     `mapstructure:"loop"`
	Record        string   `mapstructure:"record"`
	OpenAIBaseURL string   `mapstructure:"openai-base-url"`
	Model         string   `mapstructure:"model"`
	ICEServers    []string `mapstructure:"ice-servers"`
	Fallback      string   `mapstructure:"stt-fallback"`
	FallbackAudio string   `mapstructure:"stt-audio"`
	Language      string   `mapstructure:"stt-language"`
	Candidate     string   `mapstructure:"candidate"`
	Role          string   `mapstructure:"role"`
	Summarize     bool     `mapstructure:"summarize"`
	AutoSave      bool     `mapstructure:"yes"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a realtime interview session and stream its transcript",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("audio", "a", "", "ogg/opus file used as the microphone")
	runCmd.Flags().Bool("loop", false, "replay the audio file when it ends")
	runCmd.Flags().String("record", "", "write the interviewer's voice to this ogg file")
	runCmd.Flags().String("openai-base-url", openai.DefaultBaseURL, "realtime vendor API address")
	runCmd.Flags().String("model", realtime.DefaultModel, "realtime model when the server does not name one")
	runCmd.Flags().StringSlice("ice-servers", []string{realtime.DefaultICEServer}, "STUN/TURN servers")
	runCmd.Flags().String("stt-fallback", "", "local speech recognition fallback: google or mock")
	runCmd.Flags().String("stt-audio", "", "raw LINEAR16 audio fed to the fallback recognizer")
	runCmd.Flags().String("stt-language", "en-US", "fallback recognizer language")
	runCmd.Flags().String("candidate", "", "candidate name stored with the result")
	runCmd.Flags().String("role", "", "role the candidate interviews for")
	runCmd.Flags().Bool("summarize", true, "ask the server to summarize the transcript when saving")
	runCmd.Flags().BoolP("yes", "y", false, "save the result without asking")

	for _, name := range []string{
		"audio", "loop", "record", "openai-base-url", "model", "ice-servers",
		"stt-fallback", "stt-audio", "stt-language", "candidate", "role", "summarize", "yes",
	} {
		viper.BindPFlag(name, runCmd.Flags().Lookup(name))
	}
}

func getRunConfig() (*RunConfig, error) {
	var config RunConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.Audio == "" {
		return nil, errors.New("audio input is required (--audio or HIREWISE_AUDIO)")
	}
	return &config, nil
}

func run(cmd *cobra.Command) {
	logger := newLogger()
	defer logger.Sync()

	config, err := getRunConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := client.New(config.Server, logger)

	var sink webrtc.RemoteAudioSink
	if config.Record != "" {
		recorder := webrtc.NewOggRecorder(config.Record, logger)
		defer recorder.Close()
		sink = recorder
	}

	recognizer, closeRecognizer, err := newRecognizer(config, logger)
	if err != nil {
		logger.Fatal("creating the fallback recognizer", zap.Error(err))
	}
	defer closeRecognizer()

	adapter := realtime.NewAdapter(
		realtime.Config{Model: config.Model, ICEServers: config.ICEServers},
		webrtc.NewOggFileSource(config.Audio, config.Loop, logger),
		server,
		webrtc.NewPeerFactory(sink, logger),
		openai.NewRealtimeClient("", config.OpenAIBaseURL, config.Model, logger),
		recognizer,
		logger,
	)

	relay := &liveRelay{logger: logger}
	ended := make(chan struct{})
	var endOnce sync.Once

	adapter.OnTranscriptLine(func(line entities.TranscriptItem) {
		fmt.Printf("%s: %s\n", line.Speaker, line.Text)
		relay.line(line)
	})
	adapter.OnStateChange(func(state realtime.State) {
		logger.Info("Connection state changed", zap.Stringer("state", state))
		relay.state(state.String())
		if state == realtime.StateDisconnected {
			endOnce.Do(func() { close(ended) })
		}
	})

	if err := adapter.Start(ctx); err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}

	session := adapter.Session()
	if live, err := client.DialLive(server.BaseURL(), session.ID, session.ResultToken, logger); err != nil {
		logger.Warn("Live transcript unavailable", zap.Error(err))
	} else {
		relay.attach(live)
		defer live.Close()
	}

	fmt.Println("Interview started. Transcript lines appear below.")

	stopRequested := make(chan struct{})
	go func() {
		prompt := promptui.Select{
			Label: "Interview in progress",
			Items: []string{PromptStop, PromptContinue},
		}
		for {
			_, action, err := prompt.Run()
			if err != nil || action == PromptStop {
				close(stopRequested)
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Interrupted")
	case <-stopRequested:
	case <-ended:
		logger.Warn("Connection lost")
	}

	adapter.Stop()
	relay.state(realtime.StateDisconnected.String())

	transcript := adapter.Transcript()
	logger.Info("Interview ended", zap.Int("lines", len(transcript)))
	if len(transcript) == 0 {
		return
	}

	if !config.AutoSave && !confirm("Save the interview result?") {
		return
	}

	saveCtx, saveCancel := context.WithCancel(context.Background())
	defer saveCancel()
	result, err := server.SaveInterview(saveCtx, session.ResultToken, client.SaveRequest{
		CandidateName: config.Candidate,
		Role:          config.Role,
		Transcript:    transcript,
		Summarize:     config.Summarize,
	})
	if err != nil {
		logger.Fatal("saving the interview", zap.Error(err))
	}

	logger.Info("Interview saved", zap.String("interview_id", result.ID.Hex()))
	printInterview(result)
}

func confirm(label string) bool {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}
	_, answer, err := prompt.Run()
	return err == nil && answer == PromptYes
}

// newRecognizer builds the local speech fallback, or returns a nil
// recognizer when none is configured.
func newRecognizer(config *RunConfig, logger *zap.Logger) (realtime.Recognizer, func(), error) {
	noop := func() {}
	if config.Fallback == "" || config.FallbackAudio == "" {
		return nil, noop, nil
	}

	var engine repositories.SpeechToText
	switch config.Fallback {
	case "google":
		engine = &stt.GoogleSpeechToText{}
	case "mock":
		engine = stt.NewMockSpeechToText(logger)
	default:
		return nil, noop, fmt.Errorf("unknown stt fallback %q", config.Fallback)
	}

	audio, err := os.Open(config.FallbackAudio)
	if err != nil {
		return nil, noop, err
	}

	audioConfig := stt.DefaultRecognizerConfig
	if config.Language != "" {
		audioConfig.Language = config.Language
	}
	r := stt.NewRecognizer(engine, audio, audioConfig, logger)
	return r, func() { audio.Close() }, nil
}

// liveRelay forwards adapter output to the session room. Lines produced
// before the room is joined are held and flushed on attach.
type liveRelay struct {
	mu      sync.Mutex
	live    *client.LivePublisher
	pending []entities.TranscriptItem
	logger  *zap.Logger
}

func (r *liveRelay) attach(live *client.LivePublisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = live
	for _, line := range r.pending {
		r.send(line)
	}
	r.pending = nil
	if err := live.SendState(realtime.StateConnected.String()); err != nil {
		r.logger.Debug("Live state not sent", zap.Error(err))
	}
}

func (r *liveRelay) line(line entities.TranscriptItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		r.pending = append(r.pending, line)
		return
	}
	r.send(line)
}

func (r *liveRelay) send(line entities.TranscriptItem) {
	if err := r.live.SendLine(line); err != nil {
		r.logger.Debug("Live line not sent", zap.Error(err))
	}
}

func (r *liveRelay) state(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		return
	}
	if err := r.live.SendState(state); err != nil {
		r.logger.Debug("Live state not sent", zap.Error(err))
	}
}
