package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain"
	"github.com/hirewise/server/internal/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch SESSION_ID",
	Short: "Follow the live transcript of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		defer logger.Sync()

		if err := watch(viper.GetString("server"), args[0], logger); err != nil {
			logger.Fatal("watching the session", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

type roomMessage struct {
	Type        string          `json:"type"`
	State       string          `json:"state"`
	InterviewID string          `json:"interview_id"`
	Message     string          `json:"message"`
	Line        json.RawMessage `json:"line"`
}

func watch(server, sessionID string, logger *zap.Logger) error {
	wsURL, err := client.LiveURL(server, sessionID, "")
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed with status %d: %w", resp.StatusCode, err)
		}
		return err
	}
	defer conn.Close()

	logger.Info("Watching session", zap.String("session_id", sessionID))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	closing := make(chan struct{})
	go func() {
		<-interrupt
		close(closing)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		var msg roomMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			select {
			case <-closing:
				return nil
			default:
			}
			return err
		}

		switch msg.Type {
		case domain.MessageTypeTranscriptLine:
			var line struct {
				Speaker string `json:"speaker"`
				Text    string `json:"text"`
			}
			if err := json.Unmarshal(msg.Line, &line); err != nil {
				logger.Warn("Malformed transcript line", zap.Error(err))
				continue
			}
			fmt.Printf("%s: %s\n", line.Speaker, line.Text)
		case domain.MessageTypeStateChange:
			fmt.Printf("[%s]\n", msg.State)
		case domain.MessageTypeSessionEnded:
			fmt.Printf("[session ended, interview %s]\n", msg.InterviewID)
			return nil
		case domain.MessageTypeError:
			logger.Warn("Server error", zap.String("message", msg.Message))
		}
	}
}
