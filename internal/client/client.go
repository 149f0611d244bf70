// Package client talks to the hirewise server from the interviewer CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

const defaultTimeout = 60 * time.Second

// ErrNoInterview is returned when the server has no stored interview
var ErrNoInterview = errors.New("no interview found")

// ServerError is a non-2xx response from the server
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the hirewise HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for the server at baseURL
func New(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// BaseURL returns the server address the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

type sessionResponse struct {
	SessionID    string `json:"session_id"`
	ResultToken  string `json:"result_token"`
	Model        string `json:"model"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// CreateSession asks the server to mint an ephemeral realtime credential.
// It satisfies repositories.RealtimeSessions so the adapter can use the
// server as its token service.
func (c *Client) CreateSession(ctx context.Context) (*entities.RealtimeSession, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/realtime-session", "", nil, &raw); err != nil {
		return nil, err
	}

	var parsed sessionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if parsed.ClientSecret.Value == "" {
		return nil, errors.New("session response carries no client secret")
	}

	c.logger.Debug("Realtime session received", zap.String("session_id", parsed.SessionID))
	return &entities.RealtimeSession{
		ID:           parsed.SessionID,
		Model:        parsed.Model,
		ClientSecret: parsed.ClientSecret.Value,
		ExpiresAt:    parsed.ClientSecret.ExpiresAt,
		ResultToken:  parsed.ResultToken,
		Payload:      raw,
	}, nil
}

var _ repositories.RealtimeSessions = (*Client)(nil)

// SaveRequest is the interview result submitted at the end of a session
type SaveRequest struct {
	CandidateName string                    `json:"candidate_name,omitempty"`
	Role          string                    `json:"role,omitempty"`
	Transcript    []entities.TranscriptItem `json:"transcript"`
	Summarize     bool                      `json:"summarize"`
}

// Interview is a stored interview as returned by the server
type Interview struct {
	entities.Interview
	QAPairs []entities.QAPair `json:"qa_pairs"`
}

// SaveInterview stores the result of the session the token was issued for
func (c *Client) SaveInterview(ctx context.Context, resultToken string, req SaveRequest) (*Interview, error) {
	var out Interview
	if err := c.do(ctx, http.MethodPost, "/api/interviews", resultToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestInterview returns the most recently updated interview
func (c *Client) LatestInterview(ctx context.Context) (*Interview, error) {
	var out Interview
	err := c.do(ctx, http.MethodGet, "/api/interviews/latest", "", nil, &out)
	var serr *ServerError
	if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
		return nil, ErrNoInterview
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		c.logger.Debug("Server request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &ServerError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
