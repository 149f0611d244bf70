package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"

	realtimeVoice        = "verse"
	realtimeInstructions = `You are a professional technical interviewer. Conduct a structured interview with concise, natural speech. 
Ask one question at a time and wait for the candidate to finish before proceeding. Probe for depth, reasoning, and examples. 
Track key points, skills, concerns, and notable quotes during the conversation for later summarization.`
)

// APIError is a non-2xx reply from the vendor.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

// RealtimeClient talks to the realtime session and signaling endpoints.
type RealtimeClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRealtimeClient creates a client. apiKey is only needed for
// CreateSession; ExchangeSDP authenticates with the ephemeral key.
func NewRealtimeClient(apiKey, baseURL, model string, logger *zap.Logger) *RealtimeClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RealtimeClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type createSessionRequest struct {
	Model        string   `json:"model"`
	Voice        string   `json:"voice"`
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions"`
}

type createSessionResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// CreateSession mints an ephemeral realtime credential.
func (c *RealtimeClient) CreateSession(ctx context.Context) (*entities.RealtimeSession, error) {
	if c.apiKey == "" {
		return nil, repositories.ErrMissingAPIKey
	}

	body, err := json.Marshal(createSessionRequest{
		Model:        c.model,
		Voice:        realtimeVoice,
		Modalities:   []string{"audio", "text"},
		Instructions: realtimeInstructions,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/realtime/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	payload, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create realtime session: %w", err)
	}

	var parsed createSessionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode realtime session: %w", err)
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}

	c.logger.Info("Realtime session created",
		zap.String("vendor_session_id", parsed.ID),
		zap.String("model", model))

	return &entities.RealtimeSession{
		Model:        model,
		ClientSecret: parsed.ClientSecret.Value,
		ExpiresAt:    parsed.ClientSecret.ExpiresAt,
		Payload:      payload,
	}, nil
}

// ExchangeSDP posts the local offer and returns the vendor's SDP answer.
func (c *RealtimeClient) ExchangeSDP(ctx context.Context, model, ephemeralKey, offer string) (string, error) {
	if model == "" {
		model = c.model
	}
	endpoint := c.baseURL + "/realtime?model=" + url.QueryEscape(model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offer))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+ephemeralKey)
	req.Header.Set("Content-Type", "application/sdp")

	answer, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("sdp exchange failed: %w", err)
	}
	return string(answer), nil
}

func (c *RealtimeClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Realtime request rejected",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidAPIKey, apiErr)
		}
		return nil, apiErr
	}
	return body, nil
}
