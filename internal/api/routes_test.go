package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hirewise/server/adapters/kafka"
	"github.com/hirewise/server/adapters/memory"
	"github.com/hirewise/server/adapters/openai"
	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/auth"
	"github.com/hirewise/server/internal/metrics"
	"github.com/hirewise/server/internal/websocket"
	"github.com/hirewise/server/usecase"
)

type stubLLM struct {
	content string
	err     error
}

func (l *stubLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (*repositories.Completion, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &repositories.Completion{
		Content: l.content,
		Usage:   entities.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	}, nil
}

type stubSessions struct {
	payload string
	err     error
}

func (s *stubSessions) CreateSession(ctx context.Context) (*entities.RealtimeSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entities.RealtimeSession{
		Model:        "gpt-realtime",
		ClientSecret: "ek_test",
		Payload:      json.RawMessage(s.payload),
	}, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (*entities.ExtractedDocument, error) {
	return &entities.ExtractedDocument{Text: "resume text"}, nil
}

type testServer struct {
	e        *echo.Echo
	llm      *stubLLM
	sessions *stubSessions
	tokens   *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	llm := &stubLLM{content: "ok"}
	sessions := &stubSessions{payload: `{"client_secret":{"value":"ek_test"},"model":"gpt-realtime"}`}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	events := kafka.New(nil, m, logger)

	interviews := usecase.NewInterviewService(sessions, memory.NewInterviewRepository(), tokens, llm, "", events, m, logger)
	resumes := usecase.NewResumeService(stubExtractor{}, llm, "", m, logger)
	assistant := usecase.NewAssistantService(memory.NewGuidelinesRepository(), llm, "", m, logger)

	hub := websocket.NewHub(interviews, m, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	e := echo.New()
	InitRoutes(e, NewHandler(interviews, resumes, assistant, tokens, hub, logger), m)

	return &testServer{e: e, llm: llm, sessions: sessions, tokens: tokens}
}

func (s *testServer) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestUsageOnGet(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/api/realtime-session", http.StatusMethodNotAllowed, "Use POST to create an ephemeral session"},
		{"/api/chat", http.StatusOK, "Use POST { question } to chat."},
		{"/api/summarize-interview", http.StatusMethodNotAllowed, "Use POST with a transcript to summarize."},
		{"/api/analyze-resume", http.StatusMethodNotAllowed, "Use POST method to analyze resume text"},
		{"/api/extract-text", http.StatusMethodNotAllowed, "Use POST method to upload a resume"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(http.MethodGet, tt.path, "", nil)
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, rec.Code)
			}
			var body UsageResponse
			decodeBody(t, rec, &body)
			if body.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, body.Message)
			}
		})
	}
}

func TestCreateRealtimeSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/realtime-session", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if _, ok := body["client_secret"]; !ok {
		t.Error("Expected vendor payload to be forwarded")
	}
	sessionID, _ := body["session_id"].(string)
	if sessionID == "" {
		t.Fatal("Expected session_id in response")
	}
	token, _ := body["result_token"].(string)
	claims, err := s.tokens.ValidateResultToken(token)
	if err != nil {
		t.Fatalf("Expected a valid result token, got %v", err)
	}
	if claims.SessionID != sessionID {
		t.Errorf("Expected token for session %s, got %s", sessionID, claims.SessionID)
	}
}

func TestCreateRealtimeSessionErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		details string
	}{
		{"missing key", repositories.ErrMissingAPIKey, "OPENAI_API_KEY is not configured.", ""},
		{"vendor error", &openai.APIError{StatusCode: 401, Body: `{"error":"bad key"}`}, "Failed to create realtime session", `{"error":"bad key"}`},
		{"network", errors.New("dial tcp: refused"), "Unable to create realtime session", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.sessions.err = tt.err

			rec := s.do(http.MethodPost, "/api/realtime-session", "", nil)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("Expected 500, got %d", rec.Code)
			}
			var body ErrorResponse
			decodeBody(t, rec, &body)
			if body.Error != tt.message {
				t.Errorf("Expected error %q, got %q", tt.message, body.Error)
			}
			if body.Details != tt.details {
				t.Errorf("Expected details %q, got %q", tt.details, body.Details)
			}
		})
	}
}

func TestChat(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		llmErr  error
		status  int
		message string
	}{
		{"reply", `{"question":"Where do I start?"}`, nil, http.StatusOK, ""},
		{"missing question", `{}`, nil, http.StatusBadRequest, "Missing question"},
		{"unreadable body", `not json`, nil, http.StatusBadRequest, "Missing question"},
		{"missing key", `{"question":"hi"}`, repositories.ErrMissingAPIKey, http.StatusInternalServerError, "OPENAI_API_KEY is not configured."},
		{"invalid key", `{"question":"hi"}`, repositories.ErrInvalidAPIKey, http.StatusInternalServerError, "Invalid OpenAI API key. Update OPENAI_API_KEY and restart the server."},
		{"upstream", `{"question":"hi"}`, errors.New("boom"), http.StatusInternalServerError, "Failed to get response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.llm.content = "  Start with the handbook.  "
			s.llm.err = tt.llmErr

			rec := s.do(http.MethodPost, "/api/chat", tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				var body ChatResponse
				decodeBody(t, rec, &body)
				if body.Reply != "Start with the handbook." {
					t.Errorf("Expected trimmed reply, got %q", body.Reply)
				}
				return
			}
			var body ErrorResponse
			decodeBody(t, rec, &body)
			if body.Error != tt.message {
				t.Errorf("Expected error %q, got %q", tt.message, body.Error)
			}
		})
	}
}

func TestSummarizeInterview(t *testing.T) {
	s := newTestServer(t)
	s.llm.content = "```json\n{\"summary\":\"Solid\",\"overall_recommendation\":\"Hire\"}\n```"

	body := `{"role":"Backend Engineer","transcript":[
		{"speaker":"Interviewer","text":"Tell me about Go","ts":1700000000000},
		{"speaker":"Candidate","text":"I use it daily","ts":"2023-11-14T22:13:21Z"}]}`
	rec := s.do(http.MethodPost, "/api/summarize-interview", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Analysis entities.InterviewSummary `json:"analysis"`
		Usage    entities.Usage            `json:"usage"`
	}
	decodeBody(t, rec, &resp)
	if resp.Analysis.Summary != "Solid" {
		t.Errorf("Expected summary Solid, got %q", resp.Analysis.Summary)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("Expected usage to be forwarded, got %+v", resp.Usage)
	}

	rec = s.do(http.MethodPost, "/api/summarize-interview", `{"transcript":[]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty transcript, got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/summarize-interview", `{"transcript":[{"speaker":"Candidate","text":"hi","ts":true}]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad timestamp, got %d", rec.Code)
	}
}

func TestAnalyzeResume(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/analyze-resume", `{"text":""}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	s.llm.err = repositories.ErrMissingAPIKey
	rec = s.do(http.MethodPost, "/api/analyze-resume", `{"text":"Ten years of Go"}`, nil)
	var body ErrorResponse
	decodeBody(t, rec, &body)
	if body.Error != "OpenAI API key is not configured. Set OPENAI_API_KEY and restart the server." {
		t.Errorf("Unexpected error %q", body.Error)
	}
}

func TestExtractTextWithoutFile(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/extract-text", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var body ErrorResponse
	decodeBody(t, rec, &body)
	if body.Error != "No file uploaded" {
		t.Errorf("Expected No file uploaded, got %q", body.Error)
	}
}

func TestSaveInterview(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/interviews/latest", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 before any save, got %d", rec.Code)
	}

	body := `{"candidate_name":"Sam","transcript":[
		{"speaker":"Interviewer","text":"Why Go?"},
		{"speaker":"Candidate","text":"  Simplicity  "},
		{"speaker":"Candidate","text":"   "}]}`

	rec = s.do(http.MethodPost, "/api/interviews", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", rec.Code)
	}

	token, _, err := s.tokens.GenerateResultToken("session-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	hdr := http.Header{echo.HeaderAuthorization: []string{"Bearer " + token}}

	rec = s.do(http.MethodPost, "/api/interviews", body, hdr)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved struct {
		ID         string            `json:"id"`
		SessionID  string            `json:"session_id"`
		Transcript []map[string]any  `json:"transcript"`
		QAPairs    []entities.QAPair `json:"qa_pairs"`
	}
	decodeBody(t, rec, &saved)
	if saved.SessionID != "session-1" {
		t.Errorf("Expected session-1, got %s", saved.SessionID)
	}
	if len(saved.Transcript) != 2 {
		t.Errorf("Expected blank line dropped, got %d lines", len(saved.Transcript))
	}
	if len(saved.QAPairs) != 1 || saved.QAPairs[0].Answer != "Simplicity" {
		t.Errorf("Unexpected QA pairs %+v", saved.QAPairs)
	}

	rec = s.do(http.MethodGet, "/api/interviews/latest", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/interviews/"+saved.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for saved id, got %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/api/interviews/not-an-id", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestImportLegacy(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/interviews/import", `{"storage":{}}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty storage, got %d", rec.Code)
	}

	transcript, _ := json.Marshal([]map[string]any{
		{"speaker": "Interviewer", "text": "Hello", "ts": 1700000000000},
		{"speaker": "Candidate", "text": "Hi", "ts": 1700000001000},
	})
	payload, _ := json.Marshal(ImportRequest{
		Storage: map[string]string{
			usecase.LegacyTranscriptKey: string(transcript),
			usecase.LegacyGuidelinesKey: "Be kind",
		},
	})
	rec = s.do(http.MethodPost, "/api/interviews/import", string(payload), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/onboarding/guidelines", "", nil)
	var g entities.Guidelines
	decodeBody(t, rec, &g)
	if g.Text != "Be kind" {
		t.Errorf("Expected imported guidelines, got %q", g.Text)
	}
}

func TestImportLegacyCannotReplaceSavedInterview(t *testing.T) {
	s := newTestServer(t)
	s.llm.content = `{"summary":"Strong","overall_recommendation":"Hire"}`

	token, _, err := s.tokens.GenerateResultToken("saved-session")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	hdr := http.Header{echo.HeaderAuthorization: []string{"Bearer " + token}}
	body := `{"summarize":true,"transcript":[
		{"speaker":"Interviewer","text":"Why Go?"},
		{"speaker":"Candidate","text":"Simplicity"}]}`
	rec := s.do(http.MethodPost, "/api/interviews", body, hdr)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &saved)

	transcript, _ := json.Marshal([]map[string]any{
		{"speaker": "Candidate", "text": "Replaced", "ts": 1700000000000},
	})
	payload, _ := json.Marshal(ImportRequest{
		SessionID: "saved-session",
		Storage:   map[string]string{usecase.LegacyTranscriptKey: string(transcript)},
	})
	rec = s.do(http.MethodPost, "/api/interviews/import", string(payload), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/interviews/"+saved.ID, "", nil)
	var stored struct {
		Transcript []entities.TranscriptItem  `json:"transcript"`
		Summary    *entities.InterviewSummary `json:"summary"`
	}
	decodeBody(t, rec, &stored)
	if len(stored.Transcript) != 2 || stored.Transcript[1].Text != "Simplicity" {
		t.Errorf("Stored transcript changed: %+v", stored.Transcript)
	}
	if stored.Summary == nil || stored.Summary.Summary != "Strong" {
		t.Errorf("Stored summary changed: %+v", stored.Summary)
	}
}

func TestGuidelines(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/onboarding/guidelines", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = s.do(http.MethodPut, "/api/onboarding/guidelines", `{"text":"Ship small changes"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var g entities.Guidelines
	decodeBody(t, rec, &g)
	if g.Text != "Ship small changes" {
		t.Errorf("Expected saved text, got %q", g.Text)
	}
}

func TestLiveTranscriptRejectsBadToken(t *testing.T) {
	s := newTestServer(t)
	other, _, _ := s.tokens.GenerateResultToken("other-session")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong session", other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/ws/interviews/session-1?token="+tt.token, "", nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/health", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("go_goroutines")) {
		t.Error("Expected default collectors to be exposed")
	}
}
