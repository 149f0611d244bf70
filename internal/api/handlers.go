package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hirewise/server/adapters/openai"
	"github.com/hirewise/server/domain"
	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/auth"
	"github.com/hirewise/server/internal/websocket"
	"github.com/hirewise/server/usecase"
)

// Messages shown to clients for upstream failures
const (
	msgKeyNotConfigured = "OPENAI_API_KEY is not configured."
	msgInvalidKey       = "Invalid OpenAI API key. Update OPENAI_API_KEY and restart the server."
	msgResumeKeyMissing = "OpenAI API key is not configured. Set OPENAI_API_KEY and restart the server."
	msgExtractFailed    = "Failed to extract text from PDF. Please ensure the PDF contains readable text."
)

// Handler serves the HTTP API
type Handler struct {
	interviews *usecase.InterviewService
	resumes    *usecase.ResumeService
	assistant  *usecase.AssistantService
	tokens     *auth.TokenIssuer
	hub        *websocket.Hub
	logger     *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	interviews *usecase.InterviewService,
	resumes *usecase.ResumeService,
	assistant *usecase.AssistantService,
	tokens *auth.TokenIssuer,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		interviews: interviews,
		resumes:    resumes,
		assistant:  assistant,
		tokens:     tokens,
		hub:        hub,
		logger:     logger,
	}
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Error: message})
}

// modelError maps a language model failure to a response
func (h *Handler) modelError(c echo.Context, err error, missingKey, fallback string) error {
	switch {
	case usecase.IsValidation(err):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrMissingAPIKey):
		return errorJSON(c, http.StatusInternalServerError, missingKey)
	case errors.Is(err, repositories.ErrInvalidAPIKey):
		return errorJSON(c, http.StatusInternalServerError, msgInvalidKey)
	}
	h.logger.Error(fallback, zap.Error(err))
	return errorJSON(c, http.StatusInternalServerError, fallback)
}

func methodNotAllowed(message string) echo.HandlerFunc {
	return usageMessage(http.StatusMethodNotAllowed, message)
}

func usageMessage(status int, message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(status, UsageResponse{Message: message})
	}
}

// createRealtimeSession mints an ephemeral vendor credential. The vendor
// payload is forwarded with our session_id and result_token added.
func (h *Handler) createRealtimeSession(c echo.Context) error {
	rs, err := h.interviews.MintSession(c.Request().Context())
	if err != nil {
		var apiErr *openai.APIError
		switch {
		case errors.Is(err, repositories.ErrMissingAPIKey):
			return errorJSON(c, http.StatusInternalServerError, msgKeyNotConfigured)
		case errors.As(err, &apiErr):
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to create realtime session",
				Details: apiErr.Body,
			})
		}
		h.logger.Error("Unable to create realtime session", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Unable to create realtime session")
	}

	payload := map[string]json.RawMessage{}
	if len(rs.Payload) > 0 {
		if err := json.Unmarshal(rs.Payload, &payload); err != nil {
			h.logger.Warn("Vendor session payload is not an object", zap.Error(err))
			payload = map[string]json.RawMessage{}
		}
	}
	payload["session_id"], _ = json.Marshal(rs.ID)
	payload["result_token"], _ = json.Marshal(rs.ResultToken)
	if _, ok := payload["model"]; !ok {
		payload["model"], _ = json.Marshal(rs.Model)
	}

	return c.JSON(http.StatusOK, payload)
}

func (h *Handler) chat(c echo.Context) error {
	var req ChatRequest
	// an unreadable body is treated as an empty question
	_ = json.NewDecoder(c.Request().Body).Decode(&req)

	reply, usage, err := h.assistant.Chat(c.Request().Context(), req.Question, req.Guidelines)
	if err != nil {
		return h.modelError(c, err, msgKeyNotConfigured, "Failed to get response")
	}
	return c.JSON(http.StatusOK, ChatResponse{Reply: reply, Usage: usage})
}

func (h *Handler) summarizeInterview(c echo.Context) error {
	var req SummarizeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Transcript is required")
	}
	items, err := toTranscriptItems(req.Transcript)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	summary, usage, err := h.interviews.Summarize(c.Request().Context(), items, req.Role)
	if err != nil {
		return h.modelError(c, err, msgKeyNotConfigured, "Failed to summarize interview")
	}
	return c.JSON(http.StatusOK, AnalysisResponse{Analysis: summary, Usage: usage})
}

func (h *Handler) analyzeResume(c echo.Context) error {
	var req AnalyzeResumeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "No text provided for analysis")
	}

	analysis, usage, err := h.resumes.Analyze(c.Request().Context(), req.Text)
	if err != nil {
		return h.modelError(c, err, msgResumeKeyMissing, "Failed to analyze resume with AI")
	}
	return c.JSON(http.StatusOK, AnalysisResponse{Analysis: analysis, Usage: usage})
}

func (h *Handler) extractText(c echo.Context) error {
	fh, err := c.FormFile("resume")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "No file uploaded")
	}

	file, err := fh.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, msgExtractFailed)
	}
	defer file.Close()

	doc, err := h.resumes.ExtractText(c.Request().Context(), fh.Header.Get(echo.HeaderContentType), fh.Size, file)
	if err != nil {
		if usecase.IsValidation(err) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		return errorJSON(c, http.StatusInternalServerError, msgExtractFailed)
	}
	return c.JSON(http.StatusOK, doc)
}

// saveInterview stores the result of the session named by the bearer token
func (h *Handler) saveInterview(c echo.Context) error {
	claims, err := h.tokens.ValidateResultToken(auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization)))
	if err != nil {
		h.logger.Warn("Interview save rejected", zap.Error(err))
		return errorJSON(c, http.StatusUnauthorized, "Invalid or expired result token")
	}

	var req SaveInterviewRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request format")
	}
	items, err := toTranscriptItems(req.Transcript)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	interview, err := h.interviews.SaveResult(c.Request().Context(), claims.SessionID, usecase.SaveResultRequest{
		CandidateName: req.CandidateName,
		Role:          req.Role,
		Transcript:    items,
		Summarize:     req.Summarize,
	})
	if err != nil {
		return h.modelError(c, err, msgKeyNotConfigured, "Failed to save interview")
	}

	err = h.hub.Broadcast(claims.SessionID, domain.SessionEndedMessage{
		Type:        domain.MessageTypeSessionEnded,
		SessionID:   claims.SessionID,
		InterviewID: interview.ID.Hex(),
	})
	if err != nil {
		h.logger.Warn("Failed to notify viewers", zap.Error(err))
	}

	return c.JSON(http.StatusCreated, newInterviewResponse(interview))
}

func (h *Handler) latestInterview(c echo.Context) error {
	interview, err := h.interviews.Latest(c.Request().Context())
	return h.interviewResult(c, interview, err)
}

func (h *Handler) getInterview(c echo.Context) error {
	interview, err := h.interviews.Get(c.Request().Context(), c.Param("id"))
	return h.interviewResult(c, interview, err)
}

func (h *Handler) interviewResult(c echo.Context, interview *entities.Interview, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "No interview found")
	}
	if err != nil {
		h.logger.Error("Failed to load interview", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to load interview")
	}
	return c.JSON(http.StatusOK, newInterviewResponse(interview))
}

// importLegacy stores transcripts and guidelines kept in browser storage
// by older clients. It never touches an existing interview; updates need the
// session's result token.
func (h *Handler) importLegacy(c echo.Context) error {
	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request format")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := h.interviews.ImportLegacy(c.Request().Context(), sessionID, req.Storage, h.assistant)
	if err != nil {
		if usecase.IsValidation(err) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, usecase.ErrSessionExists) {
			return errorJSON(c, http.StatusConflict, "An interview for this session already exists")
		}
		h.logger.Error("Legacy import failed", zap.String("session_id", sessionID), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to import interview data")
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) getGuidelines(c echo.Context) error {
	g, err := h.assistant.Guidelines(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to load guidelines", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to load guidelines")
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) putGuidelines(c echo.Context) error {
	var req GuidelinesRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request format")
	}
	if err := h.assistant.SaveGuidelines(c.Request().Context(), req.Text); err != nil {
		h.logger.Error("Failed to save guidelines", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Failed to save guidelines")
	}
	return h.getGuidelines(c)
}

// liveTranscript upgrades to a websocket on the session room. A result token
// for the session makes the client its publisher; without one it only views.
func (h *Handler) liveTranscript(c echo.Context) error {
	sessionID := c.Param("session")
	if sessionID == "" {
		return errorJSON(c, http.StatusBadRequest, "Session is required")
	}

	token := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if token == "" {
		// browsers cannot set headers on websocket requests
		token = c.QueryParam("token")
	}

	role := websocket.RoleViewer
	if token != "" {
		claims, err := h.tokens.ValidateResultToken(token)
		if err != nil || claims.SessionID != sessionID {
			return errorJSON(c, http.StatusUnauthorized, "Invalid or expired result token")
		}
		role = websocket.RolePublisher
	}

	return websocket.Serve(h.hub, c, sessionID, role)
}
