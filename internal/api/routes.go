package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hirewise/server/internal/metrics"
	"github.com/hirewise/server/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handler, m *metrics.Metrics) {
	e.Use(Metrics(m))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "hirewise-server",
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/api")

	// Language model proxies
	g.POST("/realtime-session", h.createRealtimeSession)
	g.GET("/realtime-session", methodNotAllowed("Use POST to create an ephemeral session"))
	g.POST("/chat", h.chat)
	g.GET("/chat", usageMessage(http.StatusOK, "Use POST { question } to chat."))
	g.POST("/summarize-interview", h.summarizeInterview)
	g.GET("/summarize-interview", methodNotAllowed("Use POST with a transcript to summarize."))
	g.POST("/analyze-resume", h.analyzeResume)
	g.GET("/analyze-resume", methodNotAllowed("Use POST method to analyze resume text"))

	// Multipart overhead on top of the file limit
	limit := strconv.FormatInt(usecase.MaxResumeSize+usecase.MaxResumeSize/10, 10)
	g.POST("/extract-text", h.extractText, middleware.BodyLimit(limit))
	g.GET("/extract-text", methodNotAllowed("Use POST method to upload a resume"))

	// Interview results
	g.POST("/interviews", h.saveInterview)
	g.POST("/interviews/import", h.importLegacy)
	g.GET("/interviews/latest", h.latestInterview)
	g.GET("/interviews/:id", h.getInterview)

	// Onboarding assistant
	g.GET("/onboarding/guidelines", h.getGuidelines)
	g.PUT("/onboarding/guidelines", h.putGuidelines)

	// Live transcript
	e.GET("/ws/interviews/:session", h.liveTranscript)
}

// Metrics records request count and latency per matched route
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RecordHTTPRequest(c.Request().Method, route, strconv.Itoa(c.Response().Status), time.Since(start).Seconds())
			return nil
		}
	}
}
