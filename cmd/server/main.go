package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/hirewise/server/adapters/kafka"
	"github.com/hirewise/server/adapters/llm"
	"github.com/hirewise/server/adapters/memory"
	"github.com/hirewise/server/adapters/mongo"
	"github.com/hirewise/server/adapters/openai"
	"github.com/hirewise/server/adapters/pdf"
	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/api"
	"github.com/hirewise/server/internal/auth"
	"github.com/hirewise/server/internal/cleanup"
	"github.com/hirewise/server/internal/config"
	"github.com/hirewise/server/internal/logger"
	"github.com/hirewise/server/internal/metrics"
	"github.com/hirewise/server/internal/websocket"
	"github.com/hirewise/server/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		panic(err)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogFormat, cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.DefaultMetrics

	// Storage
	var (
		interviewRepo  repositories.InterviewRepository
		guidelinesRepo repositories.GuidelinesRepository
	)
	switch cfg.Storage {
	case config.StorageMongo:
		client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Close(context.Background())
		if err := client.EnsureIndexes(ctx); err != nil {
			log.Fatal("Failed to prepare interview store", zap.Error(err))
		}
		interviewRepo = mongo.NewInterviewRepository(client.Database, log)
		guidelinesRepo = mongo.NewGuidelinesRepository(client.Database, log)
	default:
		interviewRepo = memory.NewInterviewRepository()
		guidelinesRepo = memory.NewGuidelinesRepository()
	}

	// Language model
	var chatModel repositories.LanguageModel
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gemini, err := llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.LLMTimeout,
		}, log)
		if err != nil {
			log.Fatal("Failed to create Gemini client", zap.Error(err))
		}
		chatModel = gemini
	case config.ProviderMock:
		chatModel = llm.NewMockLLM(log)
	default:
		chatModel = openai.NewChatModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, log)
	}

	realtimeClient := openai.NewRealtimeClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.RealtimeModel, log)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.ResultTokenTTL)

	events := kafka.New(&kafka.Config{
		Brokers:         cfg.KafkaBrokers,
		TranscriptTopic: cfg.KafkaTranscriptTopic,
		CompletedTopic:  cfg.KafkaCompletedTopic,
		Principal:       cfg.KafkaPrincipal,
		Enabled:         cfg.KafkaEnabled,
	}, m, log)
	defer events.Close()

	// Initialize usecase services
	interviewService := usecase.NewInterviewService(realtimeClient, interviewRepo, tokens, chatModel, "", events, m, log)
	resumeService := usecase.NewResumeService(pdf.NewExtractor(log), chatModel, "", m, log)
	assistantService := usecase.NewAssistantService(guidelinesRepo, chatModel, "", m, log)

	// Live transcript rooms
	hub := websocket.NewHub(interviewService, m, log)
	go hub.Run(ctx)

	janitor := cleanup.NewService(interviewService, cfg.CleanupSchedule, log)
	if err := janitor.Start(); err != nil {
		log.Fatal("Failed to schedule cleanup", zap.Error(err))
	}
	defer janitor.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := api.NewHandler(interviewService, resumeService, assistantService, tokens, hub, log)
	api.InitRoutes(e, handler, m)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("llm_provider", string(cfg.LLMProvider)),
		zap.String("storage", string(cfg.Storage)))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	cancel()

	log.Info("Server exited")
}
