// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
	ProviderMock   LLMProvider = "mock"
)

type StorageDriver string

const (
	StorageMemory StorageDriver = "memory"
	StorageMongo  StorageDriver = "mongo"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Debug     bool   `env:"DEBUG"`

	// LLM settings
	LLMProvider   LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ChatModel     string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	RealtimeModel string        `env:"REALTIME_MODEL" envDefault:"gpt-4o-realtime-preview-2024-12-17"`
	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Result tokens
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	ResultTokenTTL time.Duration `env:"RESULT_TOKEN_TTL" envDefault:"2h"`

	// Storage
	Storage       StorageDriver `env:"STORAGE" envDefault:"memory"`
	MongoURI      string        `env:"MONGODB_URI"`
	MongoDatabase string        `env:"MONGODB_DATABASE" envDefault:"hirewise"`

	// Events
	KafkaEnabled         bool     `env:"KAFKA_ENABLED"`
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTranscriptTopic string   `env:"KAFKA_TRANSCRIPT_TOPIC" envDefault:"transcript.line"`
	KafkaCompletedTopic  string   `env:"KAFKA_COMPLETED_TOPIC" envDefault:"interview.completed"`
	KafkaPrincipal       string   `env:"KAFKA_PRINCIPAL" envDefault:"hirewise-server"`

	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"@every 1h"`
}

// Load reads an optional .env file and parses the environment.
func Load(files ...string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.Storage {
	case StorageMemory, StorageMongo:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.Storage == StorageMongo && c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required when STORAGE=mongo")
	}
	return nil
}
