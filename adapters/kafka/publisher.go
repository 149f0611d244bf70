// Package kafka publishes interview events to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/metrics"
)

const (
	DefaultTranscriptTopic = "transcript.line"
	DefaultCompletedTopic  = "interview.completed"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TranscriptTopic string
	CompletedTopic  string
	Principal       string
	Enabled         bool
}

// Publisher publishes interview events to separate Kafka topics. When Kafka
// is disabled it only logs the events.
type Publisher struct {
	writerTranscript *kafka.Writer
	writerCompleted  *kafka.Writer
	principal        string
	topicTranscript  string
	topicCompleted   string
	enabled          bool
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

var _ repositories.EventPublisher = (*Publisher)(nil)

// New creates a new Kafka event publisher.
func New(cfg *Config, m *metrics.Metrics, logger *zap.Logger) *Publisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}

	if cfg == nil {
		logger.Info("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			topicTranscript: DefaultTranscriptTopic,
			topicCompleted:  DefaultCompletedTopic,
			metrics:         m,
			logger:          logger,
		}
	}

	p := &Publisher{
		principal:       cfg.Principal,
		topicTranscript: cfg.TranscriptTopic,
		topicCompleted:  cfg.CompletedTopic,
		metrics:         m,
		logger:          logger,
	}
	if p.topicTranscript == "" {
		p.topicTranscript = DefaultTranscriptTopic
	}
	if p.topicCompleted == "" {
		p.topicCompleted = DefaultCompletedTopic
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("Kafka disabled, using log-only mode")
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p.writerTranscript = newWriter(cfg.Brokers, p.topicTranscript, transport)
	p.writerCompleted = newWriter(cfg.Brokers, p.topicCompleted, transport)
	p.enabled = true

	logger.Info("Kafka publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("transcript_topic", p.topicTranscript),
		zap.String("completed_topic", p.topicCompleted),
		zap.String("principal", cfg.Principal))

	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishTranscriptLine publishes one live transcript line keyed by session.
func (p *Publisher) PublishTranscriptLine(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, "transcript_line", key, event)
}

// PublishInterviewCompleted publishes a stored interview result.
func (p *Publisher) PublishInterviewCompleted(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, "interview_completed", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.Error(err), zap.String("topic", topic))
		return err
	}

	p.logger.Debug("Publishing event",
		zap.String("principal", p.principal),
		zap.String("topic", topic),
		zap.String("key", key),
		zap.ByteString("payload", payload))

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to write to Kafka",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("key", key))
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			p.logger.Error("Error closing transcript writer", zap.Error(e))
			err = e
		}
	}
	if p.writerCompleted != nil {
		if e := p.writerCompleted.Close(); e != nil {
			p.logger.Error("Error closing completed writer", zap.Error(e))
			err = e
		}
	}
	return err
}
