package repositories

import "context"

// EventPublisher publishes domain events to downstream consumers
type EventPublisher interface {
	PublishTranscriptLine(ctx context.Context, key string, event any) error
	PublishInterviewCompleted(ctx context.Context, key string, event any) error
	Close() error
}
