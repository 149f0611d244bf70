package repositories

import (
	"context"

	"github.com/hirewise/server/domain/entities"
)

// RealtimeSessions mints ephemeral realtime credentials
type RealtimeSessions interface {
	CreateSession(ctx context.Context) (*entities.RealtimeSession, error)
}

// Signaler performs the SDP offer/answer exchange with the realtime vendor
type Signaler interface {
	ExchangeSDP(ctx context.Context, model, ephemeralKey, offer string) (string, error)
}
