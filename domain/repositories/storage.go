package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/hirewise/server/domain/entities"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// InterviewRepository defines data access methods for interview results
type InterviewRepository interface {
	Create(ctx context.Context, interview *entities.Interview) error
	GetByID(ctx context.Context, id string) (*entities.Interview, error)
	GetBySessionID(ctx context.Context, sessionID string) (*entities.Interview, error)
	// GetLatest returns the most recently updated, non-expired interview
	GetLatest(ctx context.Context) (*entities.Interview, error)
	Update(ctx context.Context, interview *entities.Interview) error
	// ExpireInterviews marks interviews past their retention as expired
	ExpireInterviews(ctx context.Context, now time.Time) (int64, error)
}

// GuidelinesRepository stores the onboarding guidelines document
type GuidelinesRepository interface {
	Get(ctx context.Context) (*entities.Guidelines, error)
	Save(ctx context.Context, guidelines *entities.Guidelines) error
}
