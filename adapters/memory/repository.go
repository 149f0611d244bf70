// Package memory holds in-process repositories used in development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

// InterviewRepository is an in-memory implementation of repositories.InterviewRepository
type InterviewRepository struct {
	mu         sync.RWMutex
	interviews map[primitive.ObjectID]*entities.Interview
	sessions   map[string]primitive.ObjectID // session_id -> id
}

var _ repositories.InterviewRepository = (*InterviewRepository)(nil)

// NewInterviewRepository creates an empty interview repository
func NewInterviewRepository() *InterviewRepository {
	return &InterviewRepository{
		interviews: make(map[primitive.ObjectID]*entities.Interview),
		sessions:   make(map[string]primitive.ObjectID),
	}
}

// Create implements repositories.InterviewRepository
func (m *InterviewRepository) Create(ctx context.Context, interview *entities.Interview) error {
	if interview == nil {
		return errors.New("interview cannot be nil")
	}
	if err := interview.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[interview.SessionID]; exists {
		return errors.New("interview for this session already exists")
	}
	if interview.ID.IsZero() {
		interview.ID = primitive.NewObjectID()
	}

	m.interviews[interview.ID] = clone(interview)
	m.sessions[interview.SessionID] = interview.ID
	return nil
}

// GetByID implements repositories.InterviewRepository
func (m *InterviewRepository) GetByID(ctx context.Context, id string) (*entities.Interview, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	interview, ok := m.interviews[oid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return clone(interview), nil
}

// GetBySessionID implements repositories.InterviewRepository
func (m *InterviewRepository) GetBySessionID(ctx context.Context, sessionID string) (*entities.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.sessions[sessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return clone(m.interviews[id]), nil
}

// GetLatest implements repositories.InterviewRepository
func (m *InterviewRepository) GetLatest(ctx context.Context) (*entities.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]*entities.Interview, 0, len(m.interviews))
	for _, interview := range m.interviews {
		if !interview.IsExpired() {
			candidates = append(candidates, interview)
		}
	}
	if len(candidates) == 0 {
		return nil, repositories.ErrNotFound
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})
	return clone(candidates[0]), nil
}

// Update implements repositories.InterviewRepository
func (m *InterviewRepository) Update(ctx context.Context, interview *entities.Interview) error {
	if interview == nil {
		return errors.New("interview cannot be nil")
	}
	if err := interview.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.interviews[interview.ID]; !ok {
		return repositories.ErrNotFound
	}
	m.interviews[interview.ID] = clone(interview)
	m.sessions[interview.SessionID] = interview.ID
	return nil
}

// ExpireInterviews implements repositories.InterviewRepository
func (m *InterviewRepository) ExpireInterviews(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, interview := range m.interviews {
		if interview.Status != entities.InterviewStatusExpired && interview.ExpiresAt.Before(now) {
			interview.Expire()
			count++
		}
	}
	return count, nil
}

func clone(in *entities.Interview) *entities.Interview {
	out := *in
	out.Transcript = append([]entities.TranscriptItem(nil), in.Transcript...)
	out.Grouped = append([]entities.GroupedLine(nil), in.Grouped...)
	if in.Summary != nil {
		summary := *in.Summary
		out.Summary = &summary
	}
	return &out
}

// GuidelinesRepository keeps the onboarding guidelines in memory
type GuidelinesRepository struct {
	mu         sync.RWMutex
	guidelines *entities.Guidelines
}

var _ repositories.GuidelinesRepository = (*GuidelinesRepository)(nil)

// NewGuidelinesRepository creates an empty guidelines repository
func NewGuidelinesRepository() *GuidelinesRepository {
	return &GuidelinesRepository{}
}

// Get implements repositories.GuidelinesRepository
func (m *GuidelinesRepository) Get(ctx context.Context) (*entities.Guidelines, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.guidelines == nil {
		return nil, repositories.ErrNotFound
	}
	g := *m.guidelines
	return &g, nil
}

// Save implements repositories.GuidelinesRepository
func (m *GuidelinesRepository) Save(ctx context.Context, guidelines *entities.Guidelines) error {
	if guidelines == nil {
		return errors.New("guidelines cannot be nil")
	}
	g := *guidelines
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = time.Now()
	}

	m.mu.Lock()
	m.guidelines = &g
	m.mu.Unlock()
	return nil
}
