package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

// Requires a running MongoDB instance (skipped if MONGODB_URI is not set)
func TestRepositories_Integration(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	logger := zap.NewNop()

	client, err := NewClient(ctx, uri, "hirewise_test", logger)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		_ = client.Database.Drop(ctx)
		_ = client.Close(ctx)
	}()

	if err := client.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	interviews := NewInterviewRepository(client.Database, logger)
	guidelines := NewGuidelinesRepository(client.Database, logger)

	t.Run("CreateAndGet", func(t *testing.T) {
		interview := entities.NewInterview("session-create")
		interview.SetTranscript([]entities.TranscriptItem{
			{Speaker: entities.SpeakerInterviewer, Text: "Hello"},
			{Speaker: entities.SpeakerCandidate, Text: "Hi"},
		})
		if err := interviews.Create(ctx, interview); err != nil {
			t.Fatalf("Create: %v", err)
		}

		byID, err := interviews.GetByID(ctx, interview.ID.Hex())
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if len(byID.Transcript) != 2 {
			t.Errorf("expected 2 transcript items, got %d", len(byID.Transcript))
		}

		bySession, err := interviews.GetBySessionID(ctx, "session-create")
		if err != nil {
			t.Fatalf("GetBySessionID: %v", err)
		}
		if bySession.ID != interview.ID {
			t.Errorf("expected %s, got %s", interview.ID.Hex(), bySession.ID.Hex())
		}
	})

	t.Run("GetLatestAndUpdate", func(t *testing.T) {
		interview := entities.NewInterview("session-latest")
		if err := interviews.Create(ctx, interview); err != nil {
			t.Fatalf("Create: %v", err)
		}
		interview.Complete(&entities.InterviewSummary{Summary: "ok"})
		if err := interviews.Update(ctx, interview); err != nil {
			t.Fatalf("Update: %v", err)
		}

		latest, err := interviews.GetLatest(ctx)
		if err != nil {
			t.Fatalf("GetLatest: %v", err)
		}
		if latest.SessionID != "session-latest" {
			t.Errorf("expected latest session-latest, got %s", latest.SessionID)
		}
		if latest.Status != entities.InterviewStatusCompleted {
			t.Errorf("expected completed, got %s", latest.Status)
		}
	})

	t.Run("Expire", func(t *testing.T) {
		interview := entities.NewInterview("session-old")
		interview.ExpiresAt = time.Now().Add(-time.Hour)
		if err := interviews.Create(ctx, interview); err != nil {
			t.Fatalf("Create: %v", err)
		}
		n, err := interviews.ExpireInterviews(ctx, time.Now())
		if err != nil {
			t.Fatalf("ExpireInterviews: %v", err)
		}
		if n < 1 {
			t.Errorf("expected at least one expired interview, got %d", n)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := interviews.GetByID(ctx, "not-an-object-id")
		if !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Guidelines", func(t *testing.T) {
		if err := guidelines.Save(ctx, &entities.Guidelines{Text: "Be kind"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := guidelines.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Text != "Be kind" {
			t.Errorf("expected %q, got %q", "Be kind", got.Text)
		}
	})
}
