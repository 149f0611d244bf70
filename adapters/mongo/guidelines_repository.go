package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

// guidelinesID is the key of the single guidelines document.
const guidelinesID = "onboarding"

// GuidelinesRepository implements repositories.GuidelinesRepository using MongoDB
type GuidelinesRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.GuidelinesRepository = (*GuidelinesRepository)(nil)

// NewGuidelinesRepository creates a new MongoDB guidelines repository
func NewGuidelinesRepository(db *mongo.Database, logger *zap.Logger) *GuidelinesRepository {
	return &GuidelinesRepository{
		collection: db.Collection(guidelinesCollection),
		logger:     logger,
	}
}

// Get returns the stored guidelines or repositories.ErrNotFound
func (r *GuidelinesRepository) Get(ctx context.Context) (*entities.Guidelines, error) {
	var guidelines entities.Guidelines
	err := r.collection.FindOne(ctx, bson.M{"_id": guidelinesID}).Decode(&guidelines)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guidelines: %w", err)
	}
	return &guidelines, nil
}

// Save upserts the guidelines document
func (r *GuidelinesRepository) Save(ctx context.Context, guidelines *entities.Guidelines) error {
	if guidelines == nil {
		return errors.New("guidelines cannot be nil")
	}
	if guidelines.UpdatedAt.IsZero() {
		guidelines.UpdatedAt = time.Now()
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": guidelinesID},
		bson.M{"$set": bson.M{
			"text":       guidelines.Text,
			"updated_at": guidelines.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.Error("Failed to save guidelines", zap.Error(err))
		return fmt.Errorf("failed to save guidelines: %w", err)
	}

	r.logger.Info("Guidelines saved", zap.Int("length", len(guidelines.Text)))
	return nil
}
