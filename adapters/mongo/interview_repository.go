package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/domain/repositories"
)

// expiredRetention is how long an expired interview is kept before the TTL
// index removes it.
const expiredRetention = 7 * 24 * time.Hour

// InterviewRepository implements repositories.InterviewRepository using MongoDB
type InterviewRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.InterviewRepository = (*InterviewRepository)(nil)

// interviewIndexes backs session lookups, the latest-completed query and
// expiry of abandoned sessions.
func interviewIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "updated_at", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(expiredRetention.Seconds())),
		},
	}
}

// NewInterviewRepository creates a new MongoDB interview repository.
// Indexes are created by Client.EnsureIndexes.
func NewInterviewRepository(db *mongo.Database, logger *zap.Logger) *InterviewRepository {
	return &InterviewRepository{
		collection: db.Collection(interviewsCollection),
		logger:     logger,
	}
}

// Create stores a new interview
func (r *InterviewRepository) Create(ctx context.Context, interview *entities.Interview) error {
	if interview == nil {
		return errors.New("interview cannot be nil")
	}
	if err := interview.Validate(); err != nil {
		return err
	}
	if interview.ID.IsZero() {
		interview.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, interview); err != nil {
		r.logger.Error("Failed to create interview", zap.Error(err), zap.String("session_id", interview.SessionID))
		return fmt.Errorf("failed to create interview: %w", err)
	}

	r.logger.Info("Interview created",
		zap.String("interview_id", interview.ID.Hex()),
		zap.String("session_id", interview.SessionID))
	return nil
}

// GetByID retrieves an interview by its hex ID
func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*entities.Interview, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetBySessionID retrieves the interview bound to a realtime session
func (r *InterviewRepository) GetBySessionID(ctx context.Context, sessionID string) (*entities.Interview, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	return r.findOne(ctx, bson.M{"session_id": sessionID})
}

// GetLatest returns the most recently updated interview that has not expired
func (r *InterviewRepository) GetLatest(ctx context.Context) (*entities.Interview, error) {
	filter := bson.M{
		"status":     bson.M{"$ne": entities.InterviewStatusExpired},
		"expires_at": bson.M{"$gt": time.Now()},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

func (r *InterviewRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*entities.Interview, error) {
	var interview entities.Interview
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&interview)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		r.logger.Error("Failed to get interview", zap.Error(err))
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return &interview, nil
}

// Update replaces the stored interview
func (r *InterviewRepository) Update(ctx context.Context, interview *entities.Interview) error {
	if interview == nil {
		return errors.New("interview cannot be nil")
	}
	if err := interview.Validate(); err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": interview.ID}, bson.M{"$set": interview})
	if err != nil {
		r.logger.Error("Failed to update interview", zap.Error(err), zap.String("interview_id", interview.ID.Hex()))
		return fmt.Errorf("failed to update interview: %w", err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("Interview updated", zap.String("interview_id", interview.ID.Hex()))
	return nil
}

// ExpireInterviews marks interviews past their retention window as expired
func (r *InterviewRepository) ExpireInterviews(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":     bson.M{"$ne": entities.InterviewStatusExpired},
		"expires_at": bson.M{"$lt": now},
	}
	update := bson.M{
		"$set": bson.M{"status": entities.InterviewStatusExpired},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to expire interviews", zap.Error(err))
		return 0, fmt.Errorf("failed to expire interviews: %w", err)
	}

	if result.ModifiedCount > 0 {
		r.logger.Info("Expired interviews", zap.Int64("count", result.ModifiedCount))
	}
	return result.ModifiedCount, nil
}
