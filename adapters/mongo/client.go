package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "hirewise"
	appName         = "hirewise-server"

	interviewsCollection = "interviews"
	guidelinesCollection = "guidelines"
)

// Interview results are written once or twice at the end of a session and
// read back by the dashboard, so a small pool covers concurrent interviews.
// One warm connection keeps the first save after an idle period fast.
const (
	maxPoolSize    = 10
	minPoolSize    = 1
	maxConnIdle    = 30 * time.Minute
	connectTimeout = 10 * time.Second
	selectTimeout  = 5 * time.Second
)

// Client holds the connection to the interview store
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

func clientOptions(uri string) *options.ClientOptions {
	if uri == "" {
		uri = defaultURI
	}
	return options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize).
		SetMaxConnIdleTime(maxConnIdle).
		SetServerSelectionTimeout(selectTimeout).
		SetConnectTimeout(connectTimeout)
}

// NewClient connects to MongoDB and verifies the server is reachable.
// Call EnsureIndexes before serving requests.
func NewClient(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	if dbName == "" {
		dbName = defaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to interview store: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping interview store: %w", err)
	}

	logger.Info("Connected to interview store",
		zap.String("database", dbName),
		zap.Strings("collections", []string{interviewsCollection, guidelinesCollection}),
		zap.Int("max_pool", maxPoolSize))

	return &Client{
		Client:   client,
		Database: client.Database(dbName),
		logger:   logger,
	}, nil
}

// EnsureIndexes creates the interview indexes: unique session lookup, the
// latest-completed query and the expiry TTL. Existing indexes are left alone.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	names, err := c.Database.Collection(interviewsCollection).Indexes().CreateMany(ctx, interviewIndexes())
	if err != nil {
		return fmt.Errorf("failed to create interview indexes: %w", err)
	}
	c.logger.Info("Interview indexes ready", zap.Strings("indexes", names))
	return nil
}

// Close disconnects from the interview store
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from interview store", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from interview store")
	return nil
}
