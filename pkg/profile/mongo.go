package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig holds connection settings for the mongo-backed store. Fields can
// be populated from environment variables via github.com/caarlos0/env.
type MongoConfig struct {
	ConnectionURL  string        `env:"PROFILE_MONGODB_URL,required"`
	Database       string        `env:"PROFILE_MONGODB_DATABASE" envDefault:"app"`
	Collection     string        `env:"PROFILE_MONGODB_COLLECTION" envDefault:"users"`
	ConnectTimeout time.Duration `env:"PROFILE_MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	RetryAttempts  int           `env:"PROFILE_MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"PROFILE_MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

var ErrMongoNotReady = errors.New("mongo did not become ready within the given attempts")

// MongoStore implements Store on top of a MongoDB collection, with records
// keyed by identity ID in the _id field.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wraps an existing collection. Use ConnectMongo when the caller
// does not already manage a client.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

// ConnectMongo establishes a client with retries and returns a store bound to
// the configured database and collection.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	for range max(cfg.RetryAttempts, 1) {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return NewMongoStore(client.Database(cfg.Database).Collection(cfg.Collection)), nil
			}
			_ = client.Disconnect(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrMongoNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrMongoNotReady
}

// Get retrieves a record by identity ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read profile record: %w", err)
	}
	return &user, nil
}

// Put upserts the record, replacing any existing document entirely.
func (s *MongoStore) Put(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return ErrInvalidUser
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": user.ID},
		user,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write profile record: %w", err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
