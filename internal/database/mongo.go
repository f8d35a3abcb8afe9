package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/myfinance/backend/internal/config"
)

// Open connects to MongoDB with bounded retries. An unreachable store at
// startup is fatal: the process must not serve requests it cannot persist.
func Open(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.MongoRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.MongoRetryInterval):
			}
		}
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.MongoURL).
				SetConnectTimeout(cfg.MongoConnectTimeout).
				SetRetryWrites(true).
				SetRetryReads(true),
		)
		if err != nil {
			lastErr = err
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
		err = client.Ping(pingCtx, nil)
		cancel()
		if err == nil {
			return client, nil
		}
		lastErr = err
		_ = client.Disconnect(ctx)
	}
	return nil, fmt.Errorf("connect to mongo after %d attempts: %w", cfg.MongoRetryAttempts, lastErr)
}

// EnsureIndexes creates the indexes the invariants rely on: unique email and
// username, per-user code lookup with a TTL sweep on expiry, and per-user
// ledger scans.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := db.Collection("users")
	if _, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	codes := db.Collection("one_time_codes")
	if _, err := codes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userID", Value: 1}}},
		// TTL sweep only garbage-collects; expiry is always re-checked on read.
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}); err != nil {
		return fmt.Errorf("create code indexes: %w", err)
	}

	for _, name := range []string{"expenses", "incomes"} {
		coll := db.Collection(name)
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "_id", Value: -1}},
		}); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
