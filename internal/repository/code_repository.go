package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/observability"
)

var ErrCodeNotFound = errors.New("one-time code not found")

type CodeRepository interface {
	Create(ctx context.Context, code *domain.OneTimeCode) error
	// FindLatestByUser returns the stored code with the latest expiry. The
	// at-most-one-live invariant should make this the only record, but the
	// sort keeps behavior deterministic if it is ever violated.
	FindLatestByUser(ctx context.Context, userID bson.ObjectID) (*domain.OneTimeCode, error)
	DeleteByUser(ctx context.Context, userID bson.ObjectID) error
}

type MongoCodeRepository struct {
	coll *mongo.Collection
}

func NewCodeRepository(db *mongo.Database) CodeRepository {
	return &MongoCodeRepository{coll: db.Collection("one_time_codes")}
}

func (r *MongoCodeRepository) Create(ctx context.Context, code *domain.OneTimeCode) error {
	code.CreatedAt = time.Now().UTC()
	res, err := r.coll.InsertOne(ctx, code)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "code", "create", "error")
		return err
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		code.ID = id
	}
	observability.RecordRepositoryOperation(ctx, "code", "create", "success")
	return nil
}

func (r *MongoCodeRepository) FindLatestByUser(ctx context.Context, userID bson.ObjectID) (*domain.OneTimeCode, error) {
	var code domain.OneTimeCode
	opts := options.FindOne().SetSort(bson.D{{Key: "expiresAt", Value: -1}})
	if err := r.coll.FindOne(ctx, bson.M{"userID": userID}, opts).Decode(&code); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			observability.RecordRepositoryOperation(ctx, "code", "find_latest", "not_found")
			return nil, ErrCodeNotFound
		}
		observability.RecordRepositoryOperation(ctx, "code", "find_latest", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "code", "find_latest", "success")
	return &code, nil
}

func (r *MongoCodeRepository) DeleteByUser(ctx context.Context, userID bson.ObjectID) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"userID": userID}); err != nil {
		observability.RecordRepositoryOperation(ctx, "code", "delete_by_user", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "code", "delete_by_user", "success")
	return nil
}
