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

var ErrEntryNotFound = errors.New("entry not found")

// EntryRepository persists one ledger collection (expenses or incomes).
// Every operation is scoped to the owning user; a caller can never reach
// another user's records through this interface.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.Entry) error
	ListPaged(ctx context.Context, userID bson.ObjectID, req PageRequest) (PageResult[domain.Entry], error)
	ListAll(ctx context.Context, userID bson.ObjectID) ([]domain.Entry, float64, error)
	Update(ctx context.Context, userID, id bson.ObjectID, updates bson.M) (*domain.Entry, error)
	Delete(ctx context.Context, userID, id bson.ObjectID) error
}

type MongoEntryRepository struct {
	coll *mongo.Collection
	name string
}

func NewExpenseRepository(db *mongo.Database) EntryRepository {
	return &MongoEntryRepository{coll: db.Collection("expenses"), name: "expense"}
}

func NewIncomeRepository(db *mongo.Database) EntryRepository {
	return &MongoEntryRepository{coll: db.Collection("incomes"), name: "income"}
}

func (r *MongoEntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	res, err := r.coll.InsertOne(ctx, entry)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "create", "error")
		return err
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		entry.ID = id
	}
	observability.RecordRepositoryOperation(ctx, r.name, "create", "success")
	return nil
}

func (r *MongoEntryRepository) ListPaged(ctx context.Context, userID bson.ObjectID, req PageRequest) (PageResult[domain.Entry], error) {
	normalized := normalizePageRequest(req)
	result := PageResult[domain.Entry]{Page: normalized.Page, PageSize: normalized.PageSize}
	filter := bson.M{"user": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "list_paged", "error")
		return PageResult[domain.Entry]{}, err
	}
	result.Total = total
	result.TotalPages = calcTotalPages(total, normalized.PageSize)

	skip := int64(normalized.Page-1) * int64(normalized.PageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(normalized.PageSize))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "list_paged", "error")
		return PageResult[domain.Entry]{}, err
	}
	items := []domain.Entry{}
	if err := cursor.All(ctx, &items); err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "list_paged", "error")
		return PageResult[domain.Entry]{}, err
	}
	result.Items = items

	sum, err := r.sumAmount(ctx, userID)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "list_paged", "error")
		return PageResult[domain.Entry]{}, err
	}
	result.Sum = sum

	observability.RecordRepositoryOperation(ctx, r.name, "list_paged", "success")
	return result, nil
}

func (r *MongoEntryRepository) ListAll(ctx context.Context, userID bson.ObjectID) ([]domain.Entry, float64, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user": userID}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "list_all", "error")
		return nil, 0, err
	}
	items := []domain.Entry{}
	if err := cursor.All(ctx, &items); err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "list_all", "error")
		return nil, 0, err
	}
	sum := 0.0
	for _, e := range items {
		sum += e.Amount
	}
	observability.RecordRepositoryOperation(ctx, r.name, "list_all", "success")
	return items, sum, nil
}

// sumAmount aggregates over all of the user's documents so paginated
// responses report the full total, not the page total.
func (r *MongoEntryRepository) sumAmount(ctx context.Context, userID bson.ObjectID) (float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"user": userID}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": nil, "sum": bson.M{"$sum": "$amount"}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Sum float64 `bson:"sum"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Sum, nil
}

func (r *MongoEntryRepository) Update(ctx context.Context, userID, id bson.ObjectID, updates bson.M) (*domain.Entry, error) {
	updates["updatedAt"] = time.Now().UTC()
	filter := bson.M{"_id": id, "user": userID}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated domain.Entry
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": updates}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			observability.RecordRepositoryOperation(ctx, r.name, "update", "not_found")
			return nil, ErrEntryNotFound
		}
		observability.RecordRepositoryOperation(ctx, r.name, "update", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, r.name, "update", "success")
	return &updated, nil
}

func (r *MongoEntryRepository) Delete(ctx context.Context, userID, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "user": userID})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, r.name, "delete", "error")
		return err
	}
	if res.DeletedCount == 0 {
		observability.RecordRepositoryOperation(ctx, r.name, "delete", "not_found")
		return ErrEntryNotFound
	}
	observability.RecordRepositoryOperation(ctx, r.name, "delete", "success")
	return nil
}
