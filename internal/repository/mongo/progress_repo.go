package mongo

import (
	"context"
	"errors"
	"time"

	"evofit/meal-planner/internal/domain"
	"evofit/meal-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const progressCollectionName = "progress_entries"

// mongoProgressRepository implements repository.ProgressRepository.
// Entries are append-only; there is deliberately no Update or Delete.
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new progress repository backed by MongoDB.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// Create appends a new progress entry.
func (r *mongoProgressRepository) Create(ctx context.Context, entry *domain.ProgressEntry) (primitive.ObjectID, error) {
	if entry.CustomerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("progress entry requires customerId")
	}

	entry.ID = primitive.NewObjectID()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted entry ID")
	}
	return insertedID, nil
}

// GetByCustomerID retrieves a customer's progress entries, newest first.
func (r *mongoProgressRepository) GetByCustomerID(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProgressEntry, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"customerId": customerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.ProgressEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// EnsureProgressIndexes creates necessary indexes for the progress collection.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) {
	_, _ = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "recordedAt", Value: -1}}},
		{Keys: bson.D{{Key: "trainerId", Value: 1}}},
	})
}
