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

const assignmentCollectionName = "customer_assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
	users      *mongo.Collection
}

// NewMongoAssignmentRepository creates a new assignment repository backed by MongoDB.
// It also needs the users collection because scoped listings resolve assignment
// rows into customer records in one place.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
		users:      db.Collection(userCollectionName),
	}
}

// activePairFilter is the single definition of "owned": an active link between
// the exact pair. Every predicate and scoped query builds on it.
func activePairFilter(trainerID, customerID primitive.ObjectID) bson.M {
	return bson.M{
		"trainerId":  trainerID,
		"customerId": customerID,
		"status":     domain.StatusActive,
	}
}

// IsOwner reports whether an active assignment links the trainer to the customer.
// Errors propagate to the caller; a failed check must be treated as deny.
func (r *mongoAssignmentRepository) IsOwner(ctx context.Context, trainerID, customerID primitive.ObjectID) (bool, error) {
	if trainerID == primitive.NilObjectID || customerID == primitive.NilObjectID {
		return false, nil
	}

	count, err := r.collection.CountDocuments(ctx, activePairFilter(trainerID, customerID), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetActive returns the active assignment for the pair.
func (r *mongoAssignmentRepository) GetActive(ctx context.Context, trainerID, customerID primitive.ObjectID) (*domain.CustomerAssignment, error) {
	var assignment domain.CustomerAssignment
	err := r.collection.FindOne(ctx, activePairFilter(trainerID, customerID)).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// GetByCustomer returns the customer's most recent assignment in any status.
func (r *mongoAssignmentRepository) GetByCustomer(ctx context.Context, customerID primitive.ObjectID) (*domain.CustomerAssignment, error) {
	var assignment domain.CustomerAssignment
	findOptions := options.FindOne().SetSort(bson.D{{Key: "assignedDate", Value: -1}})

	err := r.collection.FindOne(ctx, bson.M{"customerId": customerID}, findOptions).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// ListOwnedCustomers pages through the trainer's active assignments and resolves
// them to customer records. Ordering is assignedDate descending with customerId
// ascending as the stable tie-break, so repeated calls with the same pagination
// args return identical pages.
func (r *mongoAssignmentRepository) ListOwnedCustomers(ctx context.Context, trainerID primitive.ObjectID, offset, limit int64) (*repository.CustomerPage, error) {
	filter := bson.M{"trainerId": trainerID, "status": domain.StatusActive}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "assignedDate", Value: -1}, {Key: "customerId", Value: 1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []domain.CustomerAssignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	page := &repository.CustomerPage{Customers: []domain.User{}, Total: total}
	if len(assignments) == 0 {
		return page, nil
	}

	customerIDs := make([]primitive.ObjectID, len(assignments))
	for i, a := range assignments {
		customerIDs[i] = a.CustomerID
	}

	userCursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": customerIDs}})
	if err != nil {
		return nil, err
	}
	defer userCursor.Close(ctx)

	var customers []domain.User
	if err = userCursor.All(ctx, &customers); err != nil {
		return nil, err
	}

	// $in does not preserve order; re-order to match the assignment sort.
	byID := make(map[primitive.ObjectID]domain.User, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}
	for _, a := range assignments {
		if c, ok := byID[a.CustomerID]; ok {
			page.Customers = append(page.Customers, c)
		}
	}

	return page, nil
}

// Upsert creates an active assignment for the pair, reactivating an inactive
// historical row if one exists. A customer with an active link to a different
// trainer yields ErrDuplicate.
func (r *mongoAssignmentRepository) Upsert(ctx context.Context, trainerID, customerID primitive.ObjectID) (*domain.CustomerAssignment, error) {
	if trainerID == primitive.NilObjectID || customerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID and customer ID are required")
	}

	// Reject if the customer belongs to another trainer right now.
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"customerId": customerID,
		"trainerId":  bson.M{"$ne": trainerID},
		"status":     domain.StatusActive,
	}, options.Count().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, repository.ErrDuplicate
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"status":       domain.StatusActive,
			"assignedDate": now,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"trainerId":  trainerID,
			"customerId": customerID,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var assignment domain.CustomerAssignment
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"trainerId": trainerID, "customerId": customerID}, update, opts).Decode(&assignment)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Deactivate flips the pair's active assignment to inactive. The row is never
// deleted; the inactive record is the audit trail.
func (r *mongoAssignmentRepository) Deactivate(ctx context.Context, trainerID, customerID primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"status":    domain.StatusInactive,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, activePairFilter(trainerID, customerID), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureAssignmentIndexes creates necessary indexes for the customer_assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One row per pair; reactivation updates it in place.
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "customerId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Scoped listing: trainer's active links sorted by date.
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "status", Value: 1}, {Key: "assignedDate", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
