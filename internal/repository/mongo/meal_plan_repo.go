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

const (
	mealPlanCollectionName           = "meal_plans"
	mealPlanAssignmentCollectionName = "meal_plan_assignments"
)

// mongoMealPlanRepository implements repository.MealPlanRepository
type mongoMealPlanRepository struct {
	plans       *mongo.Collection
	assignments *mongo.Collection
}

// NewMongoMealPlanRepository creates a new meal plan repository backed by MongoDB.
func NewMongoMealPlanRepository(db *mongo.Database) repository.MealPlanRepository {
	return &mongoMealPlanRepository{
		plans:       db.Collection(mealPlanCollectionName),
		assignments: db.Collection(mealPlanAssignmentCollectionName),
	}
}

// Create inserts a new meal plan into the trainer's library.
func (r *mongoMealPlanRepository) Create(ctx context.Context, plan *domain.MealPlan) (primitive.ObjectID, error) {
	if plan.TrainerID == primitive.NilObjectID || plan.Name == "" {
		return primitive.NilObjectID, errors.New("meal plan requires trainerId and name")
	}

	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.plans.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted meal plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a meal plan by its ID.
func (r *mongoMealPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MealPlan, error) {
	var plan domain.MealPlan
	err := r.plans.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByTrainerID retrieves all meal plans in a trainer's library.
func (r *mongoMealPlanRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.MealPlan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.plans.Find(ctx, bson.M{"trainerId": trainerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.MealPlan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// CreateAssignment links a meal plan to a customer. The service layer has
// already verified the trainer owns both sides; the stamp recorded here is what
// later reads and audits key off.
func (r *mongoMealPlanRepository) CreateAssignment(ctx context.Context, assignment *domain.MealPlanAssignment) (primitive.ObjectID, error) {
	if assignment.MealPlanID == primitive.NilObjectID ||
		assignment.CustomerID == primitive.NilObjectID ||
		assignment.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("meal plan assignment requires mealPlanId, customerId and trainerId")
	}

	assignment.ID = primitive.NewObjectID()
	assignment.AssignedAt = time.Now().UTC()
	if assignment.StartDate.IsZero() {
		assignment.StartDate = assignment.AssignedAt
	}

	result, err := r.assignments.InsertOne(ctx, assignment)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted assignment ID")
	}
	return insertedID, nil
}

// GetAssignmentsByCustomer retrieves a customer's meal plan assignments, newest first.
func (r *mongoMealPlanRepository) GetAssignmentsByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]domain.MealPlanAssignment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: -1}})

	cursor, err := r.assignments.Find(ctx, bson.M{"customerId": customerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []domain.MealPlanAssignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// EnsureMealPlanIndexes creates necessary indexes for both meal plan collections.
func EnsureMealPlanIndexes(ctx context.Context, plans, assignments *mongo.Collection) {
	_, _ = plans.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	_, _ = assignments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "assignedAt", Value: -1}}},
		{Keys: bson.D{{Key: "trainerId", Value: 1}}},
	})
}
