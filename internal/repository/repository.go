package repository

import (
	"context"

	"evofit/meal-planner/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate record")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CustomerPage is the result of a scoped customer listing.
type CustomerPage struct {
	Customers []domain.User
	Total     int64
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// AssignmentRepository manages trainer-customer links. Every trainer-scoped read
// in the system goes through this relation; there is no unscoped customer query
// exposed to trainer endpoints.
type AssignmentRepository interface {
	// IsOwner reports whether an active assignment links the pair. Storage
	// errors propagate so callers can treat the check as deny (fail-closed).
	IsOwner(ctx context.Context, trainerID, customerID primitive.ObjectID) (bool, error)

	// GetActive returns the active assignment for the pair, or ErrNotFound.
	GetActive(ctx context.Context, trainerID, customerID primitive.ObjectID) (*domain.CustomerAssignment, error)

	// GetByCustomer returns the most recent assignment for a customer in any
	// status, or ErrNotFound.
	GetByCustomer(ctx context.Context, customerID primitive.ObjectID) (*domain.CustomerAssignment, error)

	// ListOwnedCustomers pages through customers with an active link to the
	// trainer, ordered by assignedDate descending with customerId ascending as
	// the tie-break. An empty result is (empty page, nil), never an error.
	ListOwnedCustomers(ctx context.Context, trainerID primitive.ObjectID, offset, limit int64) (*CustomerPage, error)

	// Upsert creates an active assignment, or reactivates an inactive one for
	// the same pair. Returns ErrDuplicate if the customer already has an active
	// link to a different trainer.
	Upsert(ctx context.Context, trainerID, customerID primitive.ObjectID) (*domain.CustomerAssignment, error)

	// Deactivate flips the active assignment to inactive. The row is kept.
	Deactivate(ctx context.Context, trainerID, customerID primitive.ObjectID) error
}

// MealPlanRepository defines the interface for meal plan library data.
type MealPlanRepository interface {
	Create(ctx context.Context, plan *domain.MealPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MealPlan, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.MealPlan, error)
	CreateAssignment(ctx context.Context, assignment *domain.MealPlanAssignment) (primitive.ObjectID, error)
	GetAssignmentsByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]domain.MealPlanAssignment, error)
}

// ProgressRepository defines the interface for append-only progress records.
type ProgressRepository interface {
	Create(ctx context.Context, entry *domain.ProgressEntry) (primitive.ObjectID, error)
	GetByCustomerID(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProgressEntry, error)
}

// PhotoRepository defines the interface for progress photo metadata.
type PhotoRepository interface {
	Create(ctx context.Context, photo *domain.ProgressPhoto) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgressPhoto, error)
	GetByCustomerID(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProgressPhoto, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
